package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/garyjia/approval-router/internal/domain/entity"
	"github.com/garyjia/approval-router/pkg/utils"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Routing  RoutingConfig  `mapstructure:"routing"`
	Leave    LeaveConfig    `mapstructure:"leave"`
	Report   ReportConfig   `mapstructure:"report"`
	Users    []UserConfig   `mapstructure:"users"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Mode            string        `mapstructure:"mode"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// RoutingConfig holds department alias groups, keyed by group name
type RoutingConfig struct {
	DepartmentAliases map[string][]string `mapstructure:"department_aliases"`
}

// LeaveConfig holds the yearly entitlement used when a user has no explicit row.
// Keys are leave type names; matching is case-insensitive.
type LeaveConfig struct {
	DefaultEntitlements map[string]int `mapstructure:"default_entitlements"`
}

// ReportConfig holds register export configuration
type ReportConfig struct {
	SheetName string `mapstructure:"sheet_name"`
}

// UserConfig seeds one directory entry at startup
type UserConfig struct {
	ID         string `mapstructure:"id"`
	Name       string `mapstructure:"name"`
	Email      string `mapstructure:"email"`
	Role       string `mapstructure:"role"`
	Department string `mapstructure:"department"`
}

// Load loads configuration from file and environment variables.
// An empty configPath uses defaults and the environment only.
// A .env file in the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("APPROVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.path", "data/approvals.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("routing.department_aliases", map[string][]string{
		"internal_audit": {"Internal Auditor", "Internal Auditors", "Internal Audit", "Internal Audit Unit", "Audit", "Auditor"},
	})

	v.SetDefault("leave.default_entitlements", map[string]int{
		"annual leave":        28,
		"compassionate leave": 7,
		"paternity leave":     3,
		"maternity leave":     84,
	})

	v.SetDefault("report.sheet_name", "Register")
}

// bindEnvVars binds deployment settings to short environment names
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("database.path", "APPROVAL_DB_PATH")
	_ = v.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database pool sizes must not be negative")
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	for group, aliases := range c.Routing.DepartmentAliases {
		if len(aliases) == 0 {
			return fmt.Errorf("routing.department_aliases.%s has no aliases", group)
		}
	}

	if _, err := c.LeaveEntitlements(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Users))
	for i, u := range c.Users {
		if err := utils.ValidateUserID(u.ID); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		if seen[u.ID] {
			return fmt.Errorf("users[%d]: duplicate id %q", i, u.ID)
		}
		seen[u.ID] = true
		if _, err := entity.ParseRole(u.Role); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		if u.Email != "" {
			if err := utils.ValidateEmail(u.Email); err != nil {
				return fmt.Errorf("users[%d]: %w", i, err)
			}
		}
	}

	return nil
}

// LeaveEntitlements resolves the configured defaults to capped leave types
func (c *Config) LeaveEntitlements() (map[entity.RequestType]int, error) {
	out := make(map[entity.RequestType]int, len(c.Leave.DefaultEntitlements))
	for name, days := range c.Leave.DefaultEntitlements {
		t, err := entity.ParseRequestType(name)
		if err != nil {
			return nil, fmt.Errorf("leave.default_entitlements: %w", err)
		}
		if !t.IsCappedLeave() {
			return nil, fmt.Errorf("leave.default_entitlements: %q is not a capped leave type", name)
		}
		if days < 0 {
			return nil, fmt.Errorf("leave.default_entitlements: %q must not be negative", name)
		}
		out[t] = days
	}
	return out, nil
}

// LoggerSettings converts the logger section for the logger factory
func (c *Config) LoggerSettings() utils.LoggerConfig {
	return utils.LoggerConfig{
		Level:      c.Logger.Level,
		OutputPath: c.Logger.OutputPath,
		Format:     c.Logger.Format,
	}
}
