// Package container provides dependency injection and lifecycle management
// for the approval router following Clean Architecture principles.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/approval-router/internal/domain/entity"
	"github.com/garyjia/approval-router/internal/domain/workflow"
)

// Config holds all configuration for the Container.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Routing  RoutingConfig
	Leave    LeaveConfig
	Report   ReportConfig

	// SeedUsers are upserted into the user directory on start
	SeedUsers []entity.User
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// BusyTimeout bounds how long a writer waits for the database lock
	BusyTimeout time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Mode is the gin mode: debug, release or test
	Mode string
}

// RoutingConfig holds the department alias groups that change routing.
// A nil map means the built-in internal audit aliases.
type RoutingConfig struct {
	DepartmentAliases map[workflow.DepartmentGroup][]string
}

// LeaveConfig holds yearly entitlements used when a user has no explicit row.
type LeaveConfig struct {
	DefaultEntitlements map[entity.RequestType]int
}

// ReportConfig holds register export settings.
type ReportConfig struct {
	SheetName string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/approvals.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Mode:            "release",
		},
		Leave: LeaveConfig{
			DefaultEntitlements: map[entity.RequestType]int{
				entity.TypeAnnualLeave:        28,
				entity.TypeCompassionateLeave: 7,
				entity.TypePaternityLeave:     3,
				entity.TypeMaternityLeave:     84,
			},
		},
		Report: ReportConfig{
			SheetName: "Register",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	for t, days := range c.Leave.DefaultEntitlements {
		if !t.IsCappedLeave() {
			return fmt.Errorf("leave entitlement for %q: not a capped leave type", t)
		}
		if days < 0 {
			return fmt.Errorf("leave entitlement for %q must not be negative", t)
		}
	}

	for _, u := range c.SeedUsers {
		if u.ID == "" {
			return fmt.Errorf("seed user without id")
		}
		if !u.Role.IsValid() {
			return fmt.Errorf("seed user %q has invalid role %d", u.ID, int(u.Role))
		}
	}

	return nil
}
