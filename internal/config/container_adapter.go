package config

import (
	"fmt"

	"github.com/garyjia/approval-router/internal/container"
	"github.com/garyjia/approval-router/internal/domain/entity"
	"github.com/garyjia/approval-router/internal/domain/workflow"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() (*container.Config, error) {
	entitlements, err := c.LeaveEntitlements()
	if err != nil {
		return nil, err
	}

	aliases := make(map[workflow.DepartmentGroup][]string, len(c.Routing.DepartmentAliases))
	for group, names := range c.Routing.DepartmentAliases {
		aliases[workflow.DepartmentGroup(group)] = append([]string(nil), names...)
	}

	users := make([]entity.User, 0, len(c.Users))
	for _, u := range c.Users {
		role, err := entity.ParseRole(u.Role)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", u.ID, err)
		}
		users = append(users, entity.User{
			ID:         u.ID,
			Name:       u.Name,
			Email:      u.Email,
			Role:       role,
			Department: u.Department,
		})
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
			Mode:            c.Server.Mode,
		},
		Routing: container.RoutingConfig{
			DepartmentAliases: aliases,
		},
		Leave: container.LeaveConfig{
			DefaultEntitlements: entitlements,
		},
		Report: container.ReportConfig{
			SheetName: c.Report.SheetName,
		},
		SeedUsers: users,
	}, nil
}
