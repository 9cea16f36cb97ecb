package service

import (
	"context"

	"github.com/garyjia/approval-router/internal/application/port"
	"github.com/garyjia/approval-router/internal/domain/entity"
)

// DirectoryService implements the user directory over the user repository
type DirectoryService struct {
	users port.UserRepository
}

var _ port.UserDirectory = (*DirectoryService)(nil)

// NewDirectoryService creates a DirectoryService
func NewDirectoryService(users port.UserRepository) *DirectoryService {
	return &DirectoryService{users: users}
}

// RoleOf returns the role of a user
func (s *DirectoryService) RoleOf(ctx context.Context, userID string) (entity.Role, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.Role, nil
}

// DepartmentOf returns the department of a user
func (s *DirectoryService) DepartmentOf(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Department, nil
}
