package service

import (
	"context"
	"fmt"

	"github.com/garyjia/approval-router/internal/application/port"
	"github.com/garyjia/approval-router/internal/domain/entity"
)

// LeaveBalanceService answers available leave from stored entitlements, falling
// back to configured yearly defaults. It never decrements anything.
type LeaveBalanceService struct {
	entitlements port.LeaveEntitlementRepository
	defaults     map[entity.RequestType]int
	logger       Logger
}

var _ port.LeaveBalance = (*LeaveBalanceService)(nil)

// NewLeaveBalanceService creates a LeaveBalanceService
func NewLeaveBalanceService(entitlements port.LeaveEntitlementRepository, defaults map[entity.RequestType]int, logger Logger) *LeaveBalanceService {
	copied := make(map[entity.RequestType]int, len(defaults))
	for t, days := range defaults {
		copied[t] = days
	}
	return &LeaveBalanceService{
		entitlements: entitlements,
		defaults:     copied,
		logger:       logger,
	}
}

// AvailableBalance returns entitlement minus days already used, never below zero
func (s *LeaveBalanceService) AvailableBalance(ctx context.Context, userID string, leaveType entity.RequestType, year int) (int, error) {
	if !leaveType.IsLeave() {
		return 0, fmt.Errorf("%s is not a leave type", leaveType)
	}

	entitled, found, err := s.entitlements.GetEntitlement(ctx, userID, leaveType, year)
	if err != nil {
		return 0, fmt.Errorf("get entitlement: %w", err)
	}
	if !found {
		entitled = s.defaults[leaveType]
	}

	used, err := s.entitlements.UsedDays(ctx, userID, leaveType, year)
	if err != nil {
		return 0, fmt.Errorf("get used days: %w", err)
	}

	available := entitled - used
	if available < 0 {
		available = 0
	}
	s.logger.Info("Leave balance read",
		"user_id", userID,
		"type", leaveType,
		"year", year,
		"entitled", entitled,
		"used", used,
		"default", !found,
	)
	return available, nil
}

// SetEntitlement stores an explicit entitlement for one user, type and year
func (s *LeaveBalanceService) SetEntitlement(ctx context.Context, userID string, leaveType entity.RequestType, year, days int) error {
	if !leaveType.IsCappedLeave() {
		return fmt.Errorf("%s has no yearly entitlement", leaveType)
	}
	if days < 0 {
		return fmt.Errorf("entitlement must not be negative: %d", days)
	}
	return s.entitlements.SetEntitlement(ctx, userID, leaveType, year, days)
}
