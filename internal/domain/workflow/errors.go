package workflow

import (
	"errors"
	"fmt"

	"github.com/garyjia/approval-router/internal/domain/entity"
)

var (
	// ErrInsufficientBalance is returned when requested leave days are not positive
	// or exceed the available balance. Never clamped.
	ErrInsufficientBalance = errors.New("insufficient leave balance")

	// ErrForbidden is returned when the acting role has no current authority over the request
	ErrForbidden = errors.New("forbidden")

	// ErrAlreadyDecided is returned when the target stage has already left pending
	ErrAlreadyDecided = errors.New("stage already decided")

	// ErrUnknownRoutingCase is returned for a (type, role, department) triple with no routing rule
	ErrUnknownRoutingCase = errors.New("unknown routing case")

	// ErrInvalidRequest is returned for malformed input
	ErrInvalidRequest = errors.New("invalid request")

	// ErrRequestNotFound is returned when a request does not exist
	ErrRequestNotFound = errors.New("request not found")

	// ErrUserNotFound is returned when the directory does not know a user
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidTransition is returned when a stage transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrGuardFailed is returned when a guard condition fails
	ErrGuardFailed = errors.New("guard condition failed")
)

// InsufficientBalanceError describes a rejected leave application
type InsufficientBalanceError struct {
	UserID    string
	LeaveType entity.RequestType
	Year      int
	Requested int
	Available int
}

func (e *InsufficientBalanceError) Error() string {
	if e.Requested <= 0 {
		return fmt.Sprintf("insufficient leave balance: %d day(s) requested for %s, must be positive",
			e.Requested, e.LeaveType)
	}
	return fmt.Sprintf("insufficient leave balance: %d day(s) of %s requested, %d available in %d",
		e.Requested, e.LeaveType, e.Available, e.Year)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// ForbiddenError says why a role may not act on a request right now
type ForbiddenError struct {
	RequestID int64
	Role      entity.Role
	Stage     entity.Stage
	Reason    string
}

func (e *ForbiddenError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("forbidden: %s may not decide stage %s of request %d: %s",
			e.Role, e.Stage, e.RequestID, e.Reason)
	}
	return fmt.Sprintf("forbidden: %s may not decide request %d: %s", e.Role, e.RequestID, e.Reason)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}

// UnknownRoutingError names the triple the routing table could not resolve
type UnknownRoutingError struct {
	Type       entity.RequestType
	Role       entity.Role
	Department string
}

func (e *UnknownRoutingError) Error() string {
	return fmt.Sprintf("unknown routing case: type=%q role=%s department=%q", e.Type, e.Role, e.Department)
}

func (e *UnknownRoutingError) Unwrap() error {
	return ErrUnknownRoutingCase
}

// IsClientError returns true if the error is due to caller input or authority
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrAlreadyDecided) ||
		errors.Is(err, ErrInvalidRequest)
}

// IsNotFound returns true if the error indicates a missing resource
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) || errors.Is(err, ErrUserNotFound)
}
