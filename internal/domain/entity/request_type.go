package entity

import "fmt"

// RequestType is the closed set of request kinds
type RequestType string

const (
	TypeImprest            RequestType = "Imprest request"
	TypeReimbursement      RequestType = "Reimbursement request"
	TypeTCCIARetirement    RequestType = "TCCIA Retirement Request"
	TypeSalaryAdvance      RequestType = "Salary Advance"
	TypeTravel             RequestType = "Travel request"
	TypeAnnualLeave        RequestType = "Annual leave"
	TypeCompassionateLeave RequestType = "Compassionate leave"
	TypePaternityLeave     RequestType = "Paternity leave"
	TypeMaternityLeave     RequestType = "Maternity leave"
	TypeSickLeave          RequestType = "Sick leave"
	TypeStaffClearance     RequestType = "Staff Clearance"
)

// AllRequestTypes returns every request type
func AllRequestTypes() []RequestType {
	return []RequestType{
		TypeImprest,
		TypeReimbursement,
		TypeTCCIARetirement,
		TypeSalaryAdvance,
		TypeTravel,
		TypeAnnualLeave,
		TypeCompassionateLeave,
		TypePaternityLeave,
		TypeMaternityLeave,
		TypeSickLeave,
		TypeStaffClearance,
	}
}

// IsValid returns true if the type is one of the known request types
func (t RequestType) IsValid() bool {
	for _, known := range AllRequestTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// IsFinancial reports whether the type moves money
func (t RequestType) IsFinancial() bool {
	switch t {
	case TypeImprest, TypeReimbursement, TypeTCCIARetirement, TypeSalaryAdvance, TypeTravel:
		return true
	default:
		return false
	}
}

// IsLeave reports whether the type is a leave request
func (t RequestType) IsLeave() bool {
	switch t {
	case TypeAnnualLeave, TypeCompassionateLeave, TypePaternityLeave, TypeMaternityLeave, TypeSickLeave:
		return true
	default:
		return false
	}
}

// IsCappedLeave reports whether the leave type is limited by a yearly balance
func (t RequestType) IsCappedLeave() bool {
	return t.IsLeave() && t != TypeSickLeave
}

// String returns the display name
func (t RequestType) String() string {
	return string(t)
}

// ParseRequestType resolves a type from its display name, ignoring case and punctuation
func ParseRequestType(s string) (RequestType, error) {
	key := foldKey(s)
	for _, t := range AllRequestTypes() {
		if foldKey(string(t)) == key {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown request type: %q", s)
}
