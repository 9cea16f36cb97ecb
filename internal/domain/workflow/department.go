package workflow

import (
	"sort"
	"strings"
	"unicode"
)

// DepartmentGroup names a set of department spellings that route the same way
type DepartmentGroup string

const (
	// DepartmentGroupNone is returned for departments outside every alias group
	DepartmentGroupNone DepartmentGroup = ""

	// DepartmentGroupInternalAudit routes default-pipeline requests auditor first
	DepartmentGroupInternalAudit DepartmentGroup = "internal_audit"
)

// DefaultDepartmentAliases returns the built-in alias groups
func DefaultDepartmentAliases() map[DepartmentGroup][]string {
	return map[DepartmentGroup][]string{
		DepartmentGroupInternalAudit: {
			"Internal Auditor",
			"Internal Auditors",
			"Internal Audit",
			"Internal Audit Unit",
			"Audit",
			"Auditor",
		},
	}
}

// DepartmentClassifier maps free-text department names onto alias groups
type DepartmentClassifier struct {
	groups map[string]DepartmentGroup
}

// NewDepartmentClassifier builds a classifier from alias groups.
// Aliases are normalized; an alias listed under two groups keeps the
// group that sorts first so classification stays deterministic.
func NewDepartmentClassifier(aliases map[DepartmentGroup][]string) *DepartmentClassifier {
	names := make([]string, 0, len(aliases))
	for group := range aliases {
		names = append(names, string(group))
	}
	sort.Strings(names)

	c := &DepartmentClassifier{groups: make(map[string]DepartmentGroup)}
	for _, name := range names {
		group := DepartmentGroup(name)
		for _, alias := range aliases[group] {
			key := NormalizeDepartment(alias)
			if key == "" {
				continue
			}
			if _, taken := c.groups[key]; !taken {
				c.groups[key] = group
			}
		}
	}
	return c
}

// Classify returns the alias group of a department, or DepartmentGroupNone
func (c *DepartmentClassifier) Classify(department string) DepartmentGroup {
	if c == nil {
		return DepartmentGroupNone
	}
	return c.groups[NormalizeDepartment(department)]
}

// Aliases returns the normalized aliases of a group, sorted
func (c *DepartmentClassifier) Aliases(group DepartmentGroup) []string {
	var out []string
	for key, g := range c.groups {
		if g == group {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// NormalizeDepartment lowercases a department name, turns punctuation into
// spaces and collapses whitespace. "Internal-Audit  Unit." and
// "internal audit unit" normalize to the same key.
func NormalizeDepartment(department string) string {
	fields := strings.FieldsFunc(strings.ToLower(department), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(fields, " ")
}
