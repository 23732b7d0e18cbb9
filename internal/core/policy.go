package core

import (
	"fmt"
	"strings"
)

// ParsePolicy decides what happens to a malformed field value.
type ParsePolicy int

const (
	// Lenient turns malformed values into zero and never fails.
	Lenient ParsePolicy = iota
	// Strict rejects malformed values with a *FieldError.
	Strict
)

// ParsePolicyFromString maps "lenient"/"strict" (case-insensitive) to a policy.
// The empty string selects Lenient.
func ParsePolicyFromString(s string) (ParsePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	default:
		return Lenient, fmt.Errorf("unknown parse policy %q (expected lenient or strict)", s)
	}
}

func (p ParsePolicy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}
