package audit

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a SQL injection pattern found in user input.
type InjectionCheckResult struct {
	Field       string
	Value       string
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckInput scans value with libinjection. Returns nil when no pattern is found.
//
//	CheckInput("query", "Quantum Computing")       // nil
//	CheckInput("query", "'; DROP TABLE users--")   // Fingerprint "s&1c" or similar
func CheckInput(field, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}
	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		Field:       field,
		Value:       value,
		Fingerprint: string(fingerprint),
	}
}
