package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionFinding describes a SQL injection pattern detected in a
// user-supplied free-text field.
type InjectionFinding struct {
	Field       string // Name of the field that failed the check
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckTextForInjection uses libinjection to detect SQL injection patterns
// in a free-text value before it is written to the audit store. The writes
// themselves are parameterized; findings are rejected and logged.
//
// Returns nil when no injection is detected.
func CheckTextForInjection(field, value string) *InjectionFinding {
	if value == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}

	return &InjectionFinding{
		Field:       field,
		Fingerprint: string(fingerprint),
	}
}

// CheckFields screens a set of named free-text fields and returns a finding
// for each field that contains an injection pattern.
func CheckFields(fields map[string]string) []*InjectionFinding {
	var findings []*InjectionFinding
	for name, value := range fields {
		if f := CheckTextForInjection(name, value); f != nil {
			findings = append(findings, f)
		}
	}
	return findings
}
