package rules

import "fmt"

// ConfigError reports a rule source that cannot be used. It is fatal to the
// whole run: a broken conversion policy cannot be defaulted safely.
type ConfigError struct {
	// Source is the file (or other origin) the rules came from.
	Source string

	// Supplier is the offending rule key, when the problem is per-rule.
	Supplier string

	// Reason is a human-readable description of the problem.
	Reason string

	// Err is the underlying decode or I/O error, if any.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	msg := "invalid conversion rules"
	if e.Source != "" {
		msg += " in " + e.Source
	}
	if e.Supplier != "" {
		msg += fmt.Sprintf(": supplier %q", e.Supplier)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
