package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Concrete sentinels below wrap exactly one of them.
var (
	errNotFound     = errors.New("not found")
	errInvalidInput = errors.New("invalid input")
	errConfigFault  = errors.New("configuration fault")
)

var (
	// ErrAccountNotFound indicates the account is missing for the company/fiscal year.
	ErrAccountNotFound = fmt.Errorf("accounting: account %w", errNotFound)
	// ErrFiscalYearNotFound indicates the fiscal year is missing.
	ErrFiscalYearNotFound = fmt.Errorf("accounting: fiscal year %w", errNotFound)
	// ErrCompanyNotFound indicates no accounts exist for the company and fiscal year.
	ErrCompanyNotFound = fmt.Errorf("accounting: company accounts %w", errNotFound)
	// ErrStandardNotFound indicates the requested accounting standard is unknown.
	ErrStandardNotFound = fmt.Errorf("accounting: accounting standard %w", errNotFound)
	// ErrReportNotFound indicates an asynchronously generated report is unknown or expired.
	ErrReportNotFound = fmt.Errorf("accounting: generated report %w", errNotFound)

	// ErrInvalidInput indicates a missing or malformed request parameter.
	ErrInvalidInput = fmt.Errorf("accounting: %w", errInvalidInput)

	// ErrMappingNotConfigured indicates the registry lacks a definition for a supported standard.
	ErrMappingNotConfigured = fmt.Errorf("accounting: statement mapping %w", errConfigFault)
	// ErrInvalidMapping indicates authored mapping data failed validation.
	ErrInvalidMapping = fmt.Errorf("accounting: invalid statement mapping: %w", errConfigFault)
)

// Invalid wraps ErrInvalidInput with a field specific message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsNotFound reports whether err is a not-found condition.
func IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

// IsInvalidInput reports whether err was caused by bad caller input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, errInvalidInput)
}

// IsConfigurationFault reports whether err stems from broken statement configuration.
func IsConfigurationFault(err error) bool {
	return errors.Is(err, errConfigFault)
}
