// Package errors defines the sentinel errors shared across qapages.
//
// Callers categorize failures with errors.Is against the values below.
// This package only imports the standard library.
package errors

import "errors"

var (
	// ErrInvalidConfig indicates a configuration value failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrSuiteNotFound indicates a suite name that is not in the suites file.
	ErrSuiteNotFound = errors.New("suite not found")

	// ErrDuplicateSuite indicates two suites share a name.
	ErrDuplicateSuite = errors.New("duplicate suite name")

	// ErrEnvUnreachable indicates the target environment failed its health check.
	ErrEnvUnreachable = errors.New("environment not accessible")

	// ErrStepFailed indicates a suite step exited with an error.
	ErrStepFailed = errors.New("step failed")

	// ErrCheckFailed indicates an API check or page probe did not meet expectations.
	ErrCheckFailed = errors.New("check failed")

	// ErrInvalidRunName indicates a directory name that is not YYYY-MM-DD_HH-MM-SS.
	ErrInvalidRunName = errors.New("invalid run folder name")

	// ErrRunFolderExists indicates a run folder could not be allocated.
	ErrRunFolderExists = errors.New("run folder already exists")

	// ErrRunNotFound indicates no matching run folder or run record.
	ErrRunNotFound = errors.New("run not found")

	// ErrNotificationDisabled indicates a notifier has no usable configuration.
	ErrNotificationDisabled = errors.New("notification channel not configured")

	// ErrInvalidSchedule indicates a schedule entry with a bad at/every value.
	ErrInvalidSchedule = errors.New("invalid schedule")
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text)
}
