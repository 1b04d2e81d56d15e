package exiterror

import (
	"fmt"
)

// Process exit codes of the operator CLI
const (
	// Command ran but the thing asked about does not exist
	CodeNotFound = 3
	// Command failed for any other reason
	CodeErrored = 1
)

// Carries an exit code along with an error so the app can exit correctly
type ExitError struct {
	Err  error
	Code int
}

func (e ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d", e.Code)
	}

	return fmt.Sprintf("%d: %s", e.Code, e.Err.Error())
}

func (e ExitError) Unwrap() error {
	return e.Err
}

// Wrap an error with an exit code
func Wrap(code int, err error) error {
	return ExitError{Code: code, Err: err}
}
