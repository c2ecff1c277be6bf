package cli

import "errors"

var ErrUsage = errors.New("cli usage error")

// usageError is a user-facing failure: bad flags, bad input or an output
// location that cannot be written. The optional cause stays reachable
// through errors.As.
type usageError struct {
	msg   string
	cause error
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func wrapUsageError(msg string, cause error) error {
	return usageError{msg: msg, cause: cause}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Unwrap() error {
	return e.cause
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}
