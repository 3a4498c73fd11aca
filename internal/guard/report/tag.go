package report

import "errors"

// taggedError is a reporting copy of a failure with a prefixed message.
type taggedError struct {
	label string
	err   error
}

func (e *taggedError) Error() string { return "[" + e.label + "] " + e.err.Error() }

func (e *taggedError) Unwrap() error { return e.err }

// Tagged returns a copy of err whose message is prefixed with "[label] ".
// err itself is left untouched and remains reachable through Unwrap.
func Tagged(err error, label string) error {
	return &taggedError{label: label, err: err}
}

// TagOf returns the label err was tagged with, if any.
func TagOf(err error) (string, bool) {
	var t *taggedError
	if errors.As(err, &t) {
		return t.label, true
	}
	return "", false
}

// Untagged returns the failure a tagged copy was made from.
func Untagged(err error) error {
	var t *taggedError
	if errors.As(err, &t) {
		return t.err
	}
	return err
}
