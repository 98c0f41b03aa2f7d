// Package multierror collects multiple errors into one.
package multierror

import (
	"strings"
)

// List is an error wrapping one or more underlying errors.
type List []error

func (l List) Error() string {
	if len(l) == 1 {
		return l[0].Error()
	}
	messages := make([]string, 0, len(l))
	for _, err := range l {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// Unwrap exposes the underlying errors to errors.Is and errors.As.
func (l List) Unwrap() []error {
	return l
}

// New returns an error combining all non-nil errors in the slice.
//
// Returns nil if the slice is empty or contains only nil errors. A single
// error is returned as is, without wrapping.
func New(errs []error) error {
	filtered := make(List, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	switch len(filtered) {
	case 0:
		return nil
	case 1:
		return filtered[0]
	}
	return filtered
}
