package rtbtypes

import (
	"errors"
	"fmt"
)

// ValidationError rejects a malformed template at registration time. The
// registration is refused atomically: the store is never mutated before
// validation passes.
type ValidationError struct {
	Template string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Template == "" {
		return fmt.Sprintf("template validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("template %q validation failed: %s", e.Template, e.Reason)
}

// NotFoundError signals an operation against an unregistered template name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("template %q is not registered", e.Name)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
