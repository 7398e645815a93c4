// package repositories provides persistence layer implementations for the vidx client.
package repositories

import (
	"errors"
	"fmt"

	"github.com/desertthunder/vidx/internal/shared"
)

// StoreError describes a failed persistence operation.
type StoreError struct {
	Operation string
	Key       string
	Cause     error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store %s failed: %v", e.Operation, e.Cause)
	}
	return fmt.Sprintf("store %s %q failed: %v", e.Operation, e.Key, e.Cause)
}

// Unwrap exposes both [shared.ErrStore] and the underlying cause to [errors.Is].
func (e *StoreError) Unwrap() []error {
	return []error{shared.ErrStore, e.Cause}
}

func storeErr(op, key string, cause error) error {
	return &StoreError{Operation: op, Key: key, Cause: cause}
}

// IsStoreError reports whether err came from a repository.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
