package invoice

import (
	"errors"
	"fmt"
)

// Common derivation errors. Messages are user-facing.
var (
	// ErrNoValidOrders is returned when a batch yields zero invoices:
	// every order was refunded, fully discounted, or missing its id.
	ErrNoValidOrders = errors.New("keine gültigen Bestellungen in der Datei gefunden")

	// ErrNoRows is returned when aggregation is invoked without rows.
	ErrNoRows = errors.New("keine Datenzeilen vorhanden")
)

// DerivationError wraps errors with the operation that failed during
// CSV-to-invoice derivation.
type DerivationError struct {
	Op      string
	Err     error
	Details string
}

// Error implements the error interface.
func (e *DerivationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("invoice: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("invoice: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *DerivationError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *DerivationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapDerivationError wraps an error as a DerivationError if it isn't
// already one.
func WrapDerivationError(op string, err error, details string) error {
	if err == nil {
		return nil
	}
	var derr *DerivationError
	if errors.As(err, &derr) {
		return err
	}
	return &DerivationError{Op: op, Err: err, Details: details}
}
