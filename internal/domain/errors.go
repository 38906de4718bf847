package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrReservationConflict = errors.New("slot is no longer available")
	ErrActiveBookingExists = errors.New("user already has an active booking")
	ErrNoAvailability      = errors.New("no available slot")
)

// ValidationError is user input that failed a format or range check.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
