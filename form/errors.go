package form

import (
	"errors"
	"fmt"

	"badgereq/badge"
)

var (
	ErrPartialInput = errors.New("entry inputs are partially filled; add or clear them before submitting")
	ErrNoEntries    = errors.New("no entries to submit")
	ErrInFlight     = errors.New("a request for this form is already in progress")
	ErrUnknownInput = errors.New("unknown form input")
)

const (
	MsgDuplicateLDAP = "Duplicate LDAP for this employee/company."
	MsgDuplicateAIN  = "Duplicate AIN for this employee/company."
)

// DuplicateError rejects an entry that is already in the session store.
type DuplicateError struct {
	Field   badge.Field
	Message string
}

func (e *DuplicateError) Error() string {
	return e.Message
}

func newDuplicateError(kind badge.IDKind) *DuplicateError {
	message := MsgDuplicateLDAP
	if kind == badge.IDKindTimeClock {
		message = MsgDuplicateAIN
	}
	return &DuplicateError{Field: badge.FieldIdentifier, Message: message}
}

// PersistenceError means the entry could not be saved and was discarded.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save entry to database: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NotificationError means the batch was not sent; entries are kept for a retry.
type NotificationError struct {
	Err error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("failed to send badge request: %v", e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// FieldOf returns the input an error is attributed to, or badge.FieldNone.
func FieldOf(err error) badge.Field {
	var inputErr *badge.InputError
	if errors.As(err, &inputErr) {
		return inputErr.Field
	}
	var duplicateErr *DuplicateError
	if errors.As(err, &duplicateErr) {
		return duplicateErr.Field
	}
	return badge.FieldNone
}
