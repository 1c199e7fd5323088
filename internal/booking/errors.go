package booking

import (
	"errors"
	"fmt"

	"atlab/internal/slotlabel"
)

var (
	ErrValidation        = errors.New("invalid request")
	ErrSlotTaken         = errors.New("slot is no longer available, please pick again")
	ErrSameDayLock       = errors.New("appointments cannot be rescheduled on the day they take place")
	ErrNoConsecutiveSlot = errors.New("no consecutive pair of free slots for a double block")
	ErrNotFound          = errors.New("booking not found")

	// ErrAlreadyBooked is a SlotTaken rejection where the holder is the requester.
	ErrAlreadyBooked = fmt.Errorf("%w: you already hold it", ErrSlotTaken)

	// ErrFormat matches any unparseable stored slot label.
	ErrFormat = slotlabel.ErrFormat
)

// StoreError wraps a failure of the backing store. The action should be retried as a whole.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return "store " + e.Op + ": " + e.Err.Error() }

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// RowError isolates a row whose slot label could not be parsed.
type RowError struct {
	RecordID string `json:"record_id"`
	Slot     string `json:"slot"`
	Err      string `json:"error"`
}

// validationError carries a user-facing reason while matching ErrValidation.
type validationError struct{ msg string }

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Unwrap() error { return ErrValidation }

func invalid(msg string) error { return &validationError{msg: msg} }
