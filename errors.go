package sidongo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/sidongo/store"
	"github.com/hupe1980/sidongo/subsetsum"
)

var (
	// ErrNotFound is returned when the store has no record for the
	// requested n.
	ErrNotFound = errors.New("not found")

	// ErrSequenceTooLong is returned when n exceeds the 62-element
	// limit of the iterative subset-sum check.
	ErrSequenceTooLong = subsetsum.ErrSequenceTooLong
)

// ErrInvalidN indicates an out-of-range target set size.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidN struct {
	N     int
	cause error
}

func (e *ErrInvalidN) Error() string {
	return fmt.Sprintf("invalid n: %d", e.N)
}

func (e *ErrInvalidN) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return err
}
