package train

import (
	"errors"
	"fmt"

	"github.com/Chicken/VenaaRauhassa/internal/digitraffic"
)

var (
	// ErrTrainNotFound is returned when the timetable provider has no record of the train
	ErrTrainNotFound = digitraffic.ErrTrainNotFound
	// ErrTrainTooOld is returned for dates too far in the past to have seat data
	ErrTrainTooOld = errors.New("train too old")
	// ErrInvalidDate is returned for dates that are not YYYY-MM-DD
	ErrInvalidDate = errors.New("invalid date")
)

// LegError is a seat map that could not be fetched for one leg
type LegError struct {
	Dep string
	Arr string
	Err error
}

func (e *LegError) Error() string {
	return fmt.Sprintf("leg %s-%s: %v", e.Dep, e.Arr, e.Err)
}

func (e *LegError) Unwrap() error {
	return e.Err
}

// TooManyMissingLegsError aborts an assembly with too few usable legs.
// It wraps the errors of every failed leg.
type TooManyMissingLegsError struct {
	Missing int
	Total   int
	Errs    []error
}

func (e *TooManyMissingLegsError) Error() string {
	return fmt.Sprintf("too many null wagons: %d of %d legs failed", e.Missing, e.Total)
}

func (e *TooManyMissingLegsError) Unwrap() []error {
	return e.Errs
}
