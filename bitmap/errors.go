package bitmap

import (
	"errors"
	"fmt"
)

var (
	// ErrRange indicates a bit position or count outside of a bitmap.
	ErrRange = errors.New("bitmap: position or count out of range")

	// ErrDivideByZero is returned by Div and Mod.
	ErrDivideByZero = errors.New("bitmap: division by zero")

	// ErrShortRead indicates that a Consumer ran out of source bytes.
	ErrShortRead = errors.New("bitmap: source exhausted")
)

// RangeError describes an out of bounds Get/Set/Scan.
type RangeError struct {
	Position int
	Count    int
	Width    int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%v: position %d count %d width %d", ErrRange, e.Position, e.Count, e.Width)
}

func (e *RangeError) Unwrap() error { return ErrRange }
