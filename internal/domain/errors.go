package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInputShape marks non-retryable errors caused by the structure of an
	// input file: missing columns, unknown attribute schema, wrong file type.
	ErrInputShape = errors.New("input shape")

	// ErrUnsupportedFile is returned for file types no adapter can read.
	ErrUnsupportedFile = fmt.Errorf("%w: unsupported file type", ErrInputShape)

	// ErrNoRegionMatch is returned when a region filter selects zero boundary
	// polygons. It is a configuration error and must not be retried.
	ErrNoRegionMatch = errors.New("no boundary polygons match region filter")
)

// FieldsError reports that none of the recognized field names were present.
// Found lists what the source actually carries so an operator can fix it.
type FieldsError struct {
	What  string
	Want  []string
	Found []string
}

func (e *FieldsError) Error() string {
	return fmt.Sprintf("require %s fields (one of %s); found fields=%s",
		e.What, strings.Join(e.Want, ", "), strings.Join(e.Found, ", "))
}

func (e *FieldsError) Unwrap() error { return ErrInputShape }

// RegionMatchError is returned when no polygon survives the region filter.
type RegionMatchError struct {
	Regions []string
	Sample  []string
}

func (e *RegionMatchError) Error() string {
	return fmt.Sprintf("%s (%d regions configured); sample provinces found: %s",
		ErrNoRegionMatch, len(e.Regions), strings.Join(e.Sample, ", "))
}

func (e *RegionMatchError) Unwrap() error { return ErrNoRegionMatch }
