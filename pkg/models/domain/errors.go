package domain

import "errors"

var (
	// ErrMalformedInput marks unparseable files, numbers or dates.
	ErrMalformedInput = errors.New("malformed input")
	// ErrMissingColumn marks a required column absent from the header.
	ErrMissingColumn = errors.New("missing column")
	// ErrEmptyResult marks an aggregation with no rows where one is required.
	ErrEmptyResult = errors.New("empty result")
)
