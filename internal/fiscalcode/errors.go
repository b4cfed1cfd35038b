package fiscalcode

import "errors"

var (
	// ErrEmptyName indicates a name with no usable letters after normalization.
	ErrEmptyName = errors.New("fiscalcode: name is empty")
	// ErrInvalidDate indicates a zero or future birth date.
	ErrInvalidDate = errors.New("fiscalcode: invalid birth date")
	// ErrUnknownPlace indicates the birth place has no entry in the place table.
	ErrUnknownPlace = errors.New("fiscalcode: unknown birth place")
	// ErrInvalidFormat indicates a candidate code with the wrong shape.
	ErrInvalidFormat = errors.New("fiscalcode: invalid format")
	// ErrChecksumMismatch indicates a well-formed code whose check character is wrong.
	ErrChecksumMismatch = errors.New("fiscalcode: checksum mismatch")
	// ErrCodeSpaceExhausted indicates every omocodia substitution still collides.
	ErrCodeSpaceExhausted = errors.New("fiscalcode: omocodia substitutions exhausted")
)
