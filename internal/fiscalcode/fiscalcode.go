// Package fiscalcode computes and validates the Italian 16-character
// personal identifier from name, sex, birth date and birth place.
package fiscalcode

import (
	"strings"
	"time"
)

// Sex is the registry sex of a person.
type Sex int

const (
	// Male leaves the birth day unchanged.
	Male Sex = iota
	// Female adds 40 to the birth day field.
	Female
)

// ParseSex accepts the single-letter registry notation.
func ParseSex(s string) (Sex, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M":
		return Male, true
	case "F":
		return Female, true
	}
	return Male, false
}

// String returns the single-letter registry notation.
func (s Sex) String() string {
	if s == Female {
		return "F"
	}
	return "M"
}

// PersonInput carries the five descriptive fields a code is derived from.
type PersonInput struct {
	LastName       string
	FirstName      string
	Sex            Sex
	BirthDate      time.Time
	BirthPlace     string
	IsForeignBirth bool
}

// Calculator derives fiscal codes against an immutable place table.
type Calculator struct {
	places *PlaceTable
}

// NewCalculator constructs a Calculator.
func NewCalculator(places *PlaceTable) *Calculator {
	return &Calculator{places: places}
}

// Compose builds the fifteen-character core. Encoder and lookup errors
// propagate unchanged.
func (c *Calculator) Compose(in PersonInput) (string, error) {
	surname, err := encodeSurname(in.LastName)
	if err != nil {
		return "", err
	}
	given, err := encodeGivenName(in.FirstName)
	if err != nil {
		return "", err
	}
	birth, err := encodeBirth(in.BirthDate, in.Sex)
	if err != nil {
		return "", err
	}
	place, err := c.places.Lookup(in.BirthPlace, in.IsForeignBirth)
	if err != nil {
		return "", err
	}
	return surname + given + birth + place.Code, nil
}

// Compute derives the full sixteen-character code without collision
// handling.
func (c *Calculator) Compute(in PersonInput) (string, error) {
	core, err := c.Compose(in)
	if err != nil {
		return "", err
	}
	check, err := Checksum(core)
	if err != nil {
		return "", err
	}
	return core + string(check), nil
}

// ComputeUnique derives the code and, when a predicate is supplied, resolves
// collisions through omocodia substitution. Reserving the returned code
// atomically remains the caller's responsibility.
func (c *Calculator) ComputeUnique(in PersonInput, taken TakenFunc) (string, error) {
	code, err := c.Compute(in)
	if err != nil {
		return "", err
	}
	return Disambiguate(code, taken)
}
