package fiscalcode

import (
	"embed"
	"encoding/csv"
	"fmt"
	"strings"

	"golang.org/x/text/transform"
)

//go:embed data/places.csv
var placesData embed.FS

// PlaceKind distinguishes the two code namespaces.
type PlaceKind string

const (
	// Municipality is an Italian municipality entry.
	Municipality PlaceKind = "municipality"
	// ForeignCountry is a foreign state entry, code Z + 3 digits.
	ForeignCountry PlaceKind = "country"
)

// PlaceEntry is one row of the cadastral place table.
type PlaceEntry struct {
	Name string
	Code string
	Kind PlaceKind
}

// PlaceTable is the immutable name to cadastral code mapping, loaded once
// at startup and safe for concurrent reads.
type PlaceTable struct {
	byKey map[string]PlaceEntry
}

// LoadPlaceTable parses the embedded reference dataset.
func LoadPlaceTable() (*PlaceTable, error) {
	f, err := placesData.Open("data/places.csv")
	if err != nil {
		return nil, fmt.Errorf("fiscalcode: open place data: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 3
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("fiscalcode: parse place data: %w", err)
	}

	entries := make([]PlaceEntry, 0, len(rows))
	for i, row := range rows {
		if i == 0 && row[0] == "code" {
			continue
		}
		entries = append(entries, PlaceEntry{Code: row[0], Name: row[1], Kind: PlaceKind(row[2])})
	}
	return NewPlaceTable(entries)
}

// NewPlaceTable builds a table from explicit entries.
func NewPlaceTable(entries []PlaceEntry) (*PlaceTable, error) {
	table := &PlaceTable{byKey: make(map[string]PlaceEntry, len(entries))}
	for _, entry := range entries {
		if err := validatePlaceCode(entry.Code); err != nil {
			return nil, fmt.Errorf("fiscalcode: place %q: %w", entry.Name, err)
		}
		if entry.Kind != Municipality && entry.Kind != ForeignCountry {
			return nil, fmt.Errorf("fiscalcode: place %q: unknown kind %q", entry.Name, entry.Kind)
		}
		key := placeKey(entry.Name, entry.Kind)
		if _, exists := table.byKey[key]; exists {
			return nil, fmt.Errorf("fiscalcode: duplicate place %q", entry.Name)
		}
		table.byKey[key] = entry
	}
	return table, nil
}

// Lookup resolves a place name within the requested namespace.
func (t *PlaceTable) Lookup(name string, foreign bool) (PlaceEntry, error) {
	kind := Municipality
	if foreign {
		kind = ForeignCountry
	}
	entry, ok := t.byKey[placeKey(name, kind)]
	if !ok {
		return PlaceEntry{}, fmt.Errorf("%w: %q", ErrUnknownPlace, name)
	}
	return entry, nil
}

// Len reports the number of loaded entries.
func (t *PlaceTable) Len() int {
	return len(t.byKey)
}

func validatePlaceCode(code string) error {
	if len(code) != 4 || code[0] < 'A' || code[0] > 'Z' {
		return fmt.Errorf("malformed code %q", code)
	}
	for i := 1; i < 4; i++ {
		if code[i] < '0' || code[i] > '9' {
			return fmt.Errorf("malformed code %q", code)
		}
	}
	return nil
}

// placeKey normalizes a name for case and diacritic insensitive matching:
// accents stripped, uppercased, punctuation dropped, whitespace collapsed.
func placeKey(name string, kind PlaceKind) string {
	folded, _, err := transform.String(stripDiacritics, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	b.Grow(len(folded) + 2)
	b.WriteString(string(kind[0]))
	b.WriteByte('|')
	space := false
	for _, r := range strings.ToUpper(folded) {
		switch {
		case r >= 'A' && r <= 'Z' || r >= '0' && r <= '9':
			if space && b.Len() > 2 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case r == ' ' || r == '-':
			space = true
		}
	}
	return b.String()
}
