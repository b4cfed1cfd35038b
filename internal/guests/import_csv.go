package guests

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ancora-cas/ancora-cas/internal/fiscalcode"
)

// requiredImportColumns must all appear in the CSV header.
var requiredImportColumns = []string{"last_name", "first_name", "gender", "birth_date"}

// importDateLayouts are tried in order when parsing date cells.
var importDateLayouts = []string{"2006-01-02", "02/01/2006", "2006-01-02 15:04:05"}

// RowError reports a single rejected import row.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

// ImportResult summarises an import run.
type ImportResult struct {
	Imported int
	Rejected []RowError
}

// ImportCSV reads guests from r and stores them one by one. A bad row is
// recorded and skipped, it never aborts the run.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	header, err := reader.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("guests: read csv header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, name := range requiredImportColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return ImportResult{}, fmt.Errorf("guests: csv missing columns: %s", strings.Join(missing, ", "))
	}

	result := ImportResult{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Rejected = append(result.Rejected, RowError{Line: line, Err: err})
			continue
		}
		guest, err := guestFromRecord(cols, record)
		if err != nil {
			result.Rejected = append(result.Rejected, RowError{Line: line, Err: err})
			continue
		}
		if _, err := s.Create(ctx, guest); err != nil {
			result.Rejected = append(result.Rejected, RowError{Line: line, Err: err})
			continue
		}
		result.Imported++
	}
	return result, nil
}

func guestFromRecord(cols map[string]int, record []string) (*Guest, error) {
	cell := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}
	date := func(name string) (time.Time, error) {
		raw := cell(name)
		if raw == "" {
			return time.Time{}, nil
		}
		for _, layout := range importDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable date %q in column %s", raw, name)
	}

	guest := &Guest{
		LastName:        cell("last_name"),
		FirstName:       cell("first_name"),
		BirthPlace:      cell("birth_place"),
		Province:        cell("province"),
		FiscalCode:      cell("fiscal_code"),
		CountryCode:     cell("country_code"),
		PermitNumber:    cell("permit_number"),
		HealthCard:      cell("health_card"),
		RoomNumber:      cell("room_number"),
		Floor:           cell("floor"),
		FamilyRelations: cell("family_relations"),
	}

	sex, ok := fiscalcode.ParseSex(cell("gender"))
	if !ok {
		return nil, fmt.Errorf("invalid gender %q", cell("gender"))
	}
	guest.Sex = sex

	var err error
	if guest.BirthDate, err = date("birth_date"); err != nil {
		return nil, err
	}
	if guest.PermitDate, err = date("permit_date"); err != nil {
		return nil, err
	}
	if guest.PermitExpiry, err = date("permit_expiry"); err != nil {
		return nil, err
	}
	if guest.HealthCardExpiry, err = date("health_card_expiry"); err != nil {
		return nil, err
	}
	if guest.EntryDate, err = date("entry_date"); err != nil {
		return nil, err
	}
	if guest.ExitDate, err = date("exit_date"); err != nil {
		return nil, err
	}
	if guest.CheckInDate, err = date("check_in_date"); err != nil {
		return nil, err
	}
	if guest.CheckOutDate, err = date("check_out_date"); err != nil {
		return nil, err
	}
	return guest, nil
}
