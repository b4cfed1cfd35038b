package guests

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

// exportColumns is the header of the exported dataset. The same names are
// accepted back by ImportCSV so an export can be re-imported unchanged.
var exportColumns = []string{
	"last_name", "first_name", "gender", "birth_place", "province", "birth_date",
	"fiscal_code", "country_code", "permit_number", "permit_date", "permit_expiry",
	"health_card", "health_card_expiry", "entry_date", "exit_date",
	"check_in_date", "check_out_date", "room_number", "floor", "family_relations",
}

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeComment(line string) error {
	if s == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if !strings.HasSuffix(line, "\r\n") {
		line = strings.TrimSuffix(line, "\n")
		line += "\r\n"
	}
	_, err := s.buf.WriteString(line)
	return err
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.Flush()
	}
	return nil
}

func (s *csvStreamer) Flush() error {
	if s == nil || s.csv == nil || s.buf == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

func (s *csvStreamer) Close() error {
	return s.Flush()
}

// WriteGuestsCSV streams the filtered guest list as CSV, metadata comments
// first, then a header row and one row per guest.
func WriteGuestsCSV(w io.Writer, guests []Guest, filters ExportFilters) error {
	streamer := newCSVStreamer(w)
	if err := writeExportMetadata(streamer, len(guests), filters); err != nil {
		return err
	}
	if err := streamer.writeRow(exportColumns); err != nil {
		return err
	}
	for _, g := range guests {
		if err := streamer.writeRow(guestRow(g)); err != nil {
			return err
		}
	}
	return streamer.Close()
}

func writeExportMetadata(streamer *csvStreamer, count int, filters ExportFilters) error {
	if err := streamer.writeComment("# Report: Registro ospiti"); err != nil {
		return err
	}
	parts := []string{}
	if filters.BirthPlace != "" {
		parts = append(parts, "luogo di nascita "+filters.BirthPlace)
	}
	switch filters.AgeFilter {
	case "adult":
		parts = append(parts, "maggiorenni")
	case "minor":
		parts = append(parts, "minorenni")
	}
	if filters.Room != "" {
		parts = append(parts, "stanza "+filters.Room)
	}
	if !filters.EntryDateFrom.IsZero() {
		parts = append(parts, "ingresso dal "+filters.EntryDateFrom.Format("02/01/2006"))
	}
	if !filters.EntryDateTo.IsZero() {
		parts = append(parts, "ingresso al "+filters.EntryDateTo.Format("02/01/2006"))
	}
	filterLine := "nessuno"
	if len(parts) > 0 {
		filterLine = strings.Join(parts, ", ")
	}
	if err := streamer.writeComment(fmt.Sprintf("# Filtri: %s", filterLine)); err != nil {
		return err
	}
	return streamer.writeComment(fmt.Sprintf("# Ospiti: %d | Generato: %s", count, time.Now().Format("02/01/2006 15:04")))
}

func guestRow(g Guest) []string {
	return []string{
		g.LastName,
		g.FirstName,
		g.Sex.String(),
		g.BirthPlace,
		g.Province,
		formatCSVDate(g.BirthDate),
		g.FiscalCode,
		g.CountryCode,
		g.PermitNumber,
		formatCSVDate(g.PermitDate),
		formatCSVDate(g.PermitExpiry),
		g.HealthCard,
		formatCSVDate(g.HealthCardExpiry),
		formatCSVDate(g.EntryDate),
		formatCSVDate(g.ExitDate),
		formatCSVDate(g.CheckInDate),
		formatCSVDate(g.CheckOutDate),
		g.RoomNumber,
		g.Floor,
		g.FamilyRelations,
	}
}

func formatCSVDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
