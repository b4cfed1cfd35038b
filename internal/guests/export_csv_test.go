package guests

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteGuestsCSV(t *testing.T) {
	guests := []Guest{
		{
			LastName:   "Rossi",
			FirstName:  "Mario",
			BirthPlace: "Roma",
			BirthDate:  time.Date(1980, time.January, 15, 0, 0, 0, 0, time.UTC),
			FiscalCode: "RSSMRA80A15H501I",
			RoomNumber: "3",
		},
	}
	var buf bytes.Buffer
	err := WriteGuestsCSV(&buf, guests, ExportFilters{Room: "3", AgeFilter: "adult"})
	require.NoError(t, err)

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "# Report: Registro ospiti\r\n"))
	require.Contains(t, out, "# Filtri: maggiorenni, stanza 3")
	require.Contains(t, out, strings.Join(exportColumns, ","))
	require.Contains(t, out, "Rossi,Mario,M,Roma,,1980-01-15,RSSMRA80A15H501I")
	require.True(t, strings.HasSuffix(out, "\r\n"))
}

func TestImportCSVRoundTrip(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(t, repo)

	source := []Guest{
		{
			LastName:   "Rossi",
			FirstName:  "Mario",
			BirthPlace: "Roma",
			BirthDate:  time.Date(1980, time.January, 15, 0, 0, 0, 0, time.UTC),
			EntryDate:  time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
			RoomNumber: "3",
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteGuestsCSV(&buf, source, ExportFilters{}))

	result, err := svc.ImportCSV(context.Background(), &buf)
	require.NoError(t, err)
	require.Equal(t, 1, result.Imported)
	require.Empty(t, result.Rejected)

	stored, err := repo.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "Rossi", stored.LastName)
	require.Equal(t, "RSSMRA80A15H501I", stored.FiscalCode)
	require.True(t, stored.EntryDate.Equal(source[0].EntryDate))
}

func TestImportCSVSkipsBadRows(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(t, repo)

	csvData := strings.Join([]string{
		"last_name,first_name,gender,birth_date,birth_place",
		"Rossi,Mario,M,1980-01-15,Roma",
		"Bianchi,Laura,X,1985-12-08,Milano",
		",Anna,F,1990-05-20,Napoli",
		"Verdi,Anna,F,non-una-data,Napoli",
		"Esposito,Anna,F,1990-05-20,Napoli",
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 2, result.Imported)
	require.Len(t, result.Rejected, 3)
	require.Equal(t, 3, result.Rejected[0].Line)
	require.Equal(t, 4, result.Rejected[1].Line)
	require.Equal(t, 5, result.Rejected[2].Line)
}

func TestImportCSVMissingColumns(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(t, repo)

	_, err := svc.ImportCSV(context.Background(), strings.NewReader("last_name,first_name\nRossi,Mario\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "gender")
	require.Contains(t, err.Error(), "birth_date")
}

func TestRenderGuestsPDFUsesRenderer(t *testing.T) {
	called := false
	renderer := rendererFunc(func(_ context.Context, html string) ([]byte, error) {
		called = true
		require.Contains(t, html, "Registro ospiti")
		require.Contains(t, html, "Rossi")
		return []byte("%PDF-1.4"), nil
	})
	pdf, err := RenderGuestsPDF(context.Background(), renderer, []Guest{{LastName: "Rossi", FirstName: "Mario"}})
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, []byte("%PDF-1.4"), pdf)
}

type rendererFunc func(ctx context.Context, html string) ([]byte, error)

func (f rendererFunc) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	return f(ctx, html)
}
