package view

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderLoginPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/login.html", TemplateData{Title: "Accesso", CSRFToken: "tok"})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Contains(t, body, "<form")
	assert.Contains(t, body, `value="tok"`)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

type fakeGuest struct {
	ID               int64
	LastName         string
	FirstName        string
	Sex              string
	BirthDate        time.Time
	BirthPlace       string
	Province         string
	FiscalCode       string
	PermitNumber     string
	PermitDate       time.Time
	PermitExpiry     time.Time
	HealthCard       string
	HealthCardExpiry time.Time
	EntryDate        time.Time
	ExitDate         time.Time
	CheckInDate      time.Time
	CheckOutDate     time.Time
	RoomNumber       string
	Floor            string
	FamilyRelations  string
	CustomFields     []struct{ Name, Value string }
}

func TestRenderGuestDetailFormatsDates(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	guest := fakeGuest{
		LastName:   "Rossi",
		FirstName:  "Mario",
		Sex:        "M",
		BirthDate:  time.Date(1980, time.January, 15, 0, 0, 0, 0, time.UTC),
		BirthPlace: "Roma",
		FiscalCode: "RSSMRA80A15H501I",
	}
	rec := httptest.NewRecorder()
	err = engine.Render(rec, "pages/guest_detail.html", TemplateData{
		Title:    "Dettaglio",
		LoggedIn: true,
		Data:     struct{ Guest fakeGuest }{Guest: guest},
	})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Contains(t, body, "15/01/1980")
	assert.Contains(t, body, "RSSMRA80A15H501I")
}
