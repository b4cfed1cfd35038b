package fiscalcode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeSurname(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ROSSI", "RSS"},
		{"Rossi", "RSS"},
		{"BIANCHI", "BNC"},
		{"FO", "FOX"},
		{"RE", "REX"},
		{"HU", "HUX"},
		{"AIELLO", "LLA"},
		{"D'Angelo", "DNG"},
		{"De  Luca", "DLC"},
		{"Müller", "MLL"},
		{"NOÈ", "NOE"},
		{"BO", "BOX"},
	}
	for _, tc := range cases {
		got, err := encodeSurname(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestEncodeGivenName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"MARIO", "MRA"},
		{"LAURA", "LRA"},
		// Four or more consonants: first, third and fourth.
		{"GIANFRANCO", "GFR"},
		{"ALESSANDRO", "LSN"},
		{"GIAMBATTISTA", "GBT"},
		{"Ada", "DAA"},
	}
	for _, tc := range cases {
		got, err := encodeGivenName(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got, tc.in)
	}
}

func TestEncodeNameEmpty(t *testing.T) {
	_, err := encodeSurname("  '' ")
	require.ErrorIs(t, err, ErrEmptyName)
	_, err = encodeGivenName("123")
	require.ErrorIs(t, err, ErrEmptyName)
}

func TestEncodeBirth(t *testing.T) {
	date := time.Date(1980, time.January, 15, 0, 0, 0, 0, time.UTC)

	got, err := encodeBirth(date, Male)
	require.NoError(t, err)
	require.Equal(t, "80A15", got)

	got, err = encodeBirth(date, Female)
	require.NoError(t, err)
	require.Equal(t, "80A55", got)

	got, err = encodeBirth(time.Date(2003, time.June, 1, 0, 0, 0, 0, time.UTC), Male)
	require.NoError(t, err)
	require.Equal(t, "03H01", got)
}

func TestEncodeBirthInvalid(t *testing.T) {
	_, err := encodeBirth(time.Time{}, Male)
	require.ErrorIs(t, err, ErrInvalidDate)

	_, err = encodeBirth(time.Now().AddDate(1, 0, 0), Female)
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestMonthLetters(t *testing.T) {
	require.Equal(t, "ABCDEHLMPRST", string(monthLetters[:]))
}
