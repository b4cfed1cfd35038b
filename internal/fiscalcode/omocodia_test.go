package fiscalcode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisambiguateNoPredicate(t *testing.T) {
	got, err := Disambiguate("RSSMRA80A15H501I", nil)
	require.NoError(t, err)
	require.Equal(t, "RSSMRA80A15H501I", got)
}

func TestDisambiguateFreeCode(t *testing.T) {
	got, err := Disambiguate("RSSMRA80A15H501I", func(string) bool { return false })
	require.NoError(t, err)
	require.Equal(t, "RSSMRA80A15H501I", got)
}

func TestDisambiguateSingleCollision(t *testing.T) {
	issued := map[string]bool{"RSSMRA80A15H501I": true}
	got, err := Disambiguate("RSSMRA80A15H501I", func(code string) bool { return issued[code] })
	require.NoError(t, err)
	// Rightmost digit of the core substituted, checksum recomputed.
	require.Equal(t, "RSSMRA80A15H50MA", got)
	require.NoError(t, Validate(got))
}

func TestDisambiguateCascade(t *testing.T) {
	issued := map[string]bool{"RSSMRA80A15H501I": true}
	var last string
	// Exhaust the first three variants one collision at a time.
	for i := 0; i < 3; i++ {
		got, err := Disambiguate("RSSMRA80A15H501I", func(code string) bool { return issued[code] })
		require.NoError(t, err)
		require.False(t, issued[got])
		require.NoError(t, Validate(got))
		require.Equal(t, "RSSMRA80A15H501I"[:9], got[:9])
		issued[got] = true
		last = got
	}
	require.NotEmpty(t, last)
}

func TestDisambiguateExhausted(t *testing.T) {
	_, err := Disambiguate("RSSMRA80A15H501I", func(string) bool { return true })
	require.ErrorIs(t, err, ErrCodeSpaceExhausted)
}

func TestDisambiguateRejectsMalformedCandidate(t *testing.T) {
	_, err := Disambiguate("not-a-code", func(string) bool { return false })
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestOmocodiaTable(t *testing.T) {
	require.Equal(t, "LMNPQRSTUV", string(omocodiaLetters[:]))
}
