package fiscalcode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksumKnownVectors(t *testing.T) {
	cases := []struct {
		core string
		want byte
	}{
		{"RSSMRA80A01H501", 'U'},
		{"RSSMRA80A15H501", 'I'},
		{"RSSMRA80A55H501", 'M'},
		{"BNCLRA85T48F205", 'R'},
	}
	for _, tc := range cases {
		got, err := Checksum(tc.core)
		require.NoError(t, err, tc.core)
		require.Equal(t, string(tc.want), string(got), tc.core)
	}
}

func TestChecksumDeterministic(t *testing.T) {
	first, err := Checksum("RSSMRA80A15H501")
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		again, err := Checksum("RSSMRA80A15H501")
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestChecksumRejectsBadCore(t *testing.T) {
	_, err := Checksum("SHORT")
	require.ErrorIs(t, err, ErrInvalidFormat)
	_, err = Checksum("rssmra80a15h501")
	require.ErrorIs(t, err, ErrInvalidFormat)
}

func TestValidateOk(t *testing.T) {
	require.NoError(t, Validate("RSSMRA80A01H501U"))
	require.NoError(t, Validate("RSSMRA80A15H501I"))
}

func TestValidateFormatErrors(t *testing.T) {
	cases := []string{
		"RSSMRA80A15H501",   // 15 chars
		"RSSMRA80A15H501IX", // 17 chars
		"rssMRA80A15H501I",  // lowercase
		"RSSMRA80A15H50*I",  // symbol
		"RSSMRA80Z15H501I",  // invalid month letter
		"",
	}
	for _, code := range cases {
		require.ErrorIs(t, Validate(code), ErrInvalidFormat, code)
	}
}

func TestValidateChecksumMismatch(t *testing.T) {
	require.ErrorIs(t, Validate("RSSMRA80A15H501A"), ErrChecksumMismatch)
}

// Corrupting any single core character must be caught unless the
// substitution happens to be value-neutral for its position.
func TestValidateDetectsSingleSubstitution(t *testing.T) {
	const code = "RSSMRA80A15H501I"
	symbols := "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	for pos := 0; pos < 15; pos++ {
		for i := 0; i < len(symbols); i++ {
			sub := symbols[i]
			if sub == code[pos] {
				continue
			}
			if pos == 8 && !validMonthLetter(sub) {
				continue // shape violation, reported as format error instead
			}
			var neutral bool
			if pos%2 == 0 {
				neutral = oddValues[symbolIndex(sub)] == oddValues[symbolIndex(code[pos])]
			} else {
				neutral = evenValues[symbolIndex(sub)] == evenValues[symbolIndex(code[pos])]
			}
			if neutral {
				continue
			}
			mutated := code[:pos] + string(sub) + code[pos+1:]
			require.ErrorIs(t, Validate(mutated), ErrChecksumMismatch, mutated)
		}
	}
}
