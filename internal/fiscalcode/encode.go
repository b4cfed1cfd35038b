package fiscalcode

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// monthLetters maps month 1..12 to its code letter.
var monthLetters = [...]byte{'A', 'B', 'C', 'D', 'E', 'H', 'L', 'M', 'P', 'R', 'S', 'T'}

var stripDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeLetters uppercases the input, strips diacritics and drops
// everything outside A-Z.
func normalizeLetters(s string) string {
	folded, _, err := transform.String(stripDiacritics, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToUpper(folded) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isVowel(c byte) bool {
	switch c {
	case 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}

func splitLetters(name string) (consonants, vowels []byte) {
	for i := 0; i < len(name); i++ {
		if isVowel(name[i]) {
			vowels = append(vowels, name[i])
		} else {
			consonants = append(consonants, name[i])
		}
	}
	return consonants, vowels
}

func padCode(code []byte) string {
	for len(code) < 3 {
		code = append(code, 'X')
	}
	return string(code[:3])
}

// encodeSurname derives the three-letter surname code: consonants first,
// vowels next, X padding last.
func encodeSurname(surname string) (string, error) {
	letters := normalizeLetters(surname)
	if letters == "" {
		return "", ErrEmptyName
	}
	consonants, vowels := splitLetters(letters)
	return padCode(append(consonants, vowels...)), nil
}

// encodeGivenName derives the three-letter given-name code. With four or
// more consonants the second one is skipped.
func encodeGivenName(name string) (string, error) {
	letters := normalizeLetters(name)
	if letters == "" {
		return "", ErrEmptyName
	}
	consonants, vowels := splitLetters(letters)
	if len(consonants) >= 4 {
		return string([]byte{consonants[0], consonants[2], consonants[3]}), nil
	}
	return padCode(append(consonants, vowels...)), nil
}

// encodeBirth derives the five characters covering year, month and
// sex-adjusted day.
func encodeBirth(birthDate time.Time, sex Sex) (string, error) {
	if birthDate.IsZero() || birthDate.After(time.Now()) {
		return "", ErrInvalidDate
	}
	day := birthDate.Day()
	if sex == Female {
		day += 40
	}
	out := make([]byte, 0, 5)
	year := birthDate.Year() % 100
	out = append(out, byte('0'+year/10), byte('0'+year%10))
	out = append(out, monthLetters[birthDate.Month()-1])
	out = append(out, byte('0'+day/10), byte('0'+day%10))
	return string(out), nil
}
