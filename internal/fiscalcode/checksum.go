package fiscalcode

// Positional substitution values for the check character, indexed by symbol
// order 0-9 then A-Z. Characters in odd positions (1-based) use oddValues,
// characters in even positions use evenValues.
var oddValues = [36]int{
	1, 0, 5, 7, 9, 13, 15, 17, 19, 21,
	1, 0, 5, 7, 9, 13, 15, 17, 19, 21, 2, 4, 18, 20,
	11, 3, 6, 8, 12, 14, 16, 10, 22, 25, 24, 23,
}

var evenValues = [36]int{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9,
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13,
	14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25,
}

func symbolIndex(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'Z':
		return 10 + int(c-'A')
	}
	return -1
}

// Checksum computes the check character for a fifteen-character core.
// The core must already be uppercase alphanumeric.
func Checksum(core string) (byte, error) {
	if len(core) != 15 {
		return 0, ErrInvalidFormat
	}
	sum := 0
	for i := 0; i < 15; i++ {
		idx := symbolIndex(core[i])
		if idx < 0 {
			return 0, ErrInvalidFormat
		}
		if i%2 == 0 { // position i+1 is odd
			sum += oddValues[idx]
		} else {
			sum += evenValues[idx]
		}
	}
	return byte('A' + sum%26), nil
}

func validMonthLetter(c byte) bool {
	for _, m := range monthLetters {
		if c == m {
			return true
		}
	}
	return false
}

// Validate checks the overall shape of a sixteen-character code and
// recomputes its check character. Shape violations yield ErrInvalidFormat;
// a well-formed code with the wrong final character yields
// ErrChecksumMismatch.
func Validate(code string) error {
	if len(code) != 16 {
		return ErrInvalidFormat
	}
	for i := 0; i < 16; i++ {
		if symbolIndex(code[i]) < 0 {
			return ErrInvalidFormat
		}
	}
	if !validMonthLetter(code[8]) {
		return ErrInvalidFormat
	}
	check, err := Checksum(code[:15])
	if err != nil {
		return err
	}
	if check != code[15] {
		return ErrChecksumMismatch
	}
	return nil
}
