package fiscalcode

// TakenFunc reports whether a code has already been issued. It is supplied
// by the storage layer and is only consulted, never updated, here.
type TakenFunc func(code string) bool

// omocodiaLetters maps digit 0-9 to its substitution letter.
var omocodiaLetters = [10]byte{'L', 'M', 'N', 'P', 'Q', 'R', 'S', 'T', 'U', 'V'}

// Disambiguate resolves collisions for a candidate code. Digits in the
// fifteen-character core are substituted right to left, one more per
// collision, with the check character recomputed after each substitution.
// A nil predicate returns the candidate unchanged.
func Disambiguate(candidate string, taken TakenFunc) (string, error) {
	if err := Validate(candidate); err != nil {
		return "", err
	}
	if taken == nil || !taken(candidate) {
		return candidate, nil
	}
	core := []byte(candidate[:15])
	for pos := 14; pos >= 0; pos-- {
		c := core[pos]
		if c < '0' || c > '9' {
			continue
		}
		core[pos] = omocodiaLetters[c-'0']
		check, err := Checksum(string(core))
		if err != nil {
			return "", err
		}
		next := string(core) + string(check)
		if !taken(next) {
			return next, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
