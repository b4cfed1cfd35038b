package fiscalcode_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ancora-cas/ancora-cas/internal/fiscalcode"
)

func newCalculator(t *testing.T) *fiscalcode.Calculator {
	t.Helper()
	table, err := fiscalcode.LoadPlaceTable()
	require.NoError(t, err)
	return fiscalcode.NewCalculator(table)
}

func TestComputeMarioRossi(t *testing.T) {
	calc := newCalculator(t)
	code, err := calc.Compute(fiscalcode.PersonInput{
		LastName:   "ROSSI",
		FirstName:  "MARIO",
		Sex:        fiscalcode.Male,
		BirthDate:  time.Date(1980, time.January, 15, 0, 0, 0, 0, time.UTC),
		BirthPlace: "ROMA",
	})
	require.NoError(t, err)
	require.Equal(t, "RSSMRA80A15H501I", code)
}

func TestComputeFemaleDayShift(t *testing.T) {
	calc := newCalculator(t)
	in := fiscalcode.PersonInput{
		LastName:   "ROSSI",
		FirstName:  "MARIO",
		Sex:        fiscalcode.Female,
		BirthDate:  time.Date(1980, time.January, 15, 0, 0, 0, 0, time.UTC),
		BirthPlace: "ROMA",
	}
	code, err := calc.Compute(in)
	require.NoError(t, err)
	require.Equal(t, "RSSMRA80A55H501M", code)

	male, err := calc.Compute(fiscalcode.PersonInput{
		LastName: in.LastName, FirstName: in.FirstName, Sex: fiscalcode.Male,
		BirthDate: in.BirthDate, BirthPlace: in.BirthPlace,
	})
	require.NoError(t, err)
	// Only the day field and the check character differ.
	require.Equal(t, male[:9], code[:9])
	require.Equal(t, male[11:15], code[11:15])
	require.Equal(t, "55", code[9:11])
	require.Equal(t, "15", male[9:11])
}

func TestComputeForeignBirth(t *testing.T) {
	calc := newCalculator(t)
	code, err := calc.Compute(fiscalcode.PersonInput{
		LastName:       "DIALLO",
		FirstName:      "AMADOU",
		Sex:            fiscalcode.Male,
		BirthDate:      time.Date(1992, time.September, 3, 0, 0, 0, 0, time.UTC),
		BirthPlace:     "Senegal",
		IsForeignBirth: true,
	})
	require.NoError(t, err)
	require.Equal(t, "Z343", code[11:15])
	require.NoError(t, fiscalcode.Validate(code))
}

func TestComputeRoundTrip(t *testing.T) {
	calc := newCalculator(t)
	pattern := regexp.MustCompile(`^[A-Z0-9]{16}$`)
	inputs := []fiscalcode.PersonInput{
		{LastName: "Esposito", FirstName: "Anna", Sex: fiscalcode.Female, BirthDate: time.Date(1975, time.March, 31, 0, 0, 0, 0, time.UTC), BirthPlace: "Napoli"},
		{LastName: "Hu", FirstName: "Li", Sex: fiscalcode.Male, BirthDate: time.Date(1988, time.October, 9, 0, 0, 0, 0, time.UTC), BirthPlace: "Cina", IsForeignBirth: true},
		{LastName: "De Luca", FirstName: "Gianfranco", Sex: fiscalcode.Male, BirthDate: time.Date(2001, time.December, 25, 0, 0, 0, 0, time.UTC), BirthPlace: "Reggio di Calabria"},
		{LastName: "Müller", FirstName: "Eva", Sex: fiscalcode.Female, BirthDate: time.Date(1969, time.July, 1, 0, 0, 0, 0, time.UTC), BirthPlace: "Germania", IsForeignBirth: true},
	}
	for _, in := range inputs {
		code, err := calc.Compute(in)
		require.NoError(t, err, in.LastName)
		require.Regexp(t, pattern, code)
		require.NoError(t, fiscalcode.Validate(code), code)
	}
}

func TestComputeErrors(t *testing.T) {
	calc := newCalculator(t)
	base := fiscalcode.PersonInput{
		LastName:   "ROSSI",
		FirstName:  "MARIO",
		Sex:        fiscalcode.Male,
		BirthDate:  time.Date(1980, time.January, 15, 0, 0, 0, 0, time.UTC),
		BirthPlace: "ROMA",
	}

	in := base
	in.LastName = " "
	_, err := calc.Compute(in)
	require.ErrorIs(t, err, fiscalcode.ErrEmptyName)

	in = base
	in.BirthDate = time.Time{}
	_, err = calc.Compute(in)
	require.ErrorIs(t, err, fiscalcode.ErrInvalidDate)

	in = base
	in.BirthPlace = "Springfield"
	_, err = calc.Compute(in)
	require.ErrorIs(t, err, fiscalcode.ErrUnknownPlace)
}

func TestComputeUniqueOmocodia(t *testing.T) {
	calc := newCalculator(t)
	in := fiscalcode.PersonInput{
		LastName:   "ROSSI",
		FirstName:  "MARIO",
		Sex:        fiscalcode.Male,
		BirthDate:  time.Date(1980, time.January, 15, 0, 0, 0, 0, time.UTC),
		BirthPlace: "ROMA",
	}

	first, err := calc.ComputeUnique(in, func(string) bool { return false })
	require.NoError(t, err)

	// A second person colliding on the same core receives a substituted code.
	second, err := calc.ComputeUnique(in, func(code string) bool { return code == first })
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.NoError(t, fiscalcode.Validate(second))
	require.Equal(t, first[:13], second[:13])
}

func TestComputeUniqueWithoutPredicate(t *testing.T) {
	calc := newCalculator(t)
	in := fiscalcode.PersonInput{
		LastName:   "ROSSI",
		FirstName:  "MARIO",
		Sex:        fiscalcode.Male,
		BirthDate:  time.Date(1980, time.January, 15, 0, 0, 0, 0, time.UTC),
		BirthPlace: "ROMA",
	}
	code, err := calc.ComputeUnique(in, nil)
	require.NoError(t, err)
	require.Equal(t, "RSSMRA80A15H501I", code)
}

func TestParseSex(t *testing.T) {
	sex, ok := fiscalcode.ParseSex("f")
	require.True(t, ok)
	require.Equal(t, fiscalcode.Female, sex)

	sex, ok = fiscalcode.ParseSex(" M ")
	require.True(t, ok)
	require.Equal(t, fiscalcode.Male, sex)

	_, ok = fiscalcode.ParseSex("x")
	require.False(t, ok)
}
