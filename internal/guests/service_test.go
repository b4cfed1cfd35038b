package guests

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ancora-cas/ancora-cas/internal/fiscalcode"
	"github.com/ancora-cas/ancora-cas/internal/shared"
)

type memoryRepo struct {
	nextID    int64
	guests    map[int64]*Guest
	failCodes map[string]int
	committed map[string]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		nextID:    1,
		guests:    map[int64]*Guest{},
		failCodes: map[string]int{},
		committed: map[string]bool{},
	}
}

func (m *memoryRepo) List(_ context.Context, filters ListFilters) ([]Guest, int, error) {
	out := []Guest{}
	for _, g := range m.guests {
		if filters.Search != "" && !strings.Contains(strings.ToLower(g.LastName), strings.ToLower(filters.Search)) {
			continue
		}
		out = append(out, *g)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (*Guest, error) {
	g, ok := m.guests[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *g
	return &copied, nil
}

func (m *memoryRepo) Create(_ context.Context, guest *Guest) (int64, error) {
	if n := m.failCodes[guest.FiscalCode]; n > 0 {
		m.failCodes[guest.FiscalCode] = n - 1
		// The concurrent writer's row is visible from now on.
		m.committed[guest.FiscalCode] = true
		return 0, shared.ErrDuplicateFiscalCode
	}
	for _, g := range m.guests {
		if guest.FiscalCode != "" && g.FiscalCode == guest.FiscalCode {
			return 0, shared.ErrDuplicateFiscalCode
		}
	}
	id := m.nextID
	m.nextID++
	copied := *guest
	copied.ID = id
	m.guests[id] = &copied
	guest.ID = id
	return id, nil
}

func (m *memoryRepo) Update(_ context.Context, guest *Guest) error {
	if _, ok := m.guests[guest.ID]; !ok {
		return shared.ErrNotFound
	}
	copied := *guest
	m.guests[guest.ID] = &copied
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.guests[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.guests, id)
	return nil
}

func (m *memoryRepo) FiscalCodeExists(_ context.Context, code string) (bool, error) {
	if m.committed[code] {
		return true, nil
	}
	for _, g := range m.guests {
		if g.FiscalCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) Export(_ context.Context, filters ExportFilters) ([]Guest, error) {
	out := []Guest{}
	for _, g := range m.guests {
		if filters.Room != "" && g.RoomNumber != filters.Room {
			continue
		}
		if filters.BirthPlace != "" && g.BirthPlace != filters.BirthPlace {
			continue
		}
		out = append(out, *g)
	}
	return out, nil
}

func (m *memoryRepo) DistinctBirthPlaces(context.Context) ([]string, error) { return nil, nil }
func (m *memoryRepo) DistinctRooms(context.Context) ([]string, error)      { return nil, nil }

func (m *memoryRepo) CountAll(context.Context) (int, error) { return len(m.guests), nil }

func (m *memoryRepo) ExpiringPermits(_ context.Context, within time.Duration) ([]Guest, error) {
	deadline := time.Now().Add(within)
	out := []Guest{}
	for _, g := range m.guests {
		if !g.PermitExpiry.IsZero() && g.PermitExpiry.Before(deadline) && g.PermitExpiry.After(time.Now()) {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *memoryRepo) Latest(_ context.Context, limit int) ([]Guest, error) {
	out := []Guest{}
	for _, g := range m.guests {
		out = append(out, *g)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type memoryAudit struct {
	records []shared.AuditLog
}

func (a *memoryAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.records = append(a.records, log)
	return nil
}

func newTestService(t *testing.T, repo *memoryRepo) (*Service, *memoryAudit) {
	t.Helper()
	table, err := fiscalcode.LoadPlaceTable()
	require.NoError(t, err)
	audit := &memoryAudit{}
	return NewService(repo, fiscalcode.NewCalculator(table), audit, nil), audit
}

func baseGuest() *Guest {
	return &Guest{
		LastName:   "Rossi",
		FirstName:  "Mario",
		Sex:        fiscalcode.Male,
		BirthDate:  time.Date(1980, time.January, 15, 0, 0, 0, 0, time.UTC),
		BirthPlace: "Roma",
	}
}

func TestCreateComputesFiscalCode(t *testing.T) {
	repo := newMemoryRepo()
	svc, audit := newTestService(t, repo)

	guest := baseGuest()
	id, err := svc.Create(context.Background(), guest)
	require.NoError(t, err)
	require.Equal(t, "RSSMRA80A15H501I", guest.FiscalCode)

	stored, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, guest.FiscalCode, stored.FiscalCode)

	require.Len(t, audit.records, 1)
	require.Equal(t, "guest.create", audit.records[0].Action)
}

func TestCreateResolvesOmocodia(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(t, repo)

	first := baseGuest()
	_, err := svc.Create(context.Background(), first)
	require.NoError(t, err)

	twin := baseGuest()
	_, err = svc.Create(context.Background(), twin)
	require.NoError(t, err)
	require.NotEqual(t, first.FiscalCode, twin.FiscalCode)
	require.Equal(t, first.FiscalCode[:13], twin.FiscalCode[:13])
	require.NoError(t, fiscalcode.Validate(twin.FiscalCode))
}

func TestCreateRetriesAfterUniqueViolation(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(t, repo)

	// The first insert attempt races with a concurrent writer and hits the
	// unique constraint even though the pre-check saw the code as free.
	repo.failCodes["RSSMRA80A15H501I"] = 1

	guest := baseGuest()
	_, err := svc.Create(context.Background(), guest)
	require.NoError(t, err)
	require.NotEqual(t, "RSSMRA80A15H501I", guest.FiscalCode)
	require.NoError(t, fiscalcode.Validate(guest.FiscalCode))
}

func TestCreateDerivesPermitExpiry(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(t, repo)

	guest := baseGuest()
	guest.PermitDate = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), guest)
	require.NoError(t, err)
	require.Equal(t, guest.PermitDate.Add(PermitValidity), guest.PermitExpiry)
}

func TestCreateUnknownPlaceLeavesCodeEmpty(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(t, repo)

	guest := baseGuest()
	guest.BirthPlace = "Atlantide"
	_, err := svc.Create(context.Background(), guest)
	require.NoError(t, err)
	require.Empty(t, guest.FiscalCode)
}

func TestCreateRejectsInvalidManualCode(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(t, repo)

	guest := baseGuest()
	guest.FiscalCode = "RSSMRA80A15H501X"
	_, err := svc.Create(context.Background(), guest)
	require.ErrorIs(t, err, fiscalcode.ErrChecksumMismatch)
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(t, repo)

	guest := baseGuest()
	guest.LastName = "  "
	_, err := svc.Create(context.Background(), guest)
	require.ErrorIs(t, err, fiscalcode.ErrEmptyName)

	guest = baseGuest()
	guest.BirthDate = time.Time{}
	_, err = svc.Create(context.Background(), guest)
	require.ErrorIs(t, err, fiscalcode.ErrInvalidDate)
}

func TestUpdateRecordsAudit(t *testing.T) {
	repo := newMemoryRepo()
	svc, audit := newTestService(t, repo)

	guest := baseGuest()
	id, err := svc.Create(context.Background(), guest)
	require.NoError(t, err)

	guest.RoomNumber = "12"
	require.NoError(t, svc.Update(context.Background(), guest))

	stored, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "12", stored.RoomNumber)
	require.Equal(t, "guest.update", audit.records[len(audit.records)-1].Action)
}

func TestUpdateKeepsStoredExitDate(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(t, repo)

	guest := baseGuest()
	guest.ExitDate = time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	id, err := svc.Create(context.Background(), guest)
	require.NoError(t, err)

	// An edit submits only the form fields, so the exit date arrives zero.
	edited := baseGuest()
	edited.ID = id
	edited.RoomNumber = "7"
	require.NoError(t, svc.Update(context.Background(), edited))

	stored, err := repo.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "7", stored.RoomNumber)
	require.False(t, stored.ExitDate.IsZero())
	require.Equal(t, guest.ExitDate, stored.ExitDate)
}

func TestDeleteMissingGuest(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(t, repo)

	err := svc.Delete(context.Background(), 42)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestComputeFiscalCodeService(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(t, repo)

	code, err := svc.ComputeFiscalCode(context.Background(), fiscalcode.PersonInput{
		LastName:   "Bianchi",
		FirstName:  "Laura",
		Sex:        fiscalcode.Female,
		BirthDate:  time.Date(1985, time.December, 8, 0, 0, 0, 0, time.UTC),
		BirthPlace: "Milano",
	})
	require.NoError(t, err)
	require.Equal(t, "BNCLRA85T48F205R", code)
}
