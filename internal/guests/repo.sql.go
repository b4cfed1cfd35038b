package guests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ancora-cas/ancora-cas/internal/fiscalcode"
	"github.com/ancora-cas/ancora-cas/internal/platform/db"
	"github.com/ancora-cas/ancora-cas/internal/shared"
)

const guestColumns = `id, last_name, first_name, sex, birth_place, province, birth_date, foreign_birth,
fiscal_code, country_code, permit_number, permit_date, permit_expiry, health_card, health_card_expiry,
entry_date, exit_date, check_in_date, check_out_date, room_number, floor, family_relations, created_at, updated_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// List returns one page of guests plus the filtered total.
func (r *PGRepository) List(ctx context.Context, filters ListFilters) ([]Guest, int, error) {
	if r == nil {
		return nil, 0, errors.New("guests repository not initialised")
	}
	perPage := filters.PerPage
	if perPage <= 0 {
		perPage = 25
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	search := strings.TrimSpace(filters.Search)
	pattern := "%" + search + "%"

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM guests
WHERE $1 = '' OR last_name ILIKE $2 OR first_name ILIKE $2 OR fiscal_code ILIKE $2`, search, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM guests
WHERE $1 = '' OR last_name ILIKE $2 OR first_name ILIKE $2 OR fiscal_code ILIKE $2
ORDER BY last_name ASC, first_name ASC, id ASC
LIMIT $3 OFFSET $4`, guestColumns), search, pattern, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	guests, err := scanGuests(rows)
	if err != nil {
		return nil, 0, err
	}
	return guests, total, nil
}

// Get fetches a guest and its custom fields.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Guest, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM guests WHERE id = $1`, guestColumns), id)
	guest, err := scanGuest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	fieldRows, err := r.pool.Query(ctx, `SELECT id, field_name, field_value FROM custom_fields WHERE guest_id = $1 ORDER BY id ASC`, id)
	if err != nil {
		return nil, err
	}
	defer fieldRows.Close()
	for fieldRows.Next() {
		var cf CustomField
		if err := fieldRows.Scan(&cf.ID, &cf.Name, &cf.Value); err != nil {
			return nil, err
		}
		guest.CustomFields = append(guest.CustomFields, cf)
	}
	if err := fieldRows.Err(); err != nil {
		return nil, err
	}
	return guest, nil
}

// Create inserts the guest and its custom fields in one transaction.
func (r *PGRepository) Create(ctx context.Context, guest *Guest) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO guests (last_name, first_name, sex, birth_place, province, birth_date, foreign_birth,
fiscal_code, country_code, permit_number, permit_date, permit_expiry, health_card, health_card_expiry,
entry_date, exit_date, check_in_date, check_out_date, room_number, floor, family_relations, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,COALESCE($15, NOW()),$16,$17,$18,$19,$20,$21,NOW(),NOW())
RETURNING id`,
			guest.LastName, guest.FirstName, guest.Sex.String(), guest.BirthPlace, guest.Province, guest.BirthDate, guest.ForeignBirth,
			nullString(guest.FiscalCode), guest.CountryCode, guest.PermitNumber, nullTime(guest.PermitDate), nullTime(guest.PermitExpiry),
			guest.HealthCard, nullTime(guest.HealthCardExpiry), nullTime(guest.EntryDate), nullTime(guest.ExitDate),
			nullTime(guest.CheckInDate), nullTime(guest.CheckOutDate), guest.RoomNumber, guest.Floor, guest.FamilyRelations).Scan(&id)
		if err != nil {
			return mapUniqueViolation(err)
		}
		return insertCustomFields(ctx, tx, id, guest.CustomFields)
	})
	if err != nil {
		return 0, err
	}
	guest.ID = id
	return id, nil
}

// Update rewrites the guest row and replaces its custom fields.
func (r *PGRepository) Update(ctx context.Context, guest *Guest) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE guests SET last_name=$1, first_name=$2, sex=$3, birth_place=$4, province=$5,
birth_date=$6, foreign_birth=$7, fiscal_code=$8, country_code=$9, permit_number=$10, permit_date=$11, permit_expiry=$12,
health_card=$13, health_card_expiry=$14, entry_date=$15, exit_date=$16, check_in_date=$17, check_out_date=$18,
room_number=$19, floor=$20, family_relations=$21, updated_at=NOW()
WHERE id=$22`,
			guest.LastName, guest.FirstName, guest.Sex.String(), guest.BirthPlace, guest.Province,
			guest.BirthDate, guest.ForeignBirth, nullString(guest.FiscalCode), guest.CountryCode, guest.PermitNumber,
			nullTime(guest.PermitDate), nullTime(guest.PermitExpiry), guest.HealthCard, nullTime(guest.HealthCardExpiry),
			nullTime(guest.EntryDate), nullTime(guest.ExitDate), nullTime(guest.CheckInDate), nullTime(guest.CheckOutDate),
			guest.RoomNumber, guest.Floor, guest.FamilyRelations, guest.ID)
		if err != nil {
			return mapUniqueViolation(err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}

		if _, err := tx.Exec(ctx, `DELETE FROM custom_fields WHERE guest_id = $1`, guest.ID); err != nil {
			return err
		}
		return insertCustomFields(ctx, tx, guest.ID, guest.CustomFields)
	})
}

// Delete removes the guest; custom fields cascade.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM guests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FiscalCodeExists is the membership predicate consulted during omocodia
// disambiguation.
func (r *PGRepository) FiscalCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM guests WHERE fiscal_code = $1)`, code).Scan(&exists)
	return exists, err
}

// Export returns guests matching the export filters, custom fields included.
func (r *PGRepository) Export(ctx context.Context, filters ExportFilters) ([]Guest, error) {
	adultCutoff := time.Now().AddDate(-18, 0, 0)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM guests
WHERE ($1 = '' OR birth_place = $1)
  AND ($2 = '' OR room_number = $2)
  AND ($3 = '' OR ($3 = 'adult' AND birth_date <= $4) OR ($3 = 'minor' AND birth_date > $4))
  AND ($5::date IS NULL OR entry_date >= $5)
  AND ($6::date IS NULL OR entry_date <= $6)
ORDER BY last_name ASC, first_name ASC`, guestColumns),
		filters.BirthPlace, filters.Room, filters.AgeFilter, adultCutoff,
		nullTime(filters.EntryDateFrom), nullTime(filters.EntryDateTo))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	guests, err := scanGuests(rows)
	if err != nil {
		return nil, err
	}

	for i := range guests {
		fieldRows, err := r.pool.Query(ctx, `SELECT id, field_name, field_value FROM custom_fields WHERE guest_id = $1 ORDER BY id ASC`, guests[i].ID)
		if err != nil {
			return nil, err
		}
		for fieldRows.Next() {
			var cf CustomField
			if err := fieldRows.Scan(&cf.ID, &cf.Name, &cf.Value); err != nil {
				fieldRows.Close()
				return nil, err
			}
			guests[i].CustomFields = append(guests[i].CustomFields, cf)
		}
		if err := fieldRows.Err(); err != nil {
			fieldRows.Close()
			return nil, err
		}
		fieldRows.Close()
	}
	return guests, nil
}

// DistinctBirthPlaces lists birth places present in the registry.
func (r *PGRepository) DistinctBirthPlaces(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT birth_place FROM guests WHERE birth_place <> '' ORDER BY birth_place`)
}

// DistinctRooms lists rooms present in the registry.
func (r *PGRepository) DistinctRooms(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT room_number FROM guests WHERE room_number <> '' ORDER BY room_number`)
}

func (r *PGRepository) distinct(ctx context.Context, query string) ([]string, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// CountAll returns the registry size.
func (r *PGRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM guests`).Scan(&total)
	return total, err
}

// ExpiringPermits lists guests whose permit expires within the window.
func (r *PGRepository) ExpiringPermits(ctx context.Context, within time.Duration) ([]Guest, error) {
	deadline := time.Now().Add(within)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM guests
WHERE permit_expiry IS NOT NULL AND permit_expiry >= CURRENT_DATE AND permit_expiry <= $1
ORDER BY permit_expiry ASC`, guestColumns), deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGuests(rows)
}

// Latest returns the most recently arrived guests.
func (r *PGRepository) Latest(ctx context.Context, limit int) ([]Guest, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM guests
ORDER BY entry_date DESC NULLS LAST, id DESC LIMIT $1`, guestColumns), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGuests(rows)
}

func insertCustomFields(ctx context.Context, tx pgx.Tx, guestID int64, fields []CustomField) error {
	for _, cf := range fields {
		if cf.Name == "" || cf.Value == "" {
			continue
		}
		if _, err := tx.Exec(ctx, `INSERT INTO custom_fields (guest_id, field_name, field_value) VALUES ($1,$2,$3)`, guestID, cf.Name, cf.Value); err != nil {
			return err
		}
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicateFiscalCode
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuest(row rowScanner) (*Guest, error) {
	var g Guest
	var sex string
	var fiscalCode pgtype.Text
	var permitDate, permitExpiry, healthExpiry pgtype.Date
	var entryDate, exitDate, checkInDate, checkOutDate pgtype.Date
	if err := row.Scan(&g.ID, &g.LastName, &g.FirstName, &sex, &g.BirthPlace, &g.Province, &g.BirthDate, &g.ForeignBirth,
		&fiscalCode, &g.CountryCode, &g.PermitNumber, &permitDate, &permitExpiry, &g.HealthCard, &healthExpiry,
		&entryDate, &exitDate, &checkInDate, &checkOutDate, &g.RoomNumber, &g.Floor, &g.FamilyRelations,
		&g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	if parsed, ok := fiscalcode.ParseSex(sex); ok {
		g.Sex = parsed
	}
	g.FiscalCode = fiscalCode.String
	g.PermitDate = dateValue(permitDate)
	g.PermitExpiry = dateValue(permitExpiry)
	g.HealthCardExpiry = dateValue(healthExpiry)
	g.EntryDate = dateValue(entryDate)
	g.ExitDate = dateValue(exitDate)
	g.CheckInDate = dateValue(checkInDate)
	g.CheckOutDate = dateValue(checkOutDate)
	return &g, nil
}

func scanGuests(rows pgx.Rows) ([]Guest, error) {
	guests := []Guest{}
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return guests, nil
}

func dateValue(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	return d.Time
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ Repository = (*PGRepository)(nil)
