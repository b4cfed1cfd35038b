package guests

import (
	"context"
	"time"

	"github.com/ancora-cas/ancora-cas/internal/fiscalcode"
	"github.com/ancora-cas/ancora-cas/internal/shared"
)

// Guest is one registered person. Date fields with a zero value are stored
// as NULL.
type Guest struct {
	ID               int64
	LastName         string
	FirstName        string
	Sex              fiscalcode.Sex
	BirthPlace       string
	Province         string
	BirthDate        time.Time
	ForeignBirth     bool
	FiscalCode       string
	CountryCode      string
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
	CustomFields     []CustomField
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CustomField is a free-form name/value pair attached to a guest.
type CustomField struct {
	ID    int64
	Name  string
	Value string
}

// ListFilters drives the archive listing.
type ListFilters struct {
	Page    int
	PerPage int
	Search  string
}

// ExportFilters narrows the export dataset.
type ExportFilters struct {
	BirthPlace    string
	AgeFilter     string // "", "adult" or "minor"
	Room          string
	EntryDateFrom time.Time
	EntryDateTo   time.Time
}

// Repository defines persistence operations for the guest registry.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Guest, int, error)
	Get(ctx context.Context, id int64) (*Guest, error)
	Create(ctx context.Context, guest *Guest) (int64, error)
	Update(ctx context.Context, guest *Guest) error
	Delete(ctx context.Context, id int64) error

	FiscalCodeExists(ctx context.Context, code string) (bool, error)
	Export(ctx context.Context, filters ExportFilters) ([]Guest, error)
	DistinctBirthPlaces(ctx context.Context) ([]string, error)
	DistinctRooms(ctx context.Context) ([]string, error)

	CountAll(ctx context.Context) (int, error)
	ExpiringPermits(ctx context.Context, within time.Duration) ([]Guest, error)
	Latest(ctx context.Context, limit int) ([]Guest, error)
}

// Auditor records registry mutations; *shared.AuditLogger satisfies it.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// PermitValidity is added to the issue date to derive the expiry, matching
// the six-month permit of stay.
const PermitValidity = 180 * 24 * time.Hour
