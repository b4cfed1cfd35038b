package guests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ancora-cas/ancora-cas/internal/fiscalcode"
	"github.com/ancora-cas/ancora-cas/internal/shared"
)

// maxCodeRetries bounds how many times a save is retried after a fiscal
// code unique violation raced with a concurrent insert.
const maxCodeRetries = 3

// Service coordinates registry operations.
type Service struct {
	repo   Repository
	calc   *fiscalcode.Calculator
	audit  Auditor
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo Repository, calc *fiscalcode.Calculator, audit Auditor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, calc: calc, audit: audit, logger: logger}
}

// List returns one archive page.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Guest, int, error) {
	return s.repo.List(ctx, filters)
}

// Get fetches a single guest.
func (s *Service) Get(ctx context.Context, id int64) (*Guest, error) {
	return s.repo.Get(ctx, id)
}

// Create validates, completes and stores a new guest. An empty fiscal code
// is computed from the personal data; permit expiry is derived from the
// permit issue date when absent.
func (s *Service) Create(ctx context.Context, guest *Guest) (int64, error) {
	if err := s.prepare(ctx, guest); err != nil {
		return 0, err
	}
	var (
		id  int64
		err error
	)
	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		id, err = s.repo.Create(ctx, guest)
		if !errors.Is(err, shared.ErrDuplicateFiscalCode) {
			break
		}
		if rerr := s.recomputeCode(ctx, guest); rerr != nil {
			return 0, rerr
		}
	}
	if err != nil {
		return 0, err
	}
	s.record(ctx, "guest.create", id, guest)
	return id, nil
}

// Update applies edits to an existing guest. The edit form does not
// expose the exit date, so a zero value keeps whatever is stored.
func (s *Service) Update(ctx context.Context, guest *Guest) error {
	stored, err := s.repo.Get(ctx, guest.ID)
	if err != nil {
		return err
	}
	if guest.ExitDate.IsZero() {
		guest.ExitDate = stored.ExitDate
	}
	if err := s.prepare(ctx, guest); err != nil {
		return err
	}
	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		err = s.repo.Update(ctx, guest)
		if !errors.Is(err, shared.ErrDuplicateFiscalCode) {
			break
		}
		if rerr := s.recomputeCode(ctx, guest); rerr != nil {
			return rerr
		}
	}
	if err != nil {
		return err
	}
	s.record(ctx, "guest.update", guest.ID, guest)
	return nil
}

// Delete removes a guest from the registry.
func (s *Service) Delete(ctx context.Context, id int64) error {
	guest, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "guest.delete", id, guest)
	return nil
}

// Export returns the filtered dataset for CSV or PDF rendering.
func (s *Service) Export(ctx context.Context, filters ExportFilters) ([]Guest, error) {
	return s.repo.Export(ctx, filters)
}

// ExportOptions lists the filter values offered by the export form.
type ExportOptions struct {
	BirthPlaces []string
	Rooms       []string
}

// ExportFilterOptions gathers distinct values for the export form selects.
func (s *Service) ExportFilterOptions(ctx context.Context) (ExportOptions, error) {
	places, err := s.repo.DistinctBirthPlaces(ctx)
	if err != nil {
		return ExportOptions{}, err
	}
	rooms, err := s.repo.DistinctRooms(ctx)
	if err != nil {
		return ExportOptions{}, err
	}
	return ExportOptions{BirthPlaces: places, Rooms: rooms}, nil
}

// ComputeFiscalCode derives the fiscal code for the given personal data,
// resolving collisions against codes already in the registry.
func (s *Service) ComputeFiscalCode(ctx context.Context, input fiscalcode.PersonInput) (string, error) {
	if s.calc == nil {
		return "", errors.New("guests: fiscal code calculator not configured")
	}
	return s.calc.ComputeUnique(input, s.takenFunc(ctx))
}

// prepare normalises and completes a guest before persistence.
func (s *Service) prepare(ctx context.Context, guest *Guest) error {
	guest.LastName = strings.TrimSpace(guest.LastName)
	guest.FirstName = strings.TrimSpace(guest.FirstName)
	guest.FiscalCode = strings.ToUpper(strings.TrimSpace(guest.FiscalCode))
	if guest.LastName == "" || guest.FirstName == "" {
		return fiscalcode.ErrEmptyName
	}
	if guest.BirthDate.IsZero() {
		return fiscalcode.ErrInvalidDate
	}

	if guest.FiscalCode == "" && s.calc != nil && guest.BirthPlace != "" {
		code, err := s.ComputeFiscalCode(ctx, fiscalcode.PersonInput{
			LastName:       guest.LastName,
			FirstName:      guest.FirstName,
			Sex:            guest.Sex,
			BirthDate:      guest.BirthDate,
			BirthPlace:     guest.BirthPlace,
			IsForeignBirth: guest.ForeignBirth,
		})
		switch {
		case err == nil:
			guest.FiscalCode = code
		case errors.Is(err, fiscalcode.ErrUnknownPlace):
			// The registry accepts guests whose birth place is not in the
			// Belfiore table; the code is left for manual entry.
			s.logger.Warn("fiscal code not computed", "birth_place", guest.BirthPlace)
		default:
			return err
		}
	}
	if guest.FiscalCode != "" {
		if err := fiscalcode.Validate(guest.FiscalCode); err != nil {
			return err
		}
	}

	if guest.PermitExpiry.IsZero() && !guest.PermitDate.IsZero() {
		guest.PermitExpiry = guest.PermitDate.Add(PermitValidity)
	}
	return nil
}

// recomputeCode re-runs omocodia disambiguation after a unique violation.
func (s *Service) recomputeCode(ctx context.Context, guest *Guest) error {
	code, err := fiscalcode.Disambiguate(guest.FiscalCode, s.takenFunc(ctx))
	if err != nil {
		return err
	}
	if code == guest.FiscalCode {
		return shared.ErrDuplicateFiscalCode
	}
	s.logger.Info("fiscal code collision resolved", "guest", guest.LastName, "code", code)
	guest.FiscalCode = code
	return nil
}

func (s *Service) takenFunc(ctx context.Context) fiscalcode.TakenFunc {
	return func(code string) bool {
		exists, err := s.repo.FiscalCodeExists(ctx, code)
		if err != nil {
			s.logger.Error("fiscal code lookup failed", "error", err)
			return false
		}
		return exists
	}
}

func (s *Service) record(ctx context.Context, action string, id int64, guest *Guest) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "guest",
		EntityID: fmt.Sprintf("%d", id),
		Meta: map[string]any{
			"last_name":  guest.LastName,
			"first_name": guest.FirstName,
		},
		At: time.Now(),
	})
	if err != nil {
		s.logger.Error("audit record failed", "action", action, "error", err)
	}
}
