package guests

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ancora-cas/ancora-cas/internal/fiscalcode"
	"github.com/ancora-cas/ancora-cas/internal/shared"
	"github.com/ancora-cas/ancora-cas/internal/view"
)

const formDateLayout = "2006-01-02"

// maxImportBytes caps the uploaded file size.
const maxImportBytes = 10 << 20

// Handler wires HTTP endpoints for the guest registry.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	templates   *view.Engine
	csrfManager *shared.CSRFManager
	renderer    PDFRenderer
	validator   *validator.Validate
}

// NewHandler constructs a Handler instance. renderer may be nil, in which
// case PDF export responds 503.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, renderer PDFRenderer) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		templates:   templates,
		csrfManager: csrf,
		renderer:    renderer,
		validator:   validator.New(),
	}
}

// MountRoutes registers registry routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/guests", h.list)
	r.Get("/guests/new", h.showNew)
	r.Post("/guests", h.create)
	r.Get("/guests/export", h.showExport)
	r.Post("/guests/export", h.export)
	r.Post("/guests/import", h.importFile)
	r.Get("/guests/{id}", h.detail)
	r.Get("/guests/{id}/edit", h.showEdit)
	r.Post("/guests/{id}", h.update)
	r.Post("/guests/{id}/delete", h.delete)
}

type guestForm struct {
	LastName   string `validate:"required,max=100"`
	FirstName  string `validate:"required,max=100"`
	Sex        string `validate:"required,oneof=M F"`
	BirthDate  string `validate:"required"`
	BirthPlace string `validate:"required,max=100"`
	FiscalCode string `validate:"omitempty,len=16"`
}

type listPageData struct {
	Guests     []Guest
	Pagination shared.Pagination
	Search     string
	PrevPage   int
	NextPage   int
}

type formPageData struct {
	Guest    *Guest
	Errors   map[string]string
	EditMode bool
	Action   string
}

type detailPageData struct {
	Guest *Guest
}

type exportPageData struct {
	BirthPlaces []string
	Rooms       []string
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	filters := ListFilters{Page: page, PerPage: 25, Search: search}

	guests, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.fail(w, r, "elenco ospiti", err)
		return
	}
	pagination := shared.NewPagination(filters.Page, filters.PerPage, total)
	data := listPageData{
		Guests:     guests,
		Pagination: pagination,
		Search:     search,
		PrevPage:   pagination.Page - 1,
		NextPage:   pagination.Page + 1,
	}
	h.render(w, r, "pages/guests_list.html", "Archivio ospiti", data)
}

func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	data := formPageData{Guest: &Guest{}, Action: "/guests"}
	h.render(w, r, "pages/guest_form.html", "Nuovo ospite", data)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	guest, formErrors, err := h.parseGuestForm(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if len(formErrors) > 0 {
		data := formPageData{Guest: guest, Errors: formErrors, Action: "/guests"}
		h.render(w, r, "pages/guest_form.html", "Nuovo ospite", data)
		return
	}

	id, err := h.service.Create(r.Context(), guest)
	if err != nil {
		h.renderSaveError(w, r, guest, err, false, "/guests")
		return
	}
	h.flash(r, "success", "Ospite registrato")
	http.Redirect(w, r, fmt.Sprintf("/guests/%d", id), http.StatusSeeOther)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	guest, ok := h.loadGuest(w, r)
	if !ok {
		return
	}
	h.render(w, r, "pages/guest_detail.html", guest.LastName+" "+guest.FirstName, detailPageData{Guest: guest})
}

func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	guest, ok := h.loadGuest(w, r)
	if !ok {
		return
	}
	data := formPageData{
		Guest:    guest,
		EditMode: true,
		Action:   fmt.Sprintf("/guests/%d", guest.ID),
	}
	h.render(w, r, "pages/guest_form.html", "Modifica ospite", data)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	guest, formErrors, err := h.parseGuestForm(r)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	guest.ID = id
	action := fmt.Sprintf("/guests/%d", id)
	if len(formErrors) > 0 {
		data := formPageData{Guest: guest, Errors: formErrors, EditMode: true, Action: action}
		h.render(w, r, "pages/guest_form.html", "Modifica ospite", data)
		return
	}

	if err := h.service.Update(r.Context(), guest); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.renderSaveError(w, r, guest, err, true, action)
		return
	}
	h.flash(r, "success", "Ospite aggiornato")
	http.Redirect(w, r, action, http.StatusSeeOther)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.fail(w, r, "eliminazione ospite", err)
		return
	}
	h.flash(r, "success", "Ospite eliminato")
	http.Redirect(w, r, "/guests", http.StatusSeeOther)
}

func (h *Handler) showExport(w http.ResponseWriter, r *http.Request) {
	options, err := h.service.ExportFilterOptions(r.Context())
	if err != nil {
		h.fail(w, r, "filtri esportazione", err)
		return
	}
	data := exportPageData{BirthPlaces: options.BirthPlaces, Rooms: options.Rooms}
	h.render(w, r, "pages/export.html", "Esporta dati", data)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	filters := ExportFilters{
		BirthPlace: strings.TrimSpace(r.PostFormValue("birth_place")),
		AgeFilter:  r.PostFormValue("age_filter"),
		Room:       strings.TrimSpace(r.PostFormValue("room")),
	}
	if raw := r.PostFormValue("entry_date_from"); raw != "" {
		if t, err := time.Parse(formDateLayout, raw); err == nil {
			filters.EntryDateFrom = t
		}
	}
	if raw := r.PostFormValue("entry_date_to"); raw != "" {
		if t, err := time.Parse(formDateLayout, raw); err == nil {
			filters.EntryDateTo = t
		}
	}

	guests, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.fail(w, r, "esportazione", err)
		return
	}

	stamp := time.Now().Format("20060102_150405")
	switch r.PostFormValue("export_format") {
	case "pdf":
		if h.renderer == nil {
			http.Error(w, "servizio PDF non disponibile", http.StatusServiceUnavailable)
			return
		}
		pdf, err := RenderGuestsPDF(r.Context(), h.renderer, guests)
		if err != nil {
			h.fail(w, r, "esportazione pdf", err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ospiti_%s.pdf", stamp))
		_, _ = w.Write(pdf)
	default:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ospiti_%s.csv", stamp))
		if err := WriteGuestsCSV(w, guests, filters); err != nil {
			h.logger.Error("stream csv export", slog.Any("error", err))
		}
	}
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		h.flash(r, "danger", "File non valido o troppo grande")
		http.Redirect(w, r, "/guests/export", http.StatusSeeOther)
		return
	}
	file, header, err := r.FormFile("import_file")
	if err != nil {
		h.flash(r, "danger", "Nessun file selezionato")
		http.Redirect(w, r, "/guests/export", http.StatusSeeOther)
		return
	}
	defer file.Close()
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		h.flash(r, "danger", "Formato file non supportato. Usa CSV (.csv)")
		http.Redirect(w, r, "/guests/export", http.StatusSeeOther)
		return
	}

	result, err := h.service.ImportCSV(r.Context(), file)
	if err != nil {
		h.flash(r, "danger", "Errore durante l'importazione: "+err.Error())
		http.Redirect(w, r, "/guests/export", http.StatusSeeOther)
		return
	}
	if len(result.Rejected) > 0 {
		h.flash(r, "warning", fmt.Sprintf("Importati %d ospiti, %d righe scartate", result.Imported, len(result.Rejected)))
	} else {
		h.flash(r, "success", fmt.Sprintf("Importazione completata! %d ospiti importati", result.Imported))
	}
	http.Redirect(w, r, "/guests/export", http.StatusSeeOther)
}

func (h *Handler) loadGuest(w http.ResponseWriter, r *http.Request) (*Guest, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return nil, false
	}
	guest, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return nil, false
		}
		h.fail(w, r, "caricamento ospite", err)
		return nil, false
	}
	return guest, true
}

// parseGuestForm builds a Guest from form values. The returned map holds
// per-field validation messages in Italian.
func (h *Handler) parseGuestForm(r *http.Request) (*Guest, map[string]string, error) {
	if err := r.ParseForm(); err != nil {
		return nil, nil, err
	}
	form := guestForm{
		LastName:   strings.TrimSpace(r.PostFormValue("last_name")),
		FirstName:  strings.TrimSpace(r.PostFormValue("first_name")),
		Sex:        strings.ToUpper(strings.TrimSpace(r.PostFormValue("sex"))),
		BirthDate:  r.PostFormValue("birth_date"),
		BirthPlace: strings.TrimSpace(r.PostFormValue("birth_place")),
		FiscalCode: strings.ToUpper(strings.TrimSpace(r.PostFormValue("fiscal_code"))),
	}
	formErrors := map[string]string{}
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				formErrors[fe.Field()] = italianFieldError(fe)
			}
		} else {
			return nil, nil, err
		}
	}

	guest := &Guest{
		LastName:        form.LastName,
		FirstName:       form.FirstName,
		BirthPlace:      form.BirthPlace,
		Province:        strings.TrimSpace(r.PostFormValue("province")),
		ForeignBirth:    r.PostFormValue("foreign_birth") != "",
		FiscalCode:      form.FiscalCode,
		CountryCode:     strings.TrimSpace(r.PostFormValue("country_code")),
		PermitNumber:    strings.TrimSpace(r.PostFormValue("permit_number")),
		HealthCard:      strings.TrimSpace(r.PostFormValue("health_card")),
		RoomNumber:      strings.TrimSpace(r.PostFormValue("room_number")),
		Floor:           strings.TrimSpace(r.PostFormValue("floor")),
		FamilyRelations: strings.TrimSpace(r.PostFormValue("family_relations")),
		CustomFields:    parseCustomFields(r),
	}
	if sex, ok := fiscalcode.ParseSex(form.Sex); ok {
		guest.Sex = sex
	}

	setDate := func(field, name string, dst *time.Time) {
		raw := r.PostFormValue(name)
		if raw == "" {
			return
		}
		t, err := time.Parse(formDateLayout, raw)
		if err != nil {
			formErrors[field] = "Data non valida"
			return
		}
		*dst = t
	}
	setDate("BirthDate", "birth_date", &guest.BirthDate)
	setDate("PermitDate", "permit_date", &guest.PermitDate)
	setDate("HealthCardExpiry", "health_card_expiry", &guest.HealthCardExpiry)
	setDate("EntryDate", "entry_date", &guest.EntryDate)
	setDate("CheckInDate", "check_in_date", &guest.CheckInDate)
	setDate("CheckOutDate", "check_out_date", &guest.CheckOutDate)

	return guest, formErrors, nil
}

// parseCustomFields collects custom_field_name_N/custom_field_value_N pairs.
func parseCustomFields(r *http.Request) []CustomField {
	indexes := []int{}
	for key := range r.PostForm {
		if !strings.HasPrefix(key, "custom_field_name_") {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(key, "custom_field_name_")); err == nil {
			indexes = append(indexes, n)
		}
	}
	sort.Ints(indexes)

	fields := []CustomField{}
	for _, n := range indexes {
		name := strings.TrimSpace(r.PostFormValue(fmt.Sprintf("custom_field_name_%d", n)))
		value := strings.TrimSpace(r.PostFormValue(fmt.Sprintf("custom_field_value_%d", n)))
		if name == "" || value == "" {
			continue
		}
		fields = append(fields, CustomField{Name: name, Value: value})
	}
	return fields
}

func italianFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Campo obbligatorio"
	case "len":
		return fmt.Sprintf("Deve avere %s caratteri", fe.Param())
	case "max":
		return fmt.Sprintf("Massimo %s caratteri", fe.Param())
	case "oneof":
		return "Valore non ammesso"
	default:
		return "Valore non valido"
	}
}

// renderSaveError maps service errors back onto the form.
func (h *Handler) renderSaveError(w http.ResponseWriter, r *http.Request, guest *Guest, err error, edit bool, action string) {
	formErrors := map[string]string{}
	switch {
	case errors.Is(err, shared.ErrDuplicateFiscalCode):
		formErrors["FiscalCode"] = "Codice fiscale già registrato"
	case errors.Is(err, fiscalcode.ErrUnknownPlace):
		formErrors["BirthPlace"] = "Luogo di nascita sconosciuto"
	case errors.Is(err, fiscalcode.ErrInvalidFormat), errors.Is(err, fiscalcode.ErrChecksumMismatch):
		formErrors["FiscalCode"] = "Codice fiscale non valido"
	case errors.Is(err, fiscalcode.ErrInvalidDate):
		formErrors["BirthDate"] = "Data di nascita non valida"
	case errors.Is(err, fiscalcode.ErrEmptyName):
		formErrors["LastName"] = "Nome e cognome obbligatori"
	default:
		h.fail(w, r, "salvataggio ospite", err)
		return
	}
	title := "Nuovo ospite"
	if edit {
		title = "Modifica ospite"
	}
	data := formPageData{Guest: guest, Errors: formErrors, EditMode: edit, Action: action}
	h.render(w, r, "pages/guest_form.html", title, data)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page, title string, data any) {
	sess := shared.SessionFromContext(r.Context())
	var (
		csrfToken string
		flash     *shared.FlashMessage
		loggedIn  bool
	)
	if sess != nil {
		csrfToken, _ = h.csrfManager.EnsureToken(r.Context(), sess)
		flash = sess.PopFlash()
		loggedIn = sess.LoggedIn()
	}
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		LoggedIn:    loggedIn,
		Data:        data,
	}
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logger.Error("render page", slog.String("page", page), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) flash(r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(kind, message)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
