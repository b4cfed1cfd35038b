package guests

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ancora-cas/ancora-cas/internal/fiscalcode"
	"github.com/ancora-cas/ancora-cas/internal/observability"
	"github.com/ancora-cas/ancora-cas/internal/platform/httpx"
)

// APIHandler exposes the fiscal code JSON endpoints.
type APIHandler struct {
	service   *Service
	metrics   *observability.Metrics
	validator *validator.Validate
}

// NewAPIHandler constructs an APIHandler.
func NewAPIHandler(service *Service, metrics *observability.Metrics) *APIHandler {
	return &APIHandler{service: service, metrics: metrics, validator: validator.New()}
}

// MountRoutes registers the JSON API under the given router.
func (h *APIHandler) MountRoutes(r chi.Router) {
	r.Post("/fiscal-code", h.compute)
	r.Post("/fiscal-code/validate", h.validate)
}

type fiscalCodeRequest struct {
	LastName     string `json:"last_name" validate:"required"`
	FirstName    string `json:"first_name" validate:"required"`
	Gender       string `json:"gender" validate:"required,oneof=M F m f"`
	BirthDate    string `json:"birth_date" validate:"required"`
	BirthPlace   string `json:"birth_place" validate:"required"`
	ForeignBirth bool   `json:"foreign_birth"`
}

type fiscalCodeResponse struct {
	FiscalCode string `json:"fiscal_code"`
}

func (h *APIHandler) compute(w http.ResponseWriter, r *http.Request) {
	var req fiscalCodeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Richiesta non valida", "corpo JSON non leggibile")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.countCompute("invalid_input")
		httpx.Problem(w, http.StatusBadRequest, "Dati mancanti", "dati mancanti per il calcolo del codice fiscale")
		return
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		h.countCompute("invalid_input")
		httpx.Problem(w, http.StatusBadRequest, "Data non valida", "la data di nascita deve essere nel formato YYYY-MM-DD")
		return
	}
	sex, _ := fiscalcode.ParseSex(req.Gender)

	code, err := h.service.ComputeFiscalCode(r.Context(), fiscalcode.PersonInput{
		LastName:       req.LastName,
		FirstName:      req.FirstName,
		Sex:            sex,
		BirthDate:      birthDate,
		BirthPlace:     req.BirthPlace,
		IsForeignBirth: req.ForeignBirth,
	})
	if err != nil {
		h.respondComputeError(w, err)
		return
	}
	h.countCompute("ok")
	httpx.JSON(w, http.StatusOK, fiscalCodeResponse{FiscalCode: code})
}

type validateRequest struct {
	FiscalCode string `json:"fiscal_code" validate:"required"`
}

type validateResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func (h *APIHandler) validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Richiesta non valida", "corpo JSON non leggibile")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Dati mancanti", "codice fiscale richiesto")
		return
	}
	if err := fiscalcode.Validate(req.FiscalCode); err != nil {
		reason := "formato non valido"
		if errors.Is(err, fiscalcode.ErrChecksumMismatch) {
			reason = "carattere di controllo errato"
		}
		httpx.JSON(w, http.StatusOK, validateResponse{Valid: false, Reason: reason})
		return
	}
	httpx.JSON(w, http.StatusOK, validateResponse{Valid: true})
}

func (h *APIHandler) respondComputeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fiscalcode.ErrUnknownPlace):
		h.countCompute("unknown_place")
		httpx.Problem(w, http.StatusUnprocessableEntity, "Luogo sconosciuto", "luogo di nascita non presente nella tabella dei codici Belfiore")
	case errors.Is(err, fiscalcode.ErrEmptyName), errors.Is(err, fiscalcode.ErrInvalidDate):
		h.countCompute("invalid_input")
		httpx.Problem(w, http.StatusBadRequest, "Dati non validi", err.Error())
	case errors.Is(err, fiscalcode.ErrCodeSpaceExhausted):
		h.countCompute("exhausted")
		httpx.Problem(w, http.StatusConflict, "Varianti esaurite", "tutte le varianti omocodiche risultano occupate")
	default:
		h.countCompute("error")
		httpx.Problem(w, http.StatusInternalServerError, "Errore interno", "")
	}
}

func (h *APIHandler) countCompute(outcome string) {
	if h.metrics != nil {
		h.metrics.CountFiscalCode(outcome)
	}
}
