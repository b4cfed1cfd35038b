package settings

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ancora-cas/ancora-cas/internal/shared"
	"github.com/ancora-cas/ancora-cas/internal/view"
)

// Handler wires HTTP endpoints for the settings page.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	templates   *view.Engine
	csrfManager *shared.CSRFManager
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrfManager: csrf}
}

// MountRoutes registers settings routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/settings", h.show)
	r.Post("/settings", h.changePassword)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	h.render(w, r)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	err := h.service.ChangePassword(r.Context(), r.PostFormValue("new_password"), r.PostFormValue("confirm_password"))
	switch {
	case err == nil:
		if sess != nil {
			sess.AddFlash("success", "Password aggiornata")
		}
	case errors.Is(err, ErrPasswordTooShort):
		if sess != nil {
			sess.AddFlash("danger", "La password deve avere almeno 8 caratteri")
		}
	case errors.Is(err, ErrPasswordMismatch):
		if sess != nil {
			sess.AddFlash("danger", "Le password non coincidono")
		}
	default:
		h.logger.Error("change password", slog.Any("error", err))
		if sess != nil {
			sess.AddFlash("danger", "Errore durante l'aggiornamento della password")
		}
	}
	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request) {
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
		Title:       "Impostazioni",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		LoggedIn:    loggedIn,
	}
	if err := h.templates.Render(w, "pages/settings.html", viewData); err != nil {
		h.logger.Error("render settings", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
