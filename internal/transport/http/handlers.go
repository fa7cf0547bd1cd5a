package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "teacli/internal/errors"
	"teacli/internal/storage"
)

type handlers struct {
	store  *storage.Store
	logger *slog.Logger
}

func newHandlers(store *storage.Store, logger *slog.Logger) *handlers {
	return &handlers{store: store, logger: logger}
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (h *handlers) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, sessions)
}

func (h *handlers) getSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, session)
}

func (h *handlers) listStreams(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.requireSession(r, sessionID); err != nil {
		h.renderError(w, r, err)
		return
	}
	streams, err := h.store.StreamsBySession(r.Context(), sessionID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, streams)
}

func (h *handlers) listEquipment(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.requireSession(r, sessionID); err != nil {
		h.renderError(w, r, err)
		return
	}
	equipment, err := h.store.EquipmentBySession(r.Context(), sessionID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, equipment)
}

func (h *handlers) listHeatExchangers(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.requireSession(r, sessionID); err != nil {
		h.renderError(w, r, err)
		return
	}
	hexes, err := h.store.HeatExchangersBySession(r.Context(), sessionID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, hexes)
}

// requireSession distinguishes "unknown session" from "session with no
// records of this kind": the former is a 404, the latter an empty list.
func (h *handlers) requireSession(r *http.Request, sessionID string) error {
	_, err := h.store.GetSession(r.Context(), sessionID)
	return err
}

func (h *handlers) renderError(w http.ResponseWriter, r *http.Request, err error) {
	api := apperrors.ToAPIError(err)
	if api.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
	}
	if renderErr := render.Render(w, r, api); renderErr != nil {
		http.Error(w, api.Message, api.StatusCode)
	}
}
