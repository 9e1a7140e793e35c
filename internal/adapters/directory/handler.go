// Package directory provides HTTP access to the campus directory service.
package directory

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"campuslife/internal/core"
	"campuslife/pkg/domain"
)

// PrincipalHeader carries the caller's user id. Verifying it is the job of
// the auth proxy in front of the service.
const PrincipalHeader = "X-User-Id"

// Handler routes /api/v1 directory requests to the service.
type Handler struct {
	svc *core.Service
	log *slog.Logger
}

// NewHandler constructs a directory HTTP handler.
func NewHandler(svc *core.Service) *Handler {
	return &Handler{svc: svc, log: slog.Default()}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if principal := r.Header.Get(PrincipalHeader); principal != "" {
		r = r.WithContext(domain.WithPrincipal(r.Context(), principal))
	}

	path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1"), "/")
	switch {
	case path == "/associations":
		h.handleAssociations(w, r)
	case strings.HasPrefix(path, "/associations/"):
		h.handleAssociation(w, r, strings.TrimPrefix(path, "/associations/"))
	case path == "/events":
		h.handleEvents(w, r)
	case strings.HasPrefix(path, "/events/"):
		h.handleEvent(w, r, strings.TrimPrefix(path, "/events/"))
	case path == "/users":
		h.handleUsers(w, r)
	case path == "/users/me":
		h.handleCurrentUser(w, r)
	case strings.HasPrefix(path, "/users/"):
		h.handleUser(w, r, strings.TrimPrefix(path, "/users/"))
	default:
		http.NotFound(w, r)
	}
}

// Associations

func (h *Handler) handleAssociations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"associations": h.svc.Associations(r.Context())})
	case http.MethodPost:
		actor, ok := h.svc.CurrentUser(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "login required")
			return
		}
		if !core.CanCreateAssociation(actor) {
			writeError(w, http.StatusForbidden, "only admins may add associations")
			return
		}
		var assoc domain.Association
		if !decodeBody(w, r, &assoc) {
			return
		}
		if assoc.ID == "" {
			assoc.ID = h.svc.NewAssociationUID()
		}
		if err := h.svc.CreateAssociation(r.Context(), assoc); err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"association": assoc})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleAssociation(w http.ResponseWriter, r *http.Request, rest string) {
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	switch sub {
	case "":
		h.handleAssociationEntity(w, r, id)
	case "events":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		events, err := h.svc.EventsForAssociation(r.Context(), id)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"events": events})
	case "subscription":
		h.handleSubscription(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleAssociationEntity(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		assoc, ok := h.svc.Association(r.Context(), id)
		if !ok {
			writeError(w, http.StatusNotFound, "association not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"association": assoc})
	case http.MethodPut:
		if !h.requireAssociationEditor(w, r, id) {
			return
		}
		var assoc domain.Association
		if !decodeBody(w, r, &assoc) {
			return
		}
		if err := h.svc.UpdateAssociation(r.Context(), id, assoc); err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"association": assoc})
	case http.MethodDelete:
		if !h.requireAssociationEditor(w, r, id) {
			return
		}
		if err := h.svc.DeleteAssociation(r.Context(), id); err != nil {
			h.writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleSubscription(w http.ResponseWriter, r *http.Request, associationID string) {
	var err error
	switch r.Method {
	case http.MethodPost:
		err = h.svc.SubscribeToAssociation(r.Context(), associationID)
	case http.MethodDelete:
		err = h.svc.UnsubscribeFromAssociation(r.Context(), associationID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"events": h.svc.Events(r.Context())})
	case http.MethodPost:
		var event domain.Event
		if !decodeBody(w, r, &event) {
			return
		}
		if !h.requireEventManager(w, r, event) {
			return
		}
		if event.ID == "" {
			event.ID = h.svc.NewEventUID()
		}
		if err := h.svc.CreateEvent(r.Context(), event); err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"event": event})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request, rest string) {
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	switch sub {
	case "":
		h.handleEventEntity(w, r, id)
	case "enrollment":
		h.handleEnrollment(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleEventEntity(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		event, ok := h.svc.Event(r.Context(), id)
		if !ok {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"event": event})
	case http.MethodPut:
		var event domain.Event
		if !decodeBody(w, r, &event) {
			return
		}
		// Authorization runs against the stored event, not the payload's
		// claimed association; moving an event also needs rights there.
		stored, ok := h.svc.Event(r.Context(), id)
		if !ok {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		if !h.requireEventManager(w, r, stored) {
			return
		}
		if event.Association.ID != stored.Association.ID && !h.requireEventManager(w, r, event) {
			return
		}
		if err := h.svc.UpdateEvent(r.Context(), id, event); err != nil {
			h.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"event": event})
	case http.MethodDelete:
		stored, ok := h.svc.Event(r.Context(), id)
		if !ok {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		if !h.requireEventManager(w, r, stored) {
			return
		}
		if err := h.svc.DeleteEvent(r.Context(), id); err != nil {
			h.writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleEnrollment(w http.ResponseWriter, r *http.Request, eventID string) {
	var err error
	switch r.Method {
	case http.MethodPost:
		err = h.svc.EnrollInEvent(r.Context(), eventID)
	case http.MethodDelete:
		err = h.svc.UnenrollFromEvent(r.Context(), eventID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Users

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": h.svc.Users(r.Context())})
}

func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	user, ok := h.svc.CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	user, ok := h.svc.User(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// Guards

func (h *Handler) requireAssociationEditor(w http.ResponseWriter, r *http.Request, associationID string) bool {
	actor, ok := h.svc.CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "login required")
		return false
	}
	if !core.CanEditAssociation(actor, associationID) {
		writeError(w, http.StatusForbidden, "not allowed to manage this association")
		return false
	}
	return true
}

func (h *Handler) requireEventManager(w http.ResponseWriter, r *http.Request, event domain.Event) bool {
	actor, ok := h.svc.CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "login required")
		return false
	}
	if !core.CanManageEvent(actor, event) {
		writeError(w, http.StatusForbidden, "not allowed to manage this association's events")
		return false
	}
	return true
}

// Helpers

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotLoggedIn):
		status = http.StatusUnauthorized
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case domain.IsIDMismatch(err):
		status = http.StatusBadRequest
	case domain.IsDuplicateID(err), domain.IsAlreadyInState(err), domain.IsNotInState(err):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.log.Error("directory request failed", "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
