package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/http/middleware"
)

// CustomersHandler serves trainer-facing customer lookups. The role gate
// admits trainers and admins; on top of that a trainer may only see
// customers linked to them, while an admin sees everyone.
type CustomersHandler struct {
	userRepo ports.UserRepository
	links    ports.TrainerLinkStore
	log      zerolog.Logger
}

func NewCustomersHandler(userRepo ports.UserRepository, links ports.TrainerLinkStore, log zerolog.Logger) *CustomersHandler {
	return &CustomersHandler{userRepo: userRepo, links: links, log: log}
}

// List returns the customers visible to the caller.
func (h *CustomersHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.AuthFromContext(r.Context())
	if claims == nil {
		writeErr(w, http.StatusUnauthorized, "", "unauthorized")
		return
	}
	if claims.Role == domain.RoleAdmin {
		users, err := h.userRepo.List(r.Context(), maxListLimit, 0)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "", "internal error")
			return
		}
		items := make([]UserResponse, 0, len(users))
		for _, u := range users {
			if u.Role == domain.RoleCustomer {
				items = append(items, newUserResponse(u))
			}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"customers": items})
		return
	}
	ids, err := h.links.ListCustomerIDs(r.Context(), claims.UserID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	items := make([]UserResponse, 0, len(ids))
	for _, id := range ids {
		u, err := h.userRepo.GetByID(r.Context(), id)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "", "internal error")
			return
		}
		if u != nil {
			items = append(items, newUserResponse(u))
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"customers": items})
}

// Get returns a single customer if the caller may see them. An existing but
// unlinked customer yields 403, not 404; the trainer knows the id either way.
func (h *CustomersHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.AuthFromContext(r.Context())
	if claims == nil {
		writeErr(w, http.StatusUnauthorized, "", "unauthorized")
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "", "invalid customer id")
		return
	}
	customerID := domain.NewUserID(id)
	if claims.Role != domain.RoleAdmin {
		linked, err := h.links.Linked(r.Context(), claims.UserID, customerID)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "", "internal error")
			return
		}
		if !linked {
			writeErr(w, http.StatusForbidden, ErrCodeForbidden, "customer is not assigned to you")
			return
		}
	}
	u, err := h.userRepo.GetByID(r.Context(), customerID)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "", "internal error")
		return
	}
	if u == nil || u.Role != domain.RoleCustomer {
		writeErr(w, http.StatusNotFound, "", "customer not found")
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}
