package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/docmark/docmark/internal/api/middleware"
	"github.com/docmark/docmark/internal/api/response"
	"github.com/docmark/docmark/internal/audit"
	"github.com/docmark/docmark/internal/auth"
	"github.com/docmark/docmark/internal/store"
	"github.com/docmark/docmark/pkg/models"
)

// Admin serves the administrative surface: user and API key provisioning.
// Every write records its audit event.
type Admin struct {
	store     store.Store
	validator *auth.Validator
	recorder  audit.Recorder
}

// NewAdmin creates the admin handlers.
func NewAdmin(s store.Store, v *auth.Validator, rec audit.Recorder) *Admin {
	return &Admin{store: s, validator: v, recorder: rec}
}

// --- Users ---

// CreateUser handles POST /api/v1/admin/users.
func (h *Admin) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}
	if req.Name == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "email must be a valid address", nil)
		return
	}

	user := &models.User{
		ID:        uuid.New(),
		Name:      req.Name,
		Email:     req.Email,
		Status:    models.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			response.Error(w, http.StatusConflict, "DUPLICATE_EMAIL", "A user with that email already exists", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create user", nil)
		return
	}

	h.record(r, models.ActionUserCreated, models.AuditSuccess, map[string]any{
		"user_id": user.ID.String(),
		"email":   user.Email,
	})

	response.Created(w, user)
}

// ListUsers handles GET /api/v1/admin/users.
func (h *Admin) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list users", nil)
		return
	}
	response.JSON(w, users)
}

// SetUserStatus handles PATCH /api/v1/admin/users/{userID}/status.
// Deactivating a user disables every key it owns without deleting anything.
func (h *Admin) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "userID must be a UUID", nil)
		return
	}

	var req struct {
		Status models.EntityStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}
	if req.Status != models.StatusActive && req.Status != models.StatusDeactivated {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "status must be active or deactivated", nil)
		return
	}

	if err := h.store.SetUserStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update user", nil)
		return
	}

	if req.Status == models.StatusDeactivated {
		h.record(r, models.ActionUserDeactivated, models.AuditSuccess, map[string]any{
			"user_id": id.String(),
		})
	}

	response.JSON(w, map[string]any{"id": id, "status": req.Status})
}

// --- API Keys ---

// CreateKey handles POST /api/v1/admin/keys. The raw key appears in this
// response and nowhere else.
func (h *Admin) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID uuid.UUID   `json:"user_id"`
		Name   string      `json:"name"`
		Role   models.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}
	if req.UserID == uuid.Nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "user_id is required", nil)
		return
	}
	if req.Name == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "name is required", nil)
		return
	}
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "role must be user or admin", nil)
		return
	}

	owner, err := h.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to look up user", nil)
		return
	}
	if !owner.Usable() {
		response.Error(w, http.StatusConflict, "USER_DEACTIVATED", "Cannot issue keys for a deactivated user", nil)
		return
	}

	raw, hash, prefix, err := auth.GenerateKey()
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate key", nil)
		return
	}

	key := &models.APIKey{
		ID:        uuid.New(),
		UserID:    owner.ID,
		Name:      req.Name,
		KeyHash:   hash,
		KeyPrefix: prefix,
		Role:      role,
		Status:    models.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.CreateAPIKey(r.Context(), key); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create key", nil)
		return
	}

	h.record(r, models.ActionKeyCreated, models.AuditSuccess, map[string]any{
		"key_id":  key.ID.String(),
		"user_id": owner.ID.String(),
		"role":    string(role),
	})

	response.Created(w, createKeyResponse{
		APIKey: key,
		Key:    raw,
	})
}

type createKeyResponse struct {
	*models.APIKey
	// Key is the plaintext credential, shown exactly once.
	Key string `json:"key"`
}

// ListKeys handles GET /api/v1/admin/keys.
func (h *Admin) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys(r.Context())
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list keys", nil)
		return
	}
	response.JSON(w, keys)
}

// DeactivateKey handles DELETE /api/v1/admin/keys/{keyID}. The key row is
// kept; only its status changes. The cached identity is evicted best effort,
// bounded otherwise by the identity cache TTL.
func (h *Admin) DeactivateKey(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "keyID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "keyID must be a UUID", nil)
		return
	}

	if err := h.store.SetAPIKeyStatus(r.Context(), id, models.StatusDeactivated); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Key not found", nil)
			return
		}
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to deactivate key", nil)
		return
	}

	h.validator.InvalidateKey(r.Context(), id)

	h.record(r, models.ActionKeyDeactivated, models.AuditSuccess, map[string]any{
		"key_id": id.String(),
	})

	w.WriteHeader(http.StatusNoContent)
}

func (h *Admin) record(r *http.Request, action models.AuditAction, status models.AuditStatus, meta map[string]any) {
	actor := "admin"
	if id, ok := mw.GetIdentity(r); ok {
		actor = id.Actor()
	}
	h.recorder.Record(models.AuditEvent{
		Actor:    actor,
		Action:   action,
		Status:   status,
		Metadata: meta,
	})
}
