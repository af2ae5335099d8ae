package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/countries-api-service/internal/httputil"
	"github.com/countries-api-service/internal/middleware"
	"github.com/countries-api-service/internal/model"
	"github.com/countries-api-service/internal/service"
)

type APIKeyHandler struct {
	keys *service.APIKeyService
}

func NewAPIKeyHandler(keys *service.APIKeyService) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

// APIKeyResponse is the public view of a key. The raw value appears only
// in the creation response.
type APIKeyResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name,omitempty"`
	KeyPrefix  string  `json:"key_prefix"`
	IsActive   bool    `json:"is_active"`
	CreatedAt  string  `json:"created_at"`
	ExpiresAt  *string `json:"expires_at"`
	LastUsedAt *string `json:"last_used_at"`
}

func apiKeyResponse(k *model.APIKey) APIKeyResponse {
	resp := APIKeyResponse{
		ID:        k.ID.String(),
		Name:      k.Name,
		KeyPrefix: k.KeyPrefix + "...",
		IsActive:  k.IsActive,
		CreatedAt: k.CreatedAt.Format(time.RFC3339),
	}
	if k.ExpiresAt != nil {
		s := k.ExpiresAt.Format(time.RFC3339)
		resp.ExpiresAt = &s
	}
	if k.LastUsedAt != nil {
		s := k.LastUsedAt.Format(time.RFC3339)
		resp.LastUsedAt = &s
	}
	return resp
}

type createKeyRequest struct {
	Name          string `json:"name"`
	ExpiresInDays int    `json:"expires_in_days"`
}

func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "authorization_required", "Request does not contain an access token")
		return
	}

	var req createKeyRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
			return
		}
	}

	created, err := h.keys.Create(r.Context(), userID, req.Name, req.ExpiresInDays)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "API key created successfully. Store it safely; it will not be shown again.",
		"api_key": created.RawKey,
		"key":     apiKeyResponse(created.Key),
	})
}

func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "authorization_required", "Request does not contain an access token")
		return
	}

	keys, err := h.keys.List(r.Context(), userID)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	resp := make([]APIKeyResponse, 0, len(keys))
	for _, k := range keys {
		resp = append(resp, apiKeyResponse(k))
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"api_keys": resp, "count": len(resp)})
}

func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, keyID, ok := h.keyRequest(w, r)
	if !ok {
		return
	}

	if err := h.keys.Revoke(r.Context(), userID, keyID); err != nil {
		service.RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]string{"message": "API key revoked successfully"})
}

type extendKeyRequest struct {
	ExpiresInDays int `json:"expires_in_days"`
}

func (h *APIKeyHandler) Extend(w http.ResponseWriter, r *http.Request) {
	userID, keyID, ok := h.keyRequest(w, r)
	if !ok {
		return
	}

	var req extendKeyRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
			return
		}
	}

	key, err := h.keys.Extend(r.Context(), userID, keyID, req.ExpiresInDays)
	if err != nil {
		service.RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]APIKeyResponse{"key": apiKeyResponse(key)})
}

// UsageEventResponse is one recorded request made with a key.
type UsageEventResponse struct {
	Endpoint       string `json:"endpoint"`
	Method         string `json:"method"`
	StatusCode     int    `json:"status_code"`
	ResponseTimeMs int64  `json:"response_time_ms"`
	IPAddress      string `json:"ip_address,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func (h *APIKeyHandler) Usage(w http.ResponseWriter, r *http.Request) {
	userID, keyID, ok := h.keyRequest(w, r)
	if !ok {
		return
	}

	p, err := httputil.ParsePagination(r)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	events, total, err := h.keys.Usage(r.Context(), userID, keyID, p.Page, p.PerPage)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	resp := make([]UsageEventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, UsageEventResponse{
			Endpoint:       ev.Endpoint,
			Method:         ev.Method,
			StatusCode:     ev.StatusCode,
			ResponseTimeMs: ev.ResponseTimeMs,
			IPAddress:      ev.IPAddress,
			UserAgent:      ev.UserAgent,
			CreatedAt:      ev.CreatedAt.Format(time.RFC3339),
		})
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"usage":      resp,
		"pagination": httputil.MetaFor(p, total),
	})
}

func (h *APIKeyHandler) keyRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "authorization_required", "Request does not contain an access token")
		return uuid.Nil, uuid.Nil, false
	}

	keyID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid API key id")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, keyID, true
}
