package handler

import (
	"net/http"

	"github.com/countries-api-service/internal/middleware"
	"github.com/countries-api-service/internal/service"
)

type ProfileHandler struct {
	auth *service.AuthService
}

func NewProfileHandler(auth *service.AuthService) *ProfileHandler {
	return &ProfileHandler{auth: auth}
}

func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		RespondError(w, http.StatusUnauthorized, "authorization_required", "Request does not contain an access token")
		return
	}

	user, err := h.auth.Profile(r.Context(), userID)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, map[string]UserResponse{"user": userResponse(user)})
}
