package handler

import "net/http"

// DocsHandler serves a machine-readable summary of the API surface.
type DocsHandler struct{}

func NewDocsHandler() *DocsHandler {
	return &DocsHandler{}
}

type endpointDoc struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Auth        string `json:"auth"`
	Description string `json:"description"`
}

func (h *DocsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "Countries API",
		"version": "v1",
		"authentication": map[string]string{
			"session": "Bearer access token in the Authorization header (obtain via /auth/login)",
			"api_key": "X-API-Key header or api_key query parameter (obtain via /user/api-keys)",
		},
		"endpoints": []endpointDoc{
			{"POST", "/auth/register", "none", "Create an account"},
			{"POST", "/auth/login", "none", "Log in with username or email"},
			{"POST", "/auth/refresh", "none", "Exchange a refresh token for a new access token"},
			{"GET", "/user/profile", "session", "Current account"},
			{"GET", "/user/api-keys", "session", "List API keys"},
			{"POST", "/user/api-keys", "session", "Create an API key (plaintext returned once)"},
			{"DELETE", "/user/api-keys/{id}", "session", "Revoke an API key"},
			{"POST", "/user/api-keys/{id}/extend", "session", "Extend an API key's expiry"},
			{"GET", "/user/api-keys/{id}/usage", "session", "Usage events for an API key"},
			{"GET", "/api/v1/countries", "api_key", "All countries, paginated"},
			{"GET", "/api/v1/countries/{name}", "api_key", "Countries matching a name"},
			{"GET", "/api/v1/countries/currency/{code}", "api_key", "Countries using a currency, paginated"},
			{"GET", "/api/v1/countries/language/{code}", "api_key", "Countries speaking a language, paginated"},
			{"GET", "/api/v1/countries/region/{region}", "api_key", "Countries in a region, paginated"},
		},
	})
}
