package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/countries-api-service/internal/countries"
	"github.com/countries-api-service/internal/httputil"
	"github.com/countries-api-service/internal/validation"
)

type CountriesHandler struct {
	client *countries.Client
}

func NewCountriesHandler(client *countries.Client) *CountriesHandler {
	return &CountriesHandler{client: client}
}

func (h *CountriesHandler) List(w http.ResponseWriter, r *http.Request) {
	h.respondPaginated(w, r, func(ctx context.Context) ([]countries.Country, error) {
		return h.client.All(ctx)
	}, "No countries found")
}

func (h *CountriesHandler) ByName(w http.ResponseWriter, r *http.Request) {
	name := validation.SanitizeString(chi.URLParam(r, "name"))
	result, err := h.client.ByName(r.Context(), name)
	if err != nil {
		h.respondFetchError(w, err, fmt.Sprintf("Country not found: %s", name))
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"countries": result, "count": len(result)})
}

func (h *CountriesHandler) ByCurrency(w http.ResponseWriter, r *http.Request) {
	code := validation.SanitizeString(chi.URLParam(r, "code"))
	h.respondPaginated(w, r, func(ctx context.Context) ([]countries.Country, error) {
		return h.client.ByCurrency(ctx, code)
	}, fmt.Sprintf("No countries found with currency: %s", code))
}

func (h *CountriesHandler) ByLanguage(w http.ResponseWriter, r *http.Request) {
	code := validation.SanitizeString(chi.URLParam(r, "code"))
	h.respondPaginated(w, r, func(ctx context.Context) ([]countries.Country, error) {
		return h.client.ByLanguage(ctx, code)
	}, fmt.Sprintf("No countries found with language: %s", code))
}

func (h *CountriesHandler) ByRegion(w http.ResponseWriter, r *http.Request) {
	region := validation.SanitizeString(chi.URLParam(r, "region"))
	h.respondPaginated(w, r, func(ctx context.Context) ([]countries.Country, error) {
		return h.client.ByRegion(ctx, region)
	}, fmt.Sprintf("No countries found in region: %s", region))
}

func (h *CountriesHandler) respondPaginated(w http.ResponseWriter, r *http.Request, fetch func(context.Context) ([]countries.Country, error), notFoundMessage string) {
	p, err := httputil.ParsePagination(r)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := fetch(r.Context())
	if err != nil {
		h.respondFetchError(w, err, notFoundMessage)
		return
	}

	page, meta := httputil.Paginate(result, p)
	RespondJSON(w, http.StatusOK, map[string]interface{}{
		"countries":  page,
		"pagination": meta,
	})
}

func (h *CountriesHandler) respondFetchError(w http.ResponseWriter, err error, notFoundMessage string) {
	if errors.Is(err, countries.ErrNotFound) {
		RespondError(w, http.StatusNotFound, "not_found", notFoundMessage)
		return
	}
	RespondError(w, http.StatusInternalServerError, "upstream_error", "Failed to fetch country data")
}
