package countries

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrUpstream is returned when the provider cannot be reached or answers
// with an unexpected status. Callers report it generically; the cause is
// logged here.
var ErrUpstream = errors.New("countries provider unavailable")

// ErrNotFound is returned when the provider has no match for the query.
var ErrNotFound = errors.New("no matching countries")

// Currency is a currency as exposed to API consumers.
type Currency struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Country is the filtered view of a provider record. Only these fields
// are ever exposed, regardless of what the provider returns.
type Country struct {
	Name         string              `json:"name"`
	OfficialName string              `json:"official_name"`
	Capital      string              `json:"capital"`
	Languages    map[string]string   `json:"languages"`
	Currencies   map[string]Currency `json:"currencies"`
	Flag         string              `json:"flag"`

	// Error is set when the provider record could not be fully decoded.
	Error string `json:"error,omitempty"`
}

// Client queries the RestCountries provider.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a provider client. baseURL is e.g.
// "https://restcountries.com/v3.1".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// All fetches every country.
func (c *Client) All(ctx context.Context) ([]Country, error) {
	return c.fetch(ctx, "/all")
}

// ByName fetches countries matching a name (partial matches included).
func (c *Client) ByName(ctx context.Context, name string) ([]Country, error) {
	return c.fetch(ctx, "/name/"+url.PathEscape(name))
}

// ByCurrency fetches countries using the given currency code.
func (c *Client) ByCurrency(ctx context.Context, code string) ([]Country, error) {
	return c.fetch(ctx, "/currency/"+url.PathEscape(code))
}

// ByLanguage fetches countries speaking the given language code.
func (c *Client) ByLanguage(ctx context.Context, code string) ([]Country, error) {
	return c.fetch(ctx, "/lang/"+url.PathEscape(code))
}

// ByRegion fetches countries in the given region.
func (c *Client) ByRegion(ctx context.Context, region string) ([]Country, error) {
	return c.fetch(ctx, "/region/"+url.PathEscape(region))
}

func (c *Client) fetch(ctx context.Context, path string) ([]Country, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("countries provider request failed")
		return nil, ErrUpstream
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Str("path", path).Msg("countries provider returned unexpected status")
		return nil, ErrUpstream
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to read provider response")
		return nil, ErrUpstream
	}

	// Records are decoded one by one so a single malformed entry degrades
	// to a placeholder instead of failing the whole list.
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		log.Error().Err(err).Str("path", path).Msg("failed to decode provider response")
		return nil, ErrUpstream
	}

	countries := make([]Country, 0, len(raw))
	for _, record := range raw {
		countries = append(countries, filterRecord(record))
	}
	return countries, nil
}

// providerRecord mirrors the subset of the provider's schema we read.
type providerRecord struct {
	Name struct {
		Common   string `json:"common"`
		Official string `json:"official"`
	} `json:"name"`
	Capital   []string          `json:"capital"`
	Languages map[string]string `json:"languages"`
	Currencies map[string]struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"currencies"`
	Flags struct {
		PNG string `json:"png"`
	} `json:"flags"`
}

func filterRecord(raw json.RawMessage) Country {
	var rec providerRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		name := partialName(raw)
		log.Warn().Err(err).Str("country", name).Msg("could not parse provider record")
		return Country{Name: name, Error: "Could not parse all data"}
	}

	capital := ""
	if len(rec.Capital) > 0 {
		capital = rec.Capital[0]
	}

	languages := rec.Languages
	if languages == nil {
		languages = map[string]string{}
	}

	currencies := make(map[string]Currency, len(rec.Currencies))
	for code, cur := range rec.Currencies {
		currencies[code] = Currency{Name: cur.Name, Symbol: cur.Symbol}
	}

	return Country{
		Name:         rec.Name.Common,
		OfficialName: rec.Name.Official,
		Capital:      capital,
		Languages:    languages,
		Currencies:   currencies,
		Flag:         rec.Flags.PNG,
	}
}

// partialName salvages the common name from a record that failed full
// decoding, for the placeholder entry.
func partialName(raw json.RawMessage) string {
	var partial struct {
		Name struct {
			Common string `json:"common"`
		} `json:"name"`
	}
	if err := json.Unmarshal(raw, &partial); err != nil {
		return ""
	}
	return partial.Name.Common
}
