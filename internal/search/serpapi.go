// Package search finds candidate articles on indexed journal sites and
// downloads them for extraction.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the SerpAPI search endpoint.
	DefaultBaseURL = "https://serpapi.com/search"

	DefaultTimeout = 30 * time.Second

	// DefaultRate is the request rate toward SerpAPI, in requests per second.
	DefaultRate = 1.0

	// overfetch asks for more results than needed since results are filtered by domain.
	overfetch = 3
)

var ErrMissingKey = errors.New("serpapi key is not configured")

// Searcher returns result URLs from domain for query, at most limit.
type Searcher interface {
	Search(ctx context.Context, query, domain string, limit int) ([]string, error)
}

// SerpAPI is a rate-limited client for Google results through SerpAPI.
type SerpAPI struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
}

type Option func(*SerpAPI)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *SerpAPI) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *SerpAPI) {
		c.baseURL = u
	}
}

func WithRate(perSecond float64) Option {
	return func(c *SerpAPI) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func NewSerpAPI(apiKey string, opts ...Option) *SerpAPI {
	c := &SerpAPI{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRate), 1),
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type serpResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Link string `json:"link"`
	} `json:"organic_results"`
}

func (c *SerpAPI) Search(ctx context.Context, query, domain string, limit int) ([]string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, ErrMissingKey
	}
	if limit <= 0 {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("num", strconv.Itoa(limit*overfetch))
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading serpapi response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("serpapi search failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed serpResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding serpapi response: %w", err)
	}
	if parsed.Error != "" && len(parsed.OrganicResults) == 0 {
		// SerpAPI reports "no results" as an error field.
		if strings.Contains(strings.ToLower(parsed.Error), "hasn't returned any results") {
			return nil, nil
		}
		return nil, fmt.Errorf("serpapi: %s", parsed.Error)
	}

	return filterLinks(parsed, domain, limit), nil
}

func filterLinks(parsed serpResponse, domain string, limit int) []string {
	domain = strings.ToLower(domain)
	seen := make(map[string]bool)
	var urls []string
	for _, r := range parsed.OrganicResults {
		link := strings.TrimSpace(r.Link)
		if link == "" || seen[link] {
			continue
		}
		if !strings.Contains(strings.ToLower(link), domain) {
			continue
		}
		seen[link] = true
		urls = append(urls, link)
		if len(urls) >= limit {
			break
		}
	}
	return urls
}
