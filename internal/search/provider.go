package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// ErrProviderUnavailable signals that the external provider is not
// configured or not reachable.  The hybrid adapter treats it as a degrade
// signal, not a failure.
var ErrProviderUnavailable = errors.New("search provider unavailable")

// ExternalResult is one hit from the external content provider.
type ExternalResult struct {
	ExternalID      string `json:"external_id"`
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	ThumbnailURL    string `json:"thumbnail_url"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Provider is the capability boundary to the external content search.  An
// implementation may be unconfigured, in which case Search returns
// ErrProviderUnavailable and callers degrade to catalog-only results.
type Provider interface {
	Search(ctx context.Context, text string, limit int) ([]ExternalResult, error)
}

// HTTPProvider queries a JSON search API.  The endpoint is expected to
// accept ?q=&limit= and answer {"items": [{"id", "title", "channel",
// "thumbnail_url", "duration_seconds"}]}.  Raw item titles are split into
// {title, artist} with the normalizer; when the split finds no artist the
// channel name is used instead.
type HTTPProvider struct {
	baseURL        string
	apiKey         string
	filterKeywords string
	client         *http.Client
}

// NewHTTPProviderFromEnv builds the provider from SEARCH_PROVIDER_URL,
// SEARCH_PROVIDER_KEY and SEARCH_FILTER_KEYWORDS.  Returns nil when no URL
// is configured; a nil provider means the capability is unavailable.
func NewHTTPProviderFromEnv() *HTTPProvider {
	base := os.Getenv("SEARCH_PROVIDER_URL")
	if base == "" {
		return nil
	}
	return &HTTPProvider{
		baseURL:        strings.TrimRight(base, "/"),
		apiKey:         os.Getenv("SEARCH_PROVIDER_KEY"),
		filterKeywords: os.Getenv("SEARCH_FILTER_KEYWORDS"),
		client:         &http.Client{Timeout: 5 * time.Second},
	}
}

type providerItem struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Channel         string `json:"channel"`
	ThumbnailURL    string `json:"thumbnail_url"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Search queries the provider.  The configured filter keywords (e.g.
// "karaoke") are appended to the query text so the provider biases its
// results toward playable content.
func (p *HTTPProvider) Search(ctx context.Context, text string, limit int) ([]ExternalResult, error) {
	if p == nil {
		return nil, ErrProviderUnavailable
	}

	q := text
	if p.filterKeywords != "" {
		q = text + " " + p.filterKeywords
	}
	u := fmt.Sprintf("%s/search?q=%s&limit=%d", p.baseURL, url.QueryEscape(q), limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, ErrProviderUnavailable
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, ErrProviderUnavailable
	}

	var body struct {
		Items []providerItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, ErrProviderUnavailable
	}

	out := make([]ExternalResult, 0, len(body.Items))
	for _, it := range body.Items {
		title, artist := SplitTitle(it.Title)
		if artist == "" {
			artist = it.Channel
		}
		out = append(out, ExternalResult{
			ExternalID:      it.ID,
			Title:           title,
			Artist:          artist,
			ThumbnailURL:    it.ThumbnailURL,
			DurationSeconds: it.DurationSeconds,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
