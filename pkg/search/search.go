// Package search runs web searches through Google Programmable Search for the
// deep search and discovery features.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/cache"
)

var ErrSearchDisabled = errors.New("web search is not configured")

type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Searcher is implemented by Client and by test fakes.
type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]Result, error)
}

// Client is a Custom Search client. A Client without a service returns
// ErrSearchDisabled from every call.
type Client struct {
	engineID string
	service  *customsearch.Service
	cache    *cache.Cache
}

// NewClient returns a disabled client when apiKey or engineID is empty.
func NewClient(ctx context.Context, apiKey, engineID string, c *cache.Cache, opts ...option.ClientOption) (*Client, error) {
	if apiKey == "" || engineID == "" {
		log.Info("Search: API key or engine ID not configured, web search disabled")
		return &Client{cache: c}, nil
	}

	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating custom search service: %w", err)
	}
	return &Client{engineID: engineID, service: svc, cache: c}, nil
}

func (c *Client) Enabled() bool {
	return c != nil && c.service != nil
}

// Search returns up to n results (max 10) for query, served from cache when
// possible.
func (c *Client) Search(ctx context.Context, query string, n int) ([]Result, error) {
	if !c.Enabled() {
		return nil, ErrSearchDisabled
	}
	if n <= 0 || n > 10 {
		n = 10
	}
	query = strings.TrimSpace(query)

	key := cacheKey(query, n)
	var cached []Result
	if c.cache.GetJSON(ctx, key, &cached) {
		return cached, nil
	}

	resp, err := c.service.Cse.List().Cx(c.engineID).Q(query).Num(int64(n)).Context(ctx).Do()
	if err != nil {
		log.Errorf("Search: query failed: %v", err)
		return nil, apperr.Upstream("Search", err.Error(), err)
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, Result{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
	}

	if err := c.cache.SetJSON(ctx, key, results, cache.SearchTTL); err != nil {
		log.Warnf("Search: failed to cache results: %v", err)
	}
	return results, nil
}

// FormatContext renders results as a numbered list for a prompt.
func FormatContext(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s (%s)\n   %s\n", i+1, r.Title, r.Link, r.Snippet)
	}
	return b.String()
}

func cacheKey(query string, n int) string {
	h := sha256.Sum256([]byte(strings.ToLower(query)))
	return fmt.Sprintf("search:%d:%s", n, hex.EncodeToString(h[:16]))
}
