// Package copilot implements the library assistant, the topic discovery
// assistant and the documentation assistant.
package copilot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/cache"
	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/llm"
	"github.com/sentivibe/sentivibe-api/pkg/search"
	"github.com/sentivibe/sentivibe-api/pkg/tier"
)

const (
	librarySize     = 100
	libraryCacheKey = "copilot:library"
	maxQueryChars   = 1000
	maxHistory      = 10
)

type Store interface {
	ListAnalyses(ctx context.Context, limit, offset int) ([]db.Analysis, error)
}

type Service struct {
	store    Store
	llm      llm.Client
	searcher search.Searcher
	cache    *cache.Cache
}

func NewService(store Store, client llm.Client, searcher search.Searcher, c *cache.Cache) *Service {
	return &Service{store: store, llm: client, searcher: searcher, cache: c}
}

// LibraryEntry is the compact form of an analysis given to the model.
type LibraryEntry struct {
	VideoID      string   `json:"video_id"`
	Title        string   `json:"title"`
	Channel      string   `json:"channel"`
	Sentiment    string   `json:"sentiment"`
	Themes       []string `json:"themes"`
	ThumbnailURL string   `json:"thumbnail_url"`
}

type Recommendation struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Reason       string `json:"reason"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

type RecommendResponse struct {
	Reply           string           `json:"reply"`
	Recommendations []Recommendation `json:"recommendations"`
	NewTopics       []string         `json:"new_topics"`
}

type DiscoverResponse struct {
	Reply   string   `json:"reply"`
	Topics  []string `json:"topics"`
	Queries []string `json:"queries"`
	Sources []string `json:"sources,omitempty"`
}

type DocsResponse struct {
	Answer string `json:"answer"`
}

// Recommend suggests library videos for query. Recommendations that do not
// name a video in the library are dropped.
func (s *Service) Recommend(ctx context.Context, query string, t tier.Tier) (*RecommendResponse, error) {
	query, err := cleanQuery(query)
	if err != nil {
		return nil, err
	}

	library, err := s.library(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]LibraryEntry, len(library))
	var b strings.Builder
	b.WriteString("Library:\n")
	for _, e := range library {
		byID[e.VideoID] = e
		fmt.Fprintf(&b, "- %s | %s | %s | %s | %s\n", e.VideoID, e.Title, e.Channel, e.Sentiment, strings.Join(e.Themes, ", "))
	}
	fmt.Fprintf(&b, "\nUser request: %s", query)

	max := maxRecommendations(t)
	req := llm.UserPrompt("copilot", fmt.Sprintf(recommendSystemPrompt, max), b.String())
	req.JSON = true
	raw, err := s.llm.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := llm.DecodeJSON[RecommendResponse](raw).Unwrap("copilot")
	if err != nil {
		return nil, err
	}

	filtered := make([]Recommendation, 0, len(resp.Recommendations))
	seen := map[string]bool{}
	for _, r := range resp.Recommendations {
		entry, ok := byID[r.VideoID]
		if !ok || seen[r.VideoID] {
			log.Debugf("Copilot: dropping recommendation for unknown video %q", r.VideoID)
			continue
		}
		seen[r.VideoID] = true
		r.Title = entry.Title
		r.ThumbnailURL = entry.ThumbnailURL
		filtered = append(filtered, r)
		if len(filtered) == max {
			break
		}
	}
	resp.Recommendations = filtered
	if resp.NewTopics == nil {
		resp.NewTopics = []string{}
	}
	return &resp, nil
}

// library returns the recent analyses, cached for cache.LibraryTTL.
func (s *Service) library(ctx context.Context) ([]LibraryEntry, error) {
	var entries []LibraryEntry
	if s.cache.GetJSON(ctx, libraryCacheKey, &entries) {
		return entries, nil
	}

	analyses, err := s.store.ListAnalyses(ctx, librarySize, 0)
	if err != nil {
		return nil, apperr.Internal("failed to load library", err)
	}
	entries = make([]LibraryEntry, 0, len(analyses))
	for _, a := range analyses {
		themes := make([]string, 0, len(a.Analysis.V.KeyThemes))
		for _, th := range a.Analysis.V.KeyThemes {
			themes = append(themes, th.Theme)
		}
		entries = append(entries, LibraryEntry{
			VideoID:      a.VideoID,
			Title:        a.Title,
			Channel:      a.ChannelTitle,
			Sentiment:    a.Analysis.V.Sentiment.Overall,
			Themes:       themes,
			ThumbnailURL: a.ThumbnailURL,
		})
	}

	if err := s.cache.SetJSON(ctx, libraryCacheKey, entries, cache.LibraryTTL); err != nil {
		log.Warnf("Copilot: failed to cache library snapshot: %v", err)
	}
	return entries, nil
}

// InvalidateLibrary drops the cached library snapshot.
func (s *Service) InvalidateLibrary(ctx context.Context) {
	if err := s.cache.Delete(ctx, libraryCacheKey); err != nil {
		log.Warnf("Copilot: failed to invalidate library snapshot: %v", err)
	}
}

// Discover suggests topics to analyze, optionally grounded in web results.
func (s *Service) Discover(ctx context.Context, query string, deepSearch bool) (*DiscoverResponse, error) {
	query, err := cleanQuery(query)
	if err != nil {
		return nil, err
	}

	prompt := "User request: " + query
	var sources []string
	if deepSearch && s.searcher != nil {
		results, err := s.searcher.Search(ctx, query, 5)
		switch {
		case err == nil:
			prompt += "\n\nWeb results:\n" + search.FormatContext(results)
			for _, r := range results {
				sources = append(sources, r.Link)
			}
		case !errors.Is(err, search.ErrSearchDisabled):
			log.Warnf("Copilot: discovery search failed, continuing without web results: %v", err)
		}
	}

	req := llm.UserPrompt("copilot_discover", discoverSystemPrompt, prompt)
	req.JSON = true
	raw, err := s.llm.Complete(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := llm.DecodeJSON[DiscoverResponse](raw).Unwrap("discovery")
	if err != nil {
		return nil, err
	}
	resp.Sources = sources
	return &resp, nil
}

// AskDocs answers a product question from the built-in documentation.
func (s *Service) AskDocs(ctx context.Context, question string, history []llm.Message) (*DocsResponse, error) {
	question, err := cleanQuery(question)
	if err != nil {
		return nil, err
	}

	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	messages := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		if (m.Role == llm.RoleUser || m.Role == llm.RoleAssistant) && strings.TrimSpace(m.Content) != "" {
			messages = append(messages, m)
		}
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	raw, err := s.llm.Complete(ctx, llm.Request{
		Purpose:  "docs",
		System:   fmt.Sprintf(docsSystemPrompt, planTable()),
		Messages: messages,
		JSON:     true,
	})
	if err != nil {
		return nil, err
	}
	resp, err := llm.DecodeJSON[DocsResponse](raw).Unwrap("documentation answer")
	if err != nil {
		return nil, err
	}
	if resp.Answer == "" {
		return nil, apperr.Parse("documentation answer is empty", llm.ErrMalformedJSON)
	}
	return &resp, nil
}

func cleanQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", apperr.Validation("Query is required")
	}
	if len(q) > maxQueryChars {
		return "", apperr.Validationf("Query must be at most %d characters", maxQueryChars)
	}
	return q, nil
}

func maxRecommendations(t tier.Tier) int {
	if t == tier.Paid {
		return 8
	}
	return 3
}
