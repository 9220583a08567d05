// Package chat streams persona-driven conversations about a stored analysis,
// comparison or multi-comparison.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/analysis"
	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/llm"
	"github.com/sentivibe/sentivibe-api/pkg/search"
	"github.com/sentivibe/sentivibe-api/pkg/tier"
	"github.com/sentivibe/sentivibe-api/pkg/youtube"
)

// Subject is what a chat session is about.
type Subject string

const (
	SubjectVideo           Subject = "video"
	SubjectComparison      Subject = "comparison"
	SubjectMultiComparison Subject = "multi_comparison"
)

const (
	searchResults   = 5
	maxMessageChars = 4000
	// sessionTTL bounds how long the server remembers a session's count.
	sessionTTL = 24 * time.Hour
)

type Store interface {
	FindAnalysisByVideoID(ctx context.Context, videoID string) (*db.Analysis, error)
	FindAnalysisByID(ctx context.Context, id uuid.UUID) (*db.Analysis, error)
	FindComparisonByID(ctx context.Context, id uuid.UUID) (*db.Comparison, error)
	FindMultiComparisonByID(ctx context.Context, id uuid.UUID) (*db.MultiComparison, error)
	ListMultiComparisonVideos(ctx context.Context, id uuid.UUID) ([]db.Analysis, error)
}

// SessionCounter keeps a server-side message count per session.
// *cache.Cache implements it; ok is false when no count is available.
type SessionCounter interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (n int64, ok bool)
}

type Service struct {
	store    Store
	llm      llm.Client
	searcher search.Searcher
	sessions SessionCounter
	// DeepModel is used for deep think. Empty keeps the default model with a
	// step-by-step instruction.
	DeepModel string
}

func NewService(store Store, client llm.Client, searcher search.Searcher, sessions SessionCounter, deepModel string) *Service {
	return &Service{store: store, llm: client, searcher: searcher, sessions: sessions, DeepModel: deepModel}
}

type Request struct {
	Subject Subject
	// Target is a video link or ID for SubjectVideo, otherwise the
	// comparison ID.
	Target string
	// Messages is the whole session so far, ending with the new user message.
	Messages []llm.Message
	Options  Options
	Tier     tier.Tier
	// Caller keys the server-side session count. Empty disables it.
	Caller string
}

// Stream answers the last user message, calling write with each fragment.
func (s *Service) Stream(ctx context.Context, req Request, write func(string) error) error {
	messages, err := validateMessages(req.Messages)
	if err != nil {
		return err
	}
	// The history is client-supplied and can be truncated, so the larger of
	// it and the server-side count is charged.
	sent := countUser(messages)
	if n, ok := s.countSession(ctx, req); ok && n > sent {
		sent = n
	}
	if err := tier.CheckSession(req.Tier, sent); err != nil {
		return err
	}

	background, err := s.background(ctx, req.Subject, req.Target)
	if err != nil {
		return err
	}

	opts := Normalize(req.Options, req.Tier)
	words := tier.For(req.Tier).ChatResponseWords

	var web string
	if opts.DeepSearch {
		web = s.webContext(ctx, messages[len(messages)-1].Content)
	}

	completion := llm.Request{
		Purpose:   "chat",
		System:    systemPrompt(opts, words, background, web),
		Messages:  messages,
		MaxTokens: words * 2,
	}
	if opts.DeepThink {
		completion.Purpose = "chat_deep"
		completion.Model = s.DeepModel
		completion.MaxTokens = words * 4
	}

	log.Debugf("Chat: streaming %s reply (persona %s, deep think %v, deep search %v)",
		req.Subject, opts.Persona, opts.DeepThink, opts.DeepSearch)
	return s.llm.Stream(ctx, completion, write)
}

// background loads the subject and renders it as prompt context.
func (s *Service) background(ctx context.Context, subject Subject, target string) (string, error) {
	switch subject {
	case SubjectVideo:
		videoID, err := youtube.ExtractVideoID(target)
		if err != nil {
			return "", apperr.Validation("Invalid YouTube link")
		}
		a, err := s.store.FindAnalysisByVideoID(ctx, videoID)
		if err != nil {
			return "", apperr.Internal("failed to load analysis", err)
		}
		if a == nil {
			return "", apperr.NotFound("Analysis not found. Analyze the video before chatting about it.")
		}
		return analysis.Describe(a, true) + describeQA(a.CustomQA.V), nil

	case SubjectComparison:
		id, err := uuid.Parse(target)
		if err != nil {
			return "", apperr.Validation("Invalid comparison ID")
		}
		c, err := s.store.FindComparisonByID(ctx, id)
		if err != nil {
			return "", apperr.Internal("failed to load comparison", err)
		}
		if c == nil {
			return "", apperr.NotFound("Comparison not found")
		}
		var videos []db.Analysis
		for _, vid := range []uuid.UUID{c.VideoAID, c.VideoBID} {
			a, err := s.store.FindAnalysisByID(ctx, vid)
			if err != nil {
				return "", apperr.Internal("failed to load analysis", err)
			}
			if a != nil {
				videos = append(videos, *a)
			}
		}
		return describeComparison(videos, c.ComparisonData.V, c.CustomQA.V), nil

	case SubjectMultiComparison:
		id, err := uuid.Parse(target)
		if err != nil {
			return "", apperr.Validation("Invalid comparison ID")
		}
		mc, err := s.store.FindMultiComparisonByID(ctx, id)
		if err != nil {
			return "", apperr.Internal("failed to load comparison", err)
		}
		if mc == nil {
			return "", apperr.NotFound("Comparison not found")
		}
		videos, err := s.store.ListMultiComparisonVideos(ctx, id)
		if err != nil {
			return "", apperr.Internal("failed to load comparison videos", err)
		}
		return describeComparison(videos, mc.ComparisonData.V, mc.CustomQA.V), nil
	}
	return "", apperr.Validationf("Unknown chat subject %q", subject)
}

// webContext returns formatted search results, or "" when search is
// unavailable. Chat proceeds without web context on failure.
func (s *Service) webContext(ctx context.Context, query string) string {
	if s.searcher == nil {
		return ""
	}
	results, err := s.searcher.Search(ctx, query, searchResults)
	if err != nil {
		if !errors.Is(err, search.ErrSearchDisabled) {
			log.Warnf("Chat: deep search failed, continuing without web context: %v", err)
		}
		return ""
	}
	return search.FormatContext(results)
}

func systemPrompt(opts Options, words int, background, web string) string {
	var b strings.Builder
	b.WriteString(opts.Persona.Prompt())
	fmt.Fprintf(&b, "\n\nAnswer questions about the audience reaction described below. Keep every reply under %d words.", words)
	if opts.DeepThink {
		b.WriteString(" Reason through the evidence step by step before giving your final answer, and only show the answer.")
	}
	b.WriteString("\n\n")
	b.WriteString(background)
	if web != "" {
		b.WriteString("\nRecent web results (cite them when you use them):\n")
		b.WriteString(web)
	}
	return b.String()
}

func describeComparison(videos []db.Analysis, data db.ComparativeData, qa []db.CustomQA) string {
	var b strings.Builder
	for i := range videos {
		fmt.Fprintf(&b, "### Video %d\n%s\n", i+1, analysis.Describe(&videos[i], false))
	}
	if data.Summary != "" {
		fmt.Fprintf(&b, "Comparison summary: %s\n", data.Summary)
	}
	if data.SentimentComparison != "" {
		fmt.Fprintf(&b, "Sentiment comparison: %s\n", data.SentimentComparison)
	}
	if len(data.CommonThemes) > 0 {
		fmt.Fprintf(&b, "Common themes: %s\n", strings.Join(data.CommonThemes, ", "))
	}
	for _, d := range data.DivergentThemes {
		fmt.Fprintf(&b, "Divergent theme %s: %s\n", d.Theme, d.Description)
	}
	b.WriteString(describeQA(qa))
	return b.String()
}

func describeQA(qa []db.CustomQA) string {
	var b strings.Builder
	for _, entry := range qa {
		if entry.Answer == nil {
			continue
		}
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", entry.Question, *entry.Answer)
	}
	if b.Len() == 0 {
		return ""
	}
	return "Previously answered questions:\n" + b.String()
}

// validateMessages drops empty messages and checks the session ends with a
// user message.
func validateMessages(in []llm.Message) ([]llm.Message, error) {
	out := make([]llm.Message, 0, len(in))
	for _, m := range in {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			return nil, apperr.Validationf("Invalid message role %q", m.Role)
		}
		if len(content) > maxMessageChars {
			return nil, apperr.Validationf("Messages must be at most %d characters", maxMessageChars)
		}
		out = append(out, llm.Message{Role: m.Role, Content: content})
	}
	if len(out) == 0 || out[len(out)-1].Role != llm.RoleUser {
		return nil, apperr.Validation("A chat request must end with a user message")
	}
	return out, nil
}

// countSession counts this message against the caller's session on the
// same subject.
func (s *Service) countSession(ctx context.Context, req Request) (int, bool) {
	if s.sessions == nil || req.Caller == "" {
		return 0, false
	}
	target := req.Target
	if req.Subject == SubjectVideo {
		if id, err := youtube.ExtractVideoID(target); err == nil {
			target = id
		}
	}
	key := fmt.Sprintf("chat:session:%s:%s:%s", req.Caller, req.Subject, target)
	n, ok := s.sessions.Incr(ctx, key, sessionTTL)
	return int(n), ok
}

func countUser(messages []llm.Message) int {
	n := 0
	for _, m := range messages {
		if m.Role == llm.RoleUser {
			n++
		}
	}
	return n
}
