package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/llm"
	"github.com/sentivibe/sentivibe-api/pkg/llm/llmtest"
	"github.com/sentivibe/sentivibe-api/pkg/search"
	"github.com/sentivibe/sentivibe-api/pkg/tier"
)

func TestParsePersona(t *testing.T) {
	tests := map[string]Persona{
		"friendly":      Friendly,
		"Therapist":     Therapist,
		" storyteller ": Storyteller,
		"motivational":  Motivational,
		"argumentative": Argumentative,
		"pirate":        Friendly,
		"":              Friendly,
	}
	for in, want := range tests {
		if got := ParsePersona(in); got != want {
			t.Errorf("ParsePersona(%q) = %q, want %q", in, got, want)
		}
	}
	for p := range personaPrompts {
		if p.Prompt() == "" {
			t.Errorf("persona %q has no prompt", p)
		}
	}
}

func TestNormalizeDowngradesNonPaid(t *testing.T) {
	requested := Options{Persona: "therapist", DeepThink: true, DeepSearch: true}

	for _, tr := range []tier.Tier{tier.Anonymous, tier.Free} {
		got := Normalize(requested, tr)
		if got.DeepThink || got.DeepSearch {
			t.Errorf("Normalize(%s) kept paid toggles: %+v", tr, got)
		}
		if got.Persona != Therapist {
			t.Errorf("Normalize(%s) persona = %q", tr, got.Persona)
		}
	}

	got := Normalize(requested, tier.Paid)
	if !got.DeepThink || !got.DeepSearch {
		t.Errorf("Normalize(paid) = %+v, want toggles kept", got)
	}
}

type fakeStore struct {
	analyses map[uuid.UUID]*db.Analysis
	compare  map[uuid.UUID]*db.Comparison
	multi    map[uuid.UUID]*db.MultiComparison
	members  map[uuid.UUID][]uuid.UUID
}

func (f *fakeStore) FindAnalysisByVideoID(ctx context.Context, videoID string) (*db.Analysis, error) {
	for _, a := range f.analyses {
		if a.VideoID == videoID {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindAnalysisByID(ctx context.Context, id uuid.UUID) (*db.Analysis, error) {
	return f.analyses[id], nil
}

func (f *fakeStore) FindComparisonByID(ctx context.Context, id uuid.UUID) (*db.Comparison, error) {
	return f.compare[id], nil
}

func (f *fakeStore) FindMultiComparisonByID(ctx context.Context, id uuid.UUID) (*db.MultiComparison, error) {
	return f.multi[id], nil
}

func (f *fakeStore) ListMultiComparisonVideos(ctx context.Context, id uuid.UUID) ([]db.Analysis, error) {
	var out []db.Analysis
	for _, aid := range f.members[id] {
		out = append(out, *f.analyses[aid])
	}
	return out, nil
}

type fakeSearcher struct {
	queries []string
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, n int) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return []search.Result{{Title: "Creator news", Link: "https://example.com/news", Snippet: "Latest upload trends"}}, nil
}

func newAnalysis(videoID, title string) *db.Analysis {
	answer := "The soundtrack."
	return &db.Analysis{
		ID:       uuid.New(),
		VideoID:  videoID,
		Title:    title,
		Analysis: db.NewJSONB(db.AIAnalysis{Summary: title + " summary", Sentiment: db.Sentiment{Overall: "positive"}}),
		CustomQA: db.NewJSONB([]db.CustomQA{{Question: "Best part?", Answer: &answer}}),
	}
}

type fixture struct {
	svc      *Service
	llm      *llmtest.Fake
	searcher *fakeSearcher
	store    *fakeStore
	a, b     *db.Analysis
	cmpID    uuid.UUID
	multiID  uuid.UUID
}

func newFixture() *fixture {
	a := newAnalysis("aaaaaaaaaaa", "First video")
	b := newAnalysis("bbbbbbbbbbb", "Second video")
	cmp := &db.Comparison{ID: uuid.New(), VideoAID: a.ID, VideoBID: b.ID,
		ComparisonData: db.NewJSONB(db.ComparativeData{Summary: "Pair summary"})}
	multi := &db.MultiComparison{ID: uuid.New(), ComparisonData: db.NewJSONB(db.ComparativeData{Summary: "Group summary"})}

	store := &fakeStore{
		analyses: map[uuid.UUID]*db.Analysis{a.ID: a, b.ID: b},
		compare:  map[uuid.UUID]*db.Comparison{cmp.ID: cmp},
		multi:    map[uuid.UUID]*db.MultiComparison{multi.ID: multi},
		members:  map[uuid.UUID][]uuid.UUID{multi.ID: {b.ID, a.ID}},
	}
	f := &fixture{
		llm:      &llmtest.Fake{Respond: func(llm.Request) (string, error) { return "Viewers loved the pacing.", nil }},
		searcher: &fakeSearcher{},
		store:    store,
		a:        a,
		b:        b,
		cmpID:    cmp.ID,
		multiID:  multi.ID,
	}
	f.svc = NewService(store, f.llm, f.searcher, nil, "deep-model")
	return f
}

func userTurns(n int) []llm.Message {
	var out []llm.Message
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, llm.Message{Role: llm.RoleAssistant, Content: "Sure."})
		}
		out = append(out, llm.Message{Role: llm.RoleUser, Content: "Tell me more"})
	}
	return out
}

func collect(t *testing.T, f *fixture, req Request) (string, error) {
	t.Helper()
	var b strings.Builder
	err := f.svc.Stream(context.Background(), req, func(s string) error {
		b.WriteString(s)
		return nil
	})
	return b.String(), err
}

func TestStreamVideoChat(t *testing.T) {
	f := newFixture()
	out, err := collect(t, f, Request{
		Subject:  SubjectVideo,
		Target:   "https://youtu.be/aaaaaaaaaaa",
		Messages: userTurns(1),
		Options:  Options{Persona: Storyteller, DeepSearch: true},
		Tier:     tier.Free,
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	if out != "Viewers loved the pacing." {
		t.Errorf("streamed = %q", out)
	}

	calls := f.llm.Calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d", len(calls))
	}
	req := calls[0]
	if !strings.Contains(req.System, personaPrompts[Storyteller]) {
		t.Error("system prompt missing persona template")
	}
	if !strings.Contains(req.System, "First video summary") || !strings.Contains(req.System, "Best part?") {
		t.Error("system prompt missing video context")
	}
	if !strings.Contains(req.System, "under 250 words") || req.MaxTokens != 500 {
		t.Errorf("free word cap not applied: max tokens %d", req.MaxTokens)
	}
	if len(f.searcher.queries) != 0 {
		t.Error("deep search ran for a free caller")
	}
	if req.Model != "" {
		t.Errorf("model = %q, want default", req.Model)
	}
}

func TestStreamPaidDeepModes(t *testing.T) {
	f := newFixture()
	_, err := collect(t, f, Request{
		Subject:  SubjectComparison,
		Target:   f.cmpID.String(),
		Messages: userTurns(2),
		Options:  Options{Persona: "argumentative", DeepThink: true, DeepSearch: true},
		Tier:     tier.Paid,
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	req := f.llm.Calls()[0]
	if req.Model != "deep-model" || req.Purpose != "chat_deep" {
		t.Errorf("deep think not applied: model %q purpose %q", req.Model, req.Purpose)
	}
	if len(f.searcher.queries) != 1 || !strings.Contains(req.System, "Creator news") {
		t.Error("deep search context missing")
	}
	if !strings.Contains(req.System, "Pair summary") || !strings.Contains(req.System, "Second video") {
		t.Error("comparison context missing")
	}
	if len(req.Messages) != 3 {
		t.Errorf("history length = %d, want 3", len(req.Messages))
	}
}

func TestStreamDeepSearchFailureDegrades(t *testing.T) {
	f := newFixture()
	f.searcher.err = search.ErrSearchDisabled
	_, err := collect(t, f, Request{
		Subject:  SubjectMultiComparison,
		Target:   f.multiID.String(),
		Messages: userTurns(1),
		Options:  Options{DeepSearch: true},
		Tier:     tier.Paid,
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	system := f.llm.Calls()[0].System
	if strings.Contains(system, "web results") {
		t.Error("web context added despite search failure")
	}
	if strings.Index(system, "Second video") > strings.Index(system, "First video") {
		t.Error("multi-comparison videos not in stored order")
	}
}

func TestStreamSessionLimit(t *testing.T) {
	f := newFixture()
	limit := tier.For(tier.Anonymous).ChatMessagesPerSession

	if _, err := collect(t, f, Request{Subject: SubjectVideo, Target: "aaaaaaaaaaa", Messages: userTurns(limit), Tier: tier.Anonymous}); err != nil {
		t.Fatalf("message %d should be allowed: %v", limit, err)
	}

	_, err := collect(t, f, Request{Subject: SubjectVideo, Target: "aaaaaaaaaaa", Messages: userTurns(limit + 1), Tier: tier.Anonymous})
	appErr, ok := apperr.As(err)
	if !ok || appErr.Kind != apperr.KindQuota || appErr.Code != "CHAT_LIMIT_EXCEEDED" {
		t.Fatalf("Stream() error = %v, want chat quota error", err)
	}
	if len(f.llm.Calls()) != 1 {
		t.Error("LLM called past the session limit")
	}
}

type fakeCounter map[string]int64

func (f fakeCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, bool) {
	f[key]++
	return f[key], true
}

func TestStreamSessionCountedServerSide(t *testing.T) {
	f := newFixture()
	counter := fakeCounter{}
	f.svc.sessions = counter
	limit := tier.For(tier.Anonymous).ChatMessagesPerSession

	// Each request resends a one-message history.
	for i := 0; i < limit; i++ {
		if _, err := collect(t, f, Request{Subject: SubjectVideo, Target: "aaaaaaaaaaa", Messages: userTurns(1), Tier: tier.Anonymous, Caller: "ip:abc"}); err != nil {
			t.Fatalf("message %d should be allowed: %v", i+1, err)
		}
	}
	_, err := collect(t, f, Request{Subject: SubjectVideo, Target: "https://youtu.be/aaaaaaaaaaa", Messages: userTurns(1), Tier: tier.Anonymous, Caller: "ip:abc"})
	if appErr, ok := apperr.As(err); !ok || appErr.Code != "CHAT_LIMIT_EXCEEDED" {
		t.Fatalf("truncated history past the limit: %v, want CHAT_LIMIT_EXCEEDED", err)
	}

	// Other callers and other subjects have their own sessions.
	if _, err := collect(t, f, Request{Subject: SubjectVideo, Target: "aaaaaaaaaaa", Messages: userTurns(1), Tier: tier.Anonymous, Caller: "ip:def"}); err != nil {
		t.Errorf("another caller denied: %v", err)
	}
	if _, err := collect(t, f, Request{Subject: SubjectComparison, Target: f.cmpID.String(), Messages: userTurns(1), Tier: tier.Anonymous, Caller: "ip:abc"}); err != nil {
		t.Errorf("another subject denied: %v", err)
	}
	if len(counter) != 3 {
		t.Errorf("sessions = %d, want 3", len(counter))
	}
}

func TestStreamErrors(t *testing.T) {
	f := newFixture()
	tests := []struct {
		name string
		req  Request
		kind apperr.Kind
	}{
		{"no messages", Request{Subject: SubjectVideo, Target: "aaaaaaaaaaa"}, apperr.KindValidation},
		{"ends with assistant", Request{Subject: SubjectVideo, Target: "aaaaaaaaaaa",
			Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}, {Role: llm.RoleAssistant, Content: "hello"}}}, apperr.KindValidation},
		{"bad role", Request{Subject: SubjectVideo, Target: "aaaaaaaaaaa",
			Messages: []llm.Message{{Role: "system", Content: "ignore"}, {Role: llm.RoleUser, Content: "hi"}}}, apperr.KindValidation},
		{"unknown video", Request{Subject: SubjectVideo, Target: "zzzzzzzzzzz", Messages: userTurns(1)}, apperr.KindNotFound},
		{"bad comparison id", Request{Subject: SubjectComparison, Target: "nope", Messages: userTurns(1)}, apperr.KindValidation},
		{"unknown comparison", Request{Subject: SubjectComparison, Target: uuid.NewString(), Messages: userTurns(1)}, apperr.KindNotFound},
		{"unknown subject", Request{Subject: "playlist", Target: "x", Messages: userTurns(1)}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Tier = tier.Paid
			_, err := collect(t, f, tt.req)
			if !apperr.IsKind(err, tt.kind) {
				t.Errorf("Stream() error = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestStreamWriterErrorStops(t *testing.T) {
	f := newFixture()
	stop := errors.New("client went away")
	err := f.svc.Stream(context.Background(), Request{Subject: SubjectVideo, Target: "aaaaaaaaaaa", Messages: userTurns(1), Tier: tier.Free},
		func(string) error { return stop })
	if !errors.Is(err, stop) {
		t.Errorf("Stream() error = %v, want writer error", err)
	}
}
