package comparison

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sentivibe/sentivibe-api/pkg/analysis"
	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/llm"
	"github.com/sentivibe/sentivibe-api/pkg/llm/llmtest"
	"github.com/sentivibe/sentivibe-api/pkg/tier"
	"github.com/sentivibe/sentivibe-api/pkg/youtube"
	"github.com/sentivibe/sentivibe-api/pkg/youtube/youtubetest"
)

// fakeStore backs both the analysis pipeline and the comparison service.
type fakeStore struct {
	analyses    map[string]*db.Analysis
	comparisons []*db.Comparison
	multi       []*db.MultiComparison
	members     map[uuid.UUID][]uuid.UUID
	now         func() time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		analyses: map[string]*db.Analysis{},
		members:  map[uuid.UUID][]uuid.UUID{},
		now:      time.Now,
	}
}

func (f *fakeStore) FindAnalysisByVideoID(ctx context.Context, videoID string) (*db.Analysis, error) {
	a, ok := f.analyses[videoID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) UpsertAnalysis(ctx context.Context, a *db.Analysis) (*db.Analysis, error) {
	if prev, ok := f.analyses[a.VideoID]; ok {
		a.ID = prev.ID
	} else {
		a.ID = uuid.New()
	}
	cp := *a
	f.analyses[a.VideoID] = &cp
	return a, nil
}

func (f *fakeStore) UpdateAnalysisCustomQA(ctx context.Context, id uuid.UUID, qa []db.CustomQA) error {
	return nil
}

func (f *fakeStore) FindComparisonByPair(ctx context.Context, a, b uuid.UUID) (*db.Comparison, error) {
	for _, c := range f.comparisons {
		if (c.VideoAID == a && c.VideoBID == b) || (c.VideoAID == b && c.VideoBID == a) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SaveComparison(ctx context.Context, c *db.Comparison) (*db.Comparison, error) {
	c.UpdatedAt = f.now()
	for i, prev := range f.comparisons {
		if prev.VideoAID == c.VideoAID && prev.VideoBID == c.VideoBID {
			c.ID = prev.ID
			cp := *c
			f.comparisons[i] = &cp
			return c, nil
		}
	}
	c.ID = uuid.New()
	cp := *c
	f.comparisons = append(f.comparisons, &cp)
	return c, nil
}

func (f *fakeStore) UpdateComparisonCustomQA(ctx context.Context, id uuid.UUID, qa []db.CustomQA) error {
	for _, c := range f.comparisons {
		if c.ID == id {
			c.CustomQA = db.NewJSONB(qa)
			return nil
		}
	}
	return errors.New("not found")
}

func (f *fakeStore) CreateMultiComparison(ctx context.Context, mc *db.MultiComparison, ids []uuid.UUID) (*db.MultiComparison, error) {
	mc.ID = uuid.New()
	cp := *mc
	f.multi = append(f.multi, &cp)
	f.members[mc.ID] = append([]uuid.UUID(nil), ids...)
	return mc, nil
}

const analysisJSON = `{"sentiment": {"overall": "positive", "score": 0.5, "positive": 60, "neutral": 30, "negative": 10},
	"emotional_tones": [{"tone": "joy", "intensity": 0.7}],
	"key_themes": [{"theme": "editing", "description": "Tight editing"}],
	"summary": "Viewers enjoyed it."}`

const comparisonJSON = `{"summary": "Both videos landed well.", "sentiment_comparison": "Video 1 is warmer.",
	"common_themes": ["editing"], "divergent_themes": [{"theme": "length", "description": "Video 2 drags"}],
	"audience_insights": ["Fans want more"], "recommendations": ["Keep it short"], "videos": []}`

type harness struct {
	svc    *Service
	store  *fakeStore
	videos *youtubetest.Fake
	llm    *llmtest.Fake
}

func newHarness() *harness {
	h := &harness{store: newFakeStore(), videos: youtubetest.New()}
	h.llm = &llmtest.Fake{Respond: func(req llm.Request) (string, error) {
		switch req.Purpose {
		case "analysis":
			return analysisJSON, nil
		case "comparison":
			return comparisonJSON, nil
		case "comparison_narrative":
			return "Video 1 resonated more than video 2.", nil
		case "custom_question":
			return "Mostly the editing.", nil
		}
		return "", errors.New("unexpected purpose " + req.Purpose)
	}}
	analyzer := analysis.NewService(h.store, h.videos, h.llm)
	h.svc = NewService(h.store, analyzer, h.llm)
	return h
}

var ids = []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"}

func links(n int) []string {
	out := make([]string, 0, n)
	for _, id := range ids[:n] {
		out = append(out, youtube.WatchURL(id))
	}
	return out
}

func TestCompareManyCreatesOneComparison(t *testing.T) {
	h := newHarness()
	for _, id := range ids {
		h.videos.Add(id, 60)
	}
	owner := uuid.NullUUID{UUID: uuid.New(), Valid: true}

	res, err := h.svc.CompareMany(context.Background(), MultiCompareRequest{
		Links:     links(3),
		Questions: []db.CustomQA{{Question: "What do they share?"}},
		Owner:     owner,
		Limits:    tier.For(tier.Paid),
	})
	if err != nil {
		t.Fatalf("CompareMany() error = %v", err)
	}
	if len(h.store.multi) != 1 {
		t.Fatalf("multi-comparisons = %d, want 1", len(h.store.multi))
	}

	mc := h.store.multi[0]
	if mc.UserID != owner {
		t.Errorf("owner = %+v", mc.UserID)
	}
	if mc.Title != "Video aaaaaaaaaaa vs Video bbbbbbbbbbb vs Video ccccccccccc" {
		t.Errorf("default title = %q", mc.Title)
	}
	if mc.ComparisonData.V.Narrative == "" || mc.ComparisonData.V.Summary != "Both videos landed well." {
		t.Errorf("comparison data = %+v", mc.ComparisonData.V)
	}
	if len(mc.CustomQA.V) != 1 || mc.CustomQA.V[0].Answer == nil {
		t.Errorf("custom QA = %+v", mc.CustomQA.V)
	}

	members := h.store.members[mc.ID]
	if len(members) != 3 {
		t.Fatalf("members = %d, want 3", len(members))
	}
	for i, id := range ids {
		if members[i] != h.store.analyses[id].ID || res.Videos[i].VideoID != id {
			t.Errorf("member %d out of order", i)
		}
	}

	if n := len(h.llm.CallsFor("analysis")); n != 3 {
		t.Errorf("analysis calls = %d, want 3", n)
	}
	if n := len(h.llm.CallsFor("comparison")); n != 1 {
		t.Errorf("comparison calls = %d, want 1", n)
	}
}

func TestCompareManyAbortsOnVideoFailure(t *testing.T) {
	h := newHarness()
	h.videos.Add(ids[0], 60)
	h.videos.Add(ids[1], analysis.MinComments-10)
	h.videos.Add(ids[2], 60)

	_, err := h.svc.CompareMany(context.Background(), MultiCompareRequest{Links: links(3), Limits: tier.For(tier.Paid)})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("CompareMany() error = %v, want validation", err)
	}
	if appErr, _ := apperr.As(err); !strings.HasPrefix(appErr.Message, "Video 2 (") {
		t.Errorf("message = %q, should name the failing video", appErr.Message)
	}
	if len(h.store.multi) != 0 {
		t.Error("failed comparison was written")
	}
	if h.videos.MetadataCalls != 2 {
		t.Errorf("metadata calls = %d, videos after the failure should not be fetched", h.videos.MetadataCalls)
	}
	if n := len(h.llm.CallsFor("comparison")); n != 0 {
		t.Errorf("comparison calls = %d after a video failure", n)
	}
}

func TestCompareManyValidatesBeforeExternalCalls(t *testing.T) {
	tooMany := make([]string, 0, MaxVideos+1)
	for i := 0; i <= MaxVideos; i++ {
		tooMany = append(tooMany, youtube.WatchURL(strings.Repeat(string(rune('a'+i)), 11)))
	}

	tests := []struct {
		name  string
		links []string
	}{
		{"one link", links(1)},
		{"too many links", tooMany},
		{"duplicate video", []string{youtube.WatchURL(ids[0]), "https://youtu.be/" + ids[0]}},
		{"invalid link", []string{youtube.WatchURL(ids[0]), "https://vimeo.com/12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			authorized := false
			_, err := h.svc.CompareMany(context.Background(), MultiCompareRequest{
				Links:     tt.links,
				Limits:    tier.For(tier.Paid),
				Authorize: func(context.Context) error { authorized = true; return nil },
			})
			if apperr.StatusCode(err) != 400 {
				t.Fatalf("CompareMany() error = %v, want 400", err)
			}
			if authorized || h.videos.MetadataCalls != 0 || len(h.llm.Calls()) != 0 {
				t.Error("external calls made before validation")
			}
		})
	}
}

func TestCompareManyAuthorizeDenied(t *testing.T) {
	h := newHarness()
	h.videos.Add(ids[0], 60)
	h.videos.Add(ids[1], 60)
	denied := tier.Check(tier.Anonymous, tier.ActionComparison, 1)

	_, err := h.svc.CompareMany(context.Background(), MultiCompareRequest{
		Links:     links(2),
		Limits:    tier.For(tier.Anonymous),
		Authorize: func(context.Context) error { return denied },
	})
	if !errors.Is(err, denied) {
		t.Fatalf("CompareMany() error = %v, want quota error", err)
	}
	if h.videos.MetadataCalls != 0 {
		t.Error("videos fetched after a quota denial")
	}
}

func TestCompareReusesFreshComparison(t *testing.T) {
	h := newHarness()
	h.videos.Add(ids[0], 60)
	h.videos.Add(ids[1], 60)
	ctx := context.Background()

	first, err := h.svc.Compare(ctx, CompareRequest{LinkA: youtube.WatchURL(ids[0]), LinkB: youtube.WatchURL(ids[1]), Limits: tier.For(tier.Free)})
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if !first.Generated {
		t.Error("first comparison should be generated")
	}

	authorized := false
	second, err := h.svc.Compare(ctx, CompareRequest{
		LinkA:     youtube.WatchURL(ids[1]),
		LinkB:     youtube.WatchURL(ids[0]),
		Questions: []db.CustomQA{{Question: "Which one is funnier?"}},
		Limits:    tier.For(tier.Free),
		Authorize: func(context.Context) error { authorized = true; return nil },
	})
	if err != nil {
		t.Fatalf("Compare() reuse error = %v", err)
	}
	if second.Generated || authorized {
		t.Error("fresh comparison should be reused without authorization")
	}
	if second.Comparison.ID != first.Comparison.ID {
		t.Error("reuse returned a different comparison")
	}
	if n := len(h.llm.CallsFor("comparison")); n != 1 {
		t.Errorf("comparison calls = %d, want 1", n)
	}
	if qa := h.store.comparisons[0].CustomQA.V; len(qa) != 1 || qa[0].Answer == nil {
		t.Errorf("new question not answered on reuse: %+v", qa)
	}
}

func TestCompareForceRegeneratesSameRow(t *testing.T) {
	h := newHarness()
	h.videos.Add(ids[0], 60)
	h.videos.Add(ids[1], 60)
	ctx := context.Background()
	req := CompareRequest{LinkA: youtube.WatchURL(ids[0]), LinkB: youtube.WatchURL(ids[1]), Limits: tier.For(tier.Free)}

	h.svc.Compare(ctx, req)
	req.LinkA, req.LinkB = req.LinkB, req.LinkA
	req.Force = true
	res, err := h.svc.Compare(ctx, req)
	if err != nil {
		t.Fatalf("Compare() forced error = %v", err)
	}
	if !res.Generated {
		t.Error("forced comparison should be generated")
	}
	if len(h.store.comparisons) != 1 {
		t.Errorf("comparisons = %d, want 1", len(h.store.comparisons))
	}
	if n := len(h.llm.CallsFor("comparison")); n != 2 {
		t.Errorf("comparison calls = %d, want 2", n)
	}
}

func TestCompareStaleComparisonRegenerates(t *testing.T) {
	h := newHarness()
	h.videos.Add(ids[0], 60)
	h.videos.Add(ids[1], 60)
	ctx := context.Background()
	req := CompareRequest{LinkA: youtube.WatchURL(ids[0]), LinkB: youtube.WatchURL(ids[1]), Limits: tier.For(tier.Free)}

	h.svc.Compare(ctx, req)
	h.store.comparisons[0].UpdatedAt = time.Now().Add(-analysis.StalenessThreshold - time.Hour)

	res, err := h.svc.Compare(ctx, req)
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if !res.Generated {
		t.Error("stale comparison should be regenerated")
	}
}

func TestCompareMalformedJSON(t *testing.T) {
	h := newHarness()
	h.videos.Add(ids[0], 60)
	h.videos.Add(ids[1], 60)
	respond := h.llm.Respond
	h.llm.Respond = func(req llm.Request) (string, error) {
		if req.Purpose == "comparison" {
			return "Here is my comparison: both are great!", nil
		}
		return respond(req)
	}

	_, err := h.svc.Compare(context.Background(), CompareRequest{LinkA: youtube.WatchURL(ids[0]), LinkB: youtube.WatchURL(ids[1]), Limits: tier.For(tier.Free)})
	if !apperr.IsKind(err, apperr.KindParse) {
		t.Fatalf("Compare() error = %v, want parse", err)
	}
	if len(h.store.comparisons) != 0 {
		t.Error("malformed comparison was saved")
	}
}
