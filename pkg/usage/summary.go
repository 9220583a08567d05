package usage

import (
	"context"
	"time"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/tier"
)

type ActionUsage struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// Summary is the usage view returned to clients.
type Summary struct {
	Tier     tier.Tier                   `json:"tier"`
	Actions  map[tier.Action]ActionUsage `json:"actions"`
	Limits   tier.Limits                 `json:"limits"`
	ResetsAt *time.Time                  `json:"resets_at,omitempty"`
}

var dailyActions = []tier.Action{
	tier.ActionAnalysis,
	tier.ActionComparison,
	tier.ActionCopilot,
	tier.ActionPDFDownload,
}

// Summarize reports used, limit and remaining for every daily action.
func (g *Gate) Summarize(ctx context.Context, caller Caller) (*Summary, error) {
	s := &Summary{
		Tier:    caller.Tier,
		Actions: make(map[tier.Action]ActionUsage, len(dailyActions)),
		Limits:  caller.Limits(),
	}
	for _, action := range dailyActions {
		used, err := g.Used(ctx, caller, action)
		if err != nil {
			return nil, apperr.Internal("failed to load usage", err)
		}
		s.Actions[action] = ActionUsage{
			Used:      used,
			Limit:     tier.Ceiling(caller.Tier, action),
			Remaining: tier.Remaining(caller.Tier, action, used),
		}
	}

	if !caller.Authenticated() {
		u, err := g.store.FindAnonymousUsage(ctx, caller.IPHash)
		if err != nil {
			return nil, apperr.Internal("failed to load usage", err)
		}
		if u != nil && g.now().Sub(u.WindowStartedAt) < Window {
			resets := u.WindowStartedAt.Add(Window)
			s.ResetsAt = &resets
		}
	}
	return s, nil
}

// AnonymousSnapshot summarizes the counters of an unauthenticated client IP.
func (g *Gate) AnonymousSnapshot(ctx context.Context, ip string) (*Summary, error) {
	return g.Summarize(ctx, Caller{IPHash: HashIP(ip), Tier: tier.Anonymous})
}
