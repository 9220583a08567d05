// Package usage resolves who is calling and enforces the daily ceilings of
// their tier.
//
// Authenticated analyses and comparisons are charged as usage events to the
// user who ran them and counted over the trailing window; the owner of the
// resulting row does not matter. Copilot queries and PDF downloads use a
// per-user counter. Anonymous callers have one counter row per hashed client
// IP. Counter rows reset lazily on access once their window is older than
// Window.
package usage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/db"
	"github.com/sentivibe/sentivibe-api/pkg/tier"
)

// Window is the rolling period for daily ceilings.
const Window = 24 * time.Hour

type Store interface {
	FindSubscriptionByUserID(ctx context.Context, userID uuid.UUID) (*db.Subscription, error)
	RecordUsageEvent(ctx context.Context, userID uuid.UUID, action string, at time.Time) error
	CountUsageEventsSince(ctx context.Context, userID uuid.UUID, action string, since time.Time) (int, error)
	FindAnonymousUsage(ctx context.Context, ip string) (*db.AnonymousUsage, error)
	SaveAnonymousUsage(ctx context.Context, u *db.AnonymousUsage) error
	FindUserDailyUsage(ctx context.Context, userID uuid.UUID) (*db.UserDailyUsage, error)
	SaveUserDailyUsage(ctx context.Context, u *db.UserDailyUsage) error
}

// Caller identifies the requester for quota purposes.
type Caller struct {
	UserID *uuid.UUID
	// IPHash is the hashed client IP; raw addresses are never stored.
	IPHash string
	Tier   tier.Tier
}

func (c Caller) Authenticated() bool {
	return c.UserID != nil
}

// Owner is the nullable owner reference for rows the caller creates.
func (c Caller) Owner() uuid.NullUUID {
	if c.UserID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *c.UserID, Valid: true}
}

// Key identifies the caller in cache keys without exposing the raw IP.
func (c Caller) Key() string {
	if c.UserID != nil {
		return "user:" + c.UserID.String()
	}
	return "ip:" + c.IPHash
}

func (c Caller) Limits() tier.Limits {
	return tier.For(c.Tier)
}

type Gate struct {
	store Store
	now   func() time.Time
}

func NewGate(store Store) *Gate {
	return &Gate{store: store, now: time.Now}
}

// HashIP returns the hex SHA-256 of a client IP.
func HashIP(ip string) string {
	h := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(h[:])
}

// Resolve classifies the caller. userID is nil for anonymous requests.
func (g *Gate) Resolve(ctx context.Context, userID *uuid.UUID, ip string) (Caller, error) {
	caller := Caller{UserID: userID, IPHash: HashIP(ip), Tier: tier.Anonymous}
	if userID == nil {
		return caller, nil
	}

	sub, err := g.store.FindSubscriptionByUserID(ctx, *userID)
	if err != nil {
		return caller, apperr.Internal("failed to load subscription", err)
	}
	caller.Tier = tier.Free
	if sub.IsPaid() {
		caller.Tier = tier.Paid
	}
	return caller, nil
}

// Used returns how many times caller performed action in the current window.
func (g *Gate) Used(ctx context.Context, caller Caller, action tier.Action) (int, error) {
	now := g.now()
	since := now.Add(-Window)

	if !caller.Authenticated() {
		u, err := g.anonymous(ctx, caller.IPHash, now)
		if err != nil {
			return 0, err
		}
		switch action {
		case tier.ActionAnalysis:
			return u.AnalysesCount, nil
		case tier.ActionComparison:
			return u.ComparisonsCount, nil
		case tier.ActionCopilot:
			return u.CopilotCount, nil
		}
		return 0, nil
	}

	userID := *caller.UserID
	switch action {
	case tier.ActionAnalysis, tier.ActionComparison:
		return g.store.CountUsageEventsSince(ctx, userID, string(action), since)
	case tier.ActionCopilot, tier.ActionPDFDownload:
		u, err := g.daily(ctx, userID, now)
		if err != nil {
			return 0, err
		}
		if action == tier.ActionCopilot {
			return u.CopilotCount, nil
		}
		return u.PDFDownloadsCount, nil
	}
	return 0, nil
}

// Check returns a quota error when caller has exhausted action for the day.
func (g *Gate) Check(ctx context.Context, caller Caller, action tier.Action) error {
	used, err := g.Used(ctx, caller, action)
	if err != nil {
		log.Errorf("Usage: failed to count %s for caller: %v", action, err)
		return apperr.Internal("failed to check usage", err)
	}
	return tier.Check(caller.Tier, action, used)
}

// Record counts one successful action against caller.
func (g *Gate) Record(ctx context.Context, caller Caller, action tier.Action) error {
	now := g.now()

	if !caller.Authenticated() {
		u, err := g.anonymous(ctx, caller.IPHash, now)
		if err != nil {
			return err
		}
		switch action {
		case tier.ActionAnalysis:
			u.AnalysesCount++
		case tier.ActionComparison:
			u.ComparisonsCount++
		case tier.ActionCopilot:
			u.CopilotCount++
		default:
			return nil
		}
		return g.store.SaveAnonymousUsage(ctx, u)
	}

	switch action {
	case tier.ActionAnalysis, tier.ActionComparison:
		return g.store.RecordUsageEvent(ctx, *caller.UserID, string(action), now)
	case tier.ActionCopilot, tier.ActionPDFDownload:
	default:
		return nil
	}
	u, err := g.daily(ctx, *caller.UserID, now)
	if err != nil {
		return err
	}
	if action == tier.ActionCopilot {
		u.CopilotCount++
	} else {
		u.PDFDownloadsCount++
	}
	return g.store.SaveUserDailyUsage(ctx, u)
}

// anonymous loads the IP's counters, zeroed when the window has expired.
func (g *Gate) anonymous(ctx context.Context, ipHash string, now time.Time) (*db.AnonymousUsage, error) {
	u, err := g.store.FindAnonymousUsage(ctx, ipHash)
	if err != nil {
		return nil, err
	}
	if u == nil || now.Sub(u.WindowStartedAt) >= Window {
		return &db.AnonymousUsage{IPAddress: ipHash, WindowStartedAt: now}, nil
	}
	return u, nil
}

func (g *Gate) daily(ctx context.Context, userID uuid.UUID, now time.Time) (*db.UserDailyUsage, error) {
	u, err := g.store.FindUserDailyUsage(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil || now.Sub(u.WindowStartedAt) >= Window {
		return &db.UserDailyUsage{UserID: userID, WindowStartedAt: now}, nil
	}
	return u, nil
}
