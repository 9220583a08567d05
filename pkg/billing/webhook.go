// Package billing mirrors the payment provider's subscription state into the
// subscriptions table. It is the only writer of that table.
package billing

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/apperr"
	"github.com/sentivibe/sentivibe-api/pkg/db"
)

const (
	EventSubscriptionCreated   = "subscription.created"
	EventSubscriptionUpdated   = "subscription.updated"
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionResumed   = "subscription.resumed"
	EventSubscriptionTrialing  = "subscription.trialing"
	EventSubscriptionCanceled  = "subscription.canceled"
	EventSubscriptionPastDue   = "subscription.past_due"
	EventSubscriptionPaused    = "subscription.paused"
)

type Store interface {
	FindUserByID(ctx context.Context, id uuid.UUID) (*db.User, error)
	UpsertSubscription(ctx context.Context, sub *db.Subscription) (*db.Subscription, error)
}

// Event is the subset of a Paddle notification the processor reads.
type Event struct {
	EventID    string           `json:"event_id"`
	EventType  string           `json:"event_type"`
	OccurredAt string           `json:"occurred_at"`
	Data       SubscriptionData `json:"data"`
}

type SubscriptionData struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	CustomerID string `json:"customer_id"`
	Items      []struct {
		Price struct {
			ID string `json:"id"`
		} `json:"price"`
	} `json:"items"`
	CustomData struct {
		UserID string `json:"user_id"`
	} `json:"custom_data"`
	CurrentBillingPeriod *struct {
		EndsAt time.Time `json:"ends_at"`
	} `json:"current_billing_period"`
}

func ParseEvent(body []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, apperr.Validation("Invalid webhook payload")
	}
	if e.EventType == "" {
		return nil, apperr.Validation("Webhook payload has no event type")
	}
	return &e, nil
}

type Processor struct {
	store      Store
	paidPrices map[string]bool
}

// NewProcessor treats subscriptions to any of paidPriceIDs as the paid plan.
func NewProcessor(store Store, paidPriceIDs []string) *Processor {
	prices := make(map[string]bool, len(paidPriceIDs))
	for _, id := range paidPriceIDs {
		prices[strings.TrimSpace(id)] = true
	}
	return &Processor{store: store, paidPrices: prices}
}

// Handle applies a subscription event. Events of other types, and events
// that do not name an existing user, are acknowledged and ignored.
func (p *Processor) Handle(ctx context.Context, e *Event) error {
	var status, plan string
	switch e.EventType {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionActivated,
		EventSubscriptionResumed, EventSubscriptionTrialing, EventSubscriptionPaused:
		status = normalizeStatus(e.Data.Status, e.EventType)
		plan = p.planFor(e.Data)
	case EventSubscriptionCanceled:
		status = db.StatusCancelled
		plan = db.PlanFree
	case EventSubscriptionPastDue:
		status = db.StatusPastDue
		plan = p.planFor(e.Data)
	default:
		log.Debugf("Paddle: ignoring event %s (%s)", e.EventID, e.EventType)
		return nil
	}

	userID, err := uuid.Parse(e.Data.CustomData.UserID)
	if err != nil {
		log.Warnf("Paddle: event %s (%s) has no valid custom_data.user_id, ignoring", e.EventID, e.EventType)
		return nil
	}
	user, err := p.store.FindUserByID(ctx, userID)
	if err != nil {
		return apperr.Internal("failed to load user", err)
	}
	// The account may have been deleted since checkout.
	if user == nil {
		log.Warnf("Paddle: event %s (%s) names unknown user %s, ignoring", e.EventID, e.EventType, userID.String())
		return nil
	}

	sub := &db.Subscription{
		UserID:                 userID,
		Status:                 status,
		PlanID:                 plan,
		ProviderSubscriptionID: nullString(e.Data.ID),
		ProviderCustomerID:     nullString(e.Data.CustomerID),
	}
	if bp := e.Data.CurrentBillingPeriod; bp != nil && !bp.EndsAt.IsZero() {
		sub.CurrentPeriodEnd = sql.NullTime{Time: bp.EndsAt, Valid: true}
	}

	if _, err := p.store.UpsertSubscription(ctx, sub); err != nil {
		return apperr.Internal("failed to save subscription", err)
	}
	log.Infof("Paddle: applied %s for user %s", e.EventType, userID.String())
	return nil
}

func (p *Processor) planFor(data SubscriptionData) string {
	for _, item := range data.Items {
		if p.paidPrices[item.Price.ID] {
			return db.PlanPro
		}
	}
	return db.PlanFree
}

func normalizeStatus(status, eventType string) string {
	switch strings.ToLower(status) {
	case "active":
		return db.StatusActive
	case "trialing":
		return db.StatusTrialing
	case "past_due":
		return db.StatusPastDue
	case "paused":
		return db.StatusPaused
	case "canceled", "cancelled":
		return db.StatusCancelled
	}
	switch eventType {
	case EventSubscriptionTrialing:
		return db.StatusTrialing
	case EventSubscriptionPaused:
		return db.StatusPaused
	}
	return db.StatusActive
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
