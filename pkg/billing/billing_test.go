package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sentivibe/sentivibe-api/pkg/db"
)

const secret = "pdl_ntfset_test_secret"

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event_type":"subscription.canceled"}`)
	now := time.Unix(1_700_000_000, 0)
	valid := SignatureHeader(secret, body, now)

	tests := []struct {
		name   string
		secret string
		header string
		body   []byte
		now    time.Time
		ok     bool
	}{
		{"valid", secret, valid, body, now, true},
		{"valid with second signature", secret, valid + ";h1=00ff", body, now, true},
		{"tampered body", secret, valid, []byte(`{"event_type":"subscription.created"}`), now, false},
		{"wrong secret", "other", valid, body, now, false},
		{"too old", secret, valid, body, now.Add(SignatureTolerance + time.Second), false},
		{"from the future", secret, valid, body, now.Add(-SignatureTolerance - time.Second), false},
		{"missing h1", secret, fmt.Sprintf("ts=%d", now.Unix()), body, now, false},
		{"bad hex", secret, fmt.Sprintf("ts=%d;h1=zz", now.Unix()), body, now, false},
		{"empty header", secret, "", body, now, false},
		{"no secret configured", "", valid, body, now, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifySignature(tt.secret, tt.header, tt.body, tt.now, SignatureTolerance)
			if tt.ok && err != nil {
				t.Errorf("VerifySignature() error = %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidSignature) {
				t.Errorf("VerifySignature() error = %v, want ErrInvalidSignature", err)
			}
		})
	}
}

type fakeStore struct {
	users map[uuid.UUID]bool
	subs  map[uuid.UUID]*db.Subscription
}

func newFakeStore(users ...uuid.UUID) *fakeStore {
	f := &fakeStore{users: map[uuid.UUID]bool{}, subs: map[uuid.UUID]*db.Subscription{}}
	for _, id := range users {
		f.users[id] = true
	}
	return f
}

func (f *fakeStore) FindUserByID(ctx context.Context, id uuid.UUID) (*db.User, error) {
	if !f.users[id] {
		return nil, nil
	}
	return &db.User{ID: id}, nil
}

func (f *fakeStore) UpsertSubscription(ctx context.Context, sub *db.Subscription) (*db.Subscription, error) {
	prev, ok := f.subs[sub.UserID]
	if ok && !sub.ProviderSubscriptionID.Valid {
		sub.ProviderSubscriptionID = prev.ProviderSubscriptionID
	}
	cp := *sub
	f.subs[sub.UserID] = &cp
	return sub, nil
}

func event(eventType, status, price string, userID uuid.UUID) []byte {
	return []byte(fmt.Sprintf(`{
		"event_id": "evt_1",
		"event_type": %q,
		"data": {
			"id": "sub_123",
			"status": %q,
			"customer_id": "ctm_9",
			"items": [{"price": {"id": %q}}],
			"custom_data": {"user_id": %q},
			"current_billing_period": {"starts_at": "2025-01-01T00:00:00Z", "ends_at": "2025-02-01T00:00:00Z"}
		}
	}`, eventType, status, price, userID.String()))
}

// deliver verifies and applies a webhook the way the HTTP handler does.
func deliver(p *Processor, header string, body []byte, now time.Time) error {
	if err := VerifySignature(secret, header, body, now, SignatureTolerance); err != nil {
		return err
	}
	e, err := ParseEvent(body)
	if err != nil {
		return err
	}
	return p.Handle(context.Background(), e)
}

func TestCancellationFlipsTierToFree(t *testing.T) {
	user := uuid.New()
	store := newFakeStore(user)
	p := NewProcessor(store, []string{"pri_pro_monthly", "pri_pro_yearly"})
	now := time.Now()

	created := event(EventSubscriptionCreated, "active", "pri_pro_monthly", user)
	if err := deliver(p, SignatureHeader(secret, created, now), created, now); err != nil {
		t.Fatalf("created webhook error = %v", err)
	}
	sub := store.subs[user]
	if !sub.IsPaid() || sub.PlanID != db.PlanPro {
		t.Fatalf("subscription after created = %+v, want paid", sub)
	}
	if !sub.CurrentPeriodEnd.Valid || sub.ProviderCustomerID.String != "ctm_9" {
		t.Errorf("provider fields not stored: %+v", sub)
	}

	canceled := event(EventSubscriptionCanceled, "canceled", "pri_pro_monthly", user)

	err := deliver(p, SignatureHeader("forged", canceled, now), canceled, now)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("forged webhook error = %v", err)
	}
	if !store.subs[user].IsPaid() {
		t.Fatal("forged cancellation changed the subscription")
	}

	if err := deliver(p, SignatureHeader(secret, canceled, now), canceled, now); err != nil {
		t.Fatalf("canceled webhook error = %v", err)
	}
	sub = store.subs[user]
	if sub.IsPaid() || sub.PlanID != db.PlanFree || sub.Status != db.StatusCancelled {
		t.Errorf("subscription after cancel = plan %s status %s, want free/cancelled", sub.PlanID, sub.Status)
	}
}

func TestHandleEventMapping(t *testing.T) {
	p := NewProcessor(nil, []string{"pri_pro"})
	user := uuid.New()

	tests := []struct {
		eventType  string
		status     string
		price      string
		wantPlan   string
		wantStatus string
	}{
		{EventSubscriptionCreated, "active", "pri_pro", db.PlanPro, db.StatusActive},
		{EventSubscriptionTrialing, "trialing", "pri_pro", db.PlanPro, db.StatusTrialing},
		{EventSubscriptionUpdated, "active", "pri_unknown", db.PlanFree, db.StatusActive},
		{EventSubscriptionPastDue, "past_due", "pri_pro", db.PlanPro, db.StatusPastDue},
		{EventSubscriptionPaused, "paused", "pri_pro", db.PlanPro, db.StatusPaused},
		{EventSubscriptionResumed, "active", "pri_pro", db.PlanPro, db.StatusActive},
		{EventSubscriptionCanceled, "canceled", "pri_pro", db.PlanFree, db.StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			store := newFakeStore(user)
			p.store = store
			e, err := ParseEvent(event(tt.eventType, tt.status, tt.price, user))
			if err != nil {
				t.Fatalf("ParseEvent() error = %v", err)
			}
			if err := p.Handle(context.Background(), e); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			sub := store.subs[user]
			if sub.PlanID != tt.wantPlan || sub.Status != tt.wantStatus {
				t.Errorf("got plan %s status %s, want %s/%s", sub.PlanID, sub.Status, tt.wantPlan, tt.wantStatus)
			}
		})
	}
}

func TestHandleIgnoresIrrelevantEvents(t *testing.T) {
	store := newFakeStore()
	p := NewProcessor(store, nil)

	e, _ := ParseEvent([]byte(`{"event_id": "evt_2", "event_type": "transaction.completed", "data": {}}`))
	if err := p.Handle(context.Background(), e); err != nil {
		t.Errorf("Handle(transaction.completed) error = %v", err)
	}

	e, _ = ParseEvent([]byte(`{"event_id": "evt_3", "event_type": "subscription.created", "data": {"status": "active"}}`))
	if err := p.Handle(context.Background(), e); err != nil {
		t.Errorf("Handle() without user error = %v", err)
	}
	if len(store.subs) != 0 {
		t.Error("ignored events wrote subscriptions")
	}

	if _, err := ParseEvent([]byte(`not json`)); err == nil {
		t.Error("ParseEvent() accepted invalid JSON")
	}
}

func TestHandleUnknownUserIsAcknowledged(t *testing.T) {
	known := uuid.New()
	store := newFakeStore(known)
	p := NewProcessor(store, []string{"pri_pro"})

	e, err := ParseEvent(event(EventSubscriptionCreated, "active", "pri_pro", uuid.New()))
	if err != nil {
		t.Fatalf("ParseEvent() error = %v", err)
	}
	if err := p.Handle(context.Background(), e); err != nil {
		t.Fatalf("Handle() for an unknown user error = %v, want nil", err)
	}
	if len(store.subs) != 0 {
		t.Errorf("unknown user got a subscription: %+v", store.subs)
	}
}
