package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/db"
)

func (s *Store) FindSubscriptionByUserID(ctx context.Context, userID uuid.UUID) (*db.Subscription, error) {
	sub := &db.Subscription{}
	query := `SELECT id, user_id, status, plan_id, provider_subscription_id, provider_customer_id,
			current_period_end, created_at, updated_at
		FROM subscriptions WHERE user_id = $1`
	if err := s.db.GetContext(ctx, sub, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Errorf("Error finding subscription for user '%s': %v", userID.String(), err)
		return nil, err
	}
	return sub, nil
}

// UpsertSubscription mirrors the provider's view of a user's subscription.
// Provider IDs and the period end keep their stored value when the event
// does not carry them.
func (s *Store) UpsertSubscription(ctx context.Context, sub *db.Subscription) (*db.Subscription, error) {
	query := `
		INSERT INTO subscriptions (user_id, status, plan_id, provider_subscription_id,
			provider_customer_id, current_period_end)
		VALUES (:user_id, :status, :plan_id, :provider_subscription_id,
			:provider_customer_id, :current_period_end)
		ON CONFLICT (user_id) DO UPDATE SET
			status = EXCLUDED.status,
			plan_id = EXCLUDED.plan_id,
			provider_subscription_id = COALESCE(EXCLUDED.provider_subscription_id, subscriptions.provider_subscription_id),
			provider_customer_id = COALESCE(EXCLUDED.provider_customer_id, subscriptions.provider_customer_id),
			current_period_end = COALESCE(EXCLUDED.current_period_end, subscriptions.current_period_end),
			updated_at = NOW()
		RETURNING id, created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, sub)
	if err != nil {
		log.Errorf("Error upserting subscription for user '%s': %v", sub.UserID.String(), err)
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, errors.New("no rows returned after subscription upsert")
	}
	if err := rows.Scan(&sub.ID, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}

	log.Infof("Subscription for user %s set to plan=%s status=%s", sub.UserID.String(), sub.PlanID, sub.Status)
	return sub, nil
}
