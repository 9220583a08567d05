package queries

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/db"
)

func (s *Store) FindAnonymousUsage(ctx context.Context, ip string) (*db.AnonymousUsage, error) {
	u := &db.AnonymousUsage{}
	query := `SELECT ip_address, analyses_count, comparisons_count, copilot_count, window_started_at, updated_at
		FROM anonymous_usage WHERE ip_address = $1`
	if err := s.db.GetContext(ctx, u, query, ip); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Errorf("Error finding anonymous usage: %v", err)
		return nil, err
	}
	return u, nil
}

// SaveAnonymousUsage writes the counters as computed by the caller, window
// resets included.
func (s *Store) SaveAnonymousUsage(ctx context.Context, u *db.AnonymousUsage) error {
	query := `
		INSERT INTO anonymous_usage (ip_address, analyses_count, comparisons_count, copilot_count, window_started_at, updated_at)
		VALUES (:ip_address, :analyses_count, :comparisons_count, :copilot_count, :window_started_at, NOW())
		ON CONFLICT (ip_address) DO UPDATE SET
			analyses_count = EXCLUDED.analyses_count,
			comparisons_count = EXCLUDED.comparisons_count,
			copilot_count = EXCLUDED.copilot_count,
			window_started_at = EXCLUDED.window_started_at,
			updated_at = NOW()`
	if _, err := s.db.NamedExecContext(ctx, query, u); err != nil {
		log.Errorf("Error saving anonymous usage: %v", err)
		return err
	}
	return nil
}

func (s *Store) FindUserDailyUsage(ctx context.Context, userID uuid.UUID) (*db.UserDailyUsage, error) {
	u := &db.UserDailyUsage{}
	query := `SELECT user_id, copilot_count, pdf_downloads_count, window_started_at, updated_at
		FROM user_daily_usage WHERE user_id = $1`
	if err := s.db.GetContext(ctx, u, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Errorf("Error finding daily usage for user '%s': %v", userID.String(), err)
		return nil, err
	}
	return u, nil
}

func (s *Store) SaveUserDailyUsage(ctx context.Context, u *db.UserDailyUsage) error {
	query := `
		INSERT INTO user_daily_usage (user_id, copilot_count, pdf_downloads_count, window_started_at, updated_at)
		VALUES (:user_id, :copilot_count, :pdf_downloads_count, :window_started_at, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			copilot_count = EXCLUDED.copilot_count,
			pdf_downloads_count = EXCLUDED.pdf_downloads_count,
			window_started_at = EXCLUDED.window_started_at,
			updated_at = NOW()`
	if _, err := s.db.NamedExecContext(ctx, query, u); err != nil {
		log.Errorf("Error saving daily usage for user '%s': %v", u.UserID.String(), err)
		return err
	}
	return nil
}

// RecordUsageEvent charges one action to the user at the given time.
func (s *Store) RecordUsageEvent(ctx context.Context, userID uuid.UUID, action string, at time.Time) error {
	query := `INSERT INTO usage_events (user_id, action, created_at) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, query, userID, action, at); err != nil {
		log.Errorf("Error recording %s usage for user '%s': %v", action, userID.String(), err)
		return err
	}
	return nil
}

func (s *Store) CountUsageEventsSince(ctx context.Context, userID uuid.UUID, action string, since time.Time) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM usage_events WHERE user_id = $1 AND action = $2 AND created_at >= $3`
	if err := s.db.GetContext(ctx, &n, query, userID, action, since); err != nil {
		log.Errorf("Error counting %s usage for user '%s': %v", action, userID.String(), err)
		return 0, err
	}
	return n, nil
}
