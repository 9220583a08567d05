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

const comparisonColumns = `id, video_a_id, video_b_id, comparison_data, custom_qa, user_id, created_at, updated_at`

// FindComparisonByPair looks up a pairwise comparison in either video order.
func (s *Store) FindComparisonByPair(ctx context.Context, a, b uuid.UUID) (*db.Comparison, error) {
	comparison := &db.Comparison{}
	query := `SELECT ` + comparisonColumns + ` FROM comparisons
		WHERE (video_a_id = $1 AND video_b_id = $2) OR (video_a_id = $2 AND video_b_id = $1)
		LIMIT 1`
	if err := s.db.GetContext(ctx, comparison, query, a, b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Errorf("Error finding comparison for %s/%s: %v", a.String(), b.String(), err)
		return nil, err
	}
	return comparison, nil
}

func (s *Store) FindComparisonByID(ctx context.Context, id uuid.UUID) (*db.Comparison, error) {
	comparison := &db.Comparison{}
	query := `SELECT ` + comparisonColumns + ` FROM comparisons WHERE id = $1`
	if err := s.db.GetContext(ctx, comparison, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Errorf("Error finding comparison '%s': %v", id.String(), err)
		return nil, err
	}
	return comparison, nil
}

// SaveComparison inserts a new comparison, or refreshes the existing one for
// the same pair.
func (s *Store) SaveComparison(ctx context.Context, comparison *db.Comparison) (*db.Comparison, error) {
	query := `
		INSERT INTO comparisons (video_a_id, video_b_id, comparison_data, custom_qa, user_id)
		VALUES (:video_a_id, :video_b_id, :comparison_data, :custom_qa, :user_id)
		ON CONFLICT (video_a_id, video_b_id) DO UPDATE SET
			comparison_data = EXCLUDED.comparison_data,
			custom_qa = EXCLUDED.custom_qa,
			user_id = COALESCE(EXCLUDED.user_id, comparisons.user_id),
			updated_at = NOW()
		RETURNING id, user_id, created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, comparison)
	if err != nil {
		log.Errorf("Error saving comparison: %v", err)
		return nil, fmt.Errorf("failed to save comparison: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, errors.New("no rows returned after comparison save")
	}
	if err := rows.Scan(&comparison.ID, &comparison.UserID, &comparison.CreatedAt, &comparison.UpdatedAt); err != nil {
		return nil, err
	}
	return comparison, nil
}

func (s *Store) UpdateComparisonCustomQA(ctx context.Context, id uuid.UUID, qa []db.CustomQA) error {
	query := `UPDATE comparisons SET custom_qa = $1 WHERE id = $2`
	_, err := s.db.ExecContext(ctx, query, db.NewJSONB(qa), id)
	if err != nil {
		log.Errorf("Error updating custom Q&A for comparison '%s': %v", id.String(), err)
	}
	return err
}

// CreateMultiComparison inserts the comparison and its ordered membership rows
// in a single transaction.
func (s *Store) CreateMultiComparison(ctx context.Context, mc *db.MultiComparison, analysisIDs []uuid.UUID) (*db.MultiComparison, error) {
	if len(analysisIDs) < 2 {
		return nil, fmt.Errorf("multi-comparison needs at least 2 videos, got %d", len(analysisIDs))
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO multi_comparisons (title, comparison_data, custom_qa, user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	row := tx.QueryRowxContext(ctx, query, mc.Title, mc.ComparisonData, mc.CustomQA, mc.UserID)
	if err := row.Scan(&mc.ID, &mc.CreatedAt, &mc.UpdatedAt); err != nil {
		log.Errorf("Error creating multi-comparison: %v", err)
		return nil, fmt.Errorf("failed to create multi-comparison: %w", err)
	}

	for i, id := range analysisIDs {
		member := db.MultiComparisonVideo{MultiComparisonID: mc.ID, AnalysisID: id, Position: i}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO multi_comparison_videos (multi_comparison_id, analysis_id, position)
			VALUES (:multi_comparison_id, :analysis_id, :position)`, member)
		if err != nil {
			return nil, fmt.Errorf("failed to add video %d to multi-comparison: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit multi-comparison: %w", err)
	}

	log.Infof("Multi-comparison created with ID: %s (%d videos)", mc.ID.String(), len(analysisIDs))
	return mc, nil
}

func (s *Store) FindMultiComparisonByID(ctx context.Context, id uuid.UUID) (*db.MultiComparison, error) {
	mc := &db.MultiComparison{}
	query := `SELECT id, title, comparison_data, custom_qa, user_id, created_at, updated_at
		FROM multi_comparisons WHERE id = $1`
	if err := s.db.GetContext(ctx, mc, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Errorf("Error finding multi-comparison '%s': %v", id.String(), err)
		return nil, err
	}
	return mc, nil
}

// ListMultiComparisonVideos returns the member analyses in submission order.
func (s *Store) ListMultiComparisonVideos(ctx context.Context, id uuid.UUID) ([]db.Analysis, error) {
	var analyses []db.Analysis
	query := `SELECT a.id, a.video_id, a.title, a.description, a.thumbnail_url, a.tags, a.channel_title,
			a.analysis, a.custom_qa, a.user_id, a.last_reanalyzed_at, a.created_at, a.updated_at
		FROM multi_comparison_videos mcv
		JOIN analyses a ON a.id = mcv.analysis_id
		WHERE mcv.multi_comparison_id = $1
		ORDER BY mcv.position`
	if err := s.db.SelectContext(ctx, &analyses, query, id); err != nil {
		log.Errorf("Error listing videos for multi-comparison '%s': %v", id.String(), err)
		return nil, err
	}
	return analyses, nil
}
