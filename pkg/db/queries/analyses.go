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

const analysisColumns = `id, video_id, title, description, thumbnail_url, tags, channel_title,
	analysis, custom_qa, user_id, last_reanalyzed_at, created_at, updated_at`

// FindAnalysisByVideoID retrieves the analysis for an external video ID.
func (s *Store) FindAnalysisByVideoID(ctx context.Context, videoID string) (*db.Analysis, error) {
	analysis := &db.Analysis{}
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE video_id = $1`
	if err := s.db.GetContext(ctx, analysis, query, videoID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Errorf("Error finding analysis for video '%s': %v", videoID, err)
		return nil, err
	}
	return analysis, nil
}

func (s *Store) FindAnalysisByID(ctx context.Context, id uuid.UUID) (*db.Analysis, error) {
	analysis := &db.Analysis{}
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1`
	if err := s.db.GetContext(ctx, analysis, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Errorf("Error finding analysis '%s': %v", id.String(), err)
		return nil, err
	}
	return analysis, nil
}

// UpsertAnalysis writes a full analysis. An existing row for the same video is
// overwritten in place; the owner is only replaced when the new one is set.
func (s *Store) UpsertAnalysis(ctx context.Context, analysis *db.Analysis) (*db.Analysis, error) {
	query := `
		INSERT INTO analyses (video_id, title, description, thumbnail_url, tags, channel_title,
			analysis, custom_qa, user_id, last_reanalyzed_at)
		VALUES (:video_id, :title, :description, :thumbnail_url, :tags, :channel_title,
			:analysis, :custom_qa, :user_id, :last_reanalyzed_at)
		ON CONFLICT (video_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			thumbnail_url = EXCLUDED.thumbnail_url,
			tags = EXCLUDED.tags,
			channel_title = EXCLUDED.channel_title,
			analysis = EXCLUDED.analysis,
			custom_qa = EXCLUDED.custom_qa,
			user_id = COALESCE(EXCLUDED.user_id, analyses.user_id),
			last_reanalyzed_at = EXCLUDED.last_reanalyzed_at,
			updated_at = NOW()
		RETURNING id, user_id, created_at, updated_at`

	rows, err := s.db.NamedQueryContext(ctx, query, analysis)
	if err != nil {
		log.Errorf("Error upserting analysis for video '%s': %v", analysis.VideoID, err)
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, errors.New("no rows returned after analysis upsert")
	}
	if err := rows.Scan(&analysis.ID, &analysis.UserID, &analysis.CreatedAt, &analysis.UpdatedAt); err != nil {
		return nil, err
	}

	log.Infof("Analysis for video %s saved with ID: %s", analysis.VideoID, analysis.ID.String())
	return analysis, nil
}

// UpdateAnalysisCustomQA replaces the Q&A array without touching the AI fields
// or last_reanalyzed_at.
func (s *Store) UpdateAnalysisCustomQA(ctx context.Context, id uuid.UUID, qa []db.CustomQA) error {
	query := `UPDATE analyses SET custom_qa = $1, updated_at = NOW() WHERE id = $2`
	result, err := s.db.ExecContext(ctx, query, db.NewJSONB(qa), id)
	if err != nil {
		log.Errorf("Error updating custom Q&A for analysis '%s': %v", id.String(), err)
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListAnalyses returns library entries, newest first.
func (s *Store) ListAnalyses(ctx context.Context, limit, offset int) ([]db.Analysis, error) {
	var analyses []db.Analysis
	query := `SELECT ` + analysisColumns + ` FROM analyses ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	if err := s.db.SelectContext(ctx, &analyses, query, limit, offset); err != nil {
		log.Errorf("Error listing analyses: %v", err)
		return nil, err
	}
	return analyses, nil
}
