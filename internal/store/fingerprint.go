package store

import (
	"context"
	"fmt"

	"github.com/Harshitk-cp/concord/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

const defaultSimilarLimit = 5

// FingerprintStore archives per-model ScoreSets as 5-d vectors so earlier
// reports with a similar profile can be looked up.
type FingerprintStore struct {
	db *pgxpool.Pool
}

func NewFingerprintStore(db *pgxpool.Pool) *FingerprintStore {
	return &FingerprintStore{db: db}
}

func (s *FingerprintStore) Save(ctx context.Context, rec *domain.FingerprintRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	vec := pgvector.NewVector(rec.Scores.Vector())

	return s.db.QueryRow(ctx,
		`INSERT INTO report_fingerprints (id, report_id, user_id, model_id, scores)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		rec.ID, rec.ReportID, rec.UserID, rec.ModelID, vec,
	).Scan(&rec.CreatedAt)
}

func (s *FingerprintStore) Similar(ctx context.Context, scores domain.ScoreSet, limit int) ([]domain.FingerprintMatch, error) {
	if limit <= 0 {
		limit = defaultSimilarLimit
	}
	vec := pgvector.NewVector(scores.Vector())

	rows, err := s.db.Query(ctx,
		`SELECT id, report_id, user_id, model_id, scores, created_at,
		        scores <-> $1 AS distance
		 FROM report_fingerprints
		 ORDER BY scores <-> $1
		 LIMIT $2`,
		vec, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("similar fingerprints query: %w", err)
	}
	defer rows.Close()

	var results []domain.FingerprintMatch
	for rows.Next() {
		var m domain.FingerprintMatch
		var stored pgvector.Vector
		if err := rows.Scan(&m.ID, &m.ReportID, &m.UserID, &m.ModelID, &stored, &m.CreatedAt, &m.Distance); err != nil {
			return nil, fmt.Errorf("scan fingerprint row: %w", err)
		}
		m.Scores = domain.ScoreSetFromVector(stored.Slice())
		results = append(results, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fingerprint rows: %w", err)
	}

	return results, nil
}
