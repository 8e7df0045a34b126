package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"ticket-triage/internal/models"
)

const triageTable = "triage_records"

const triageSchema = `
CREATE TABLE IF NOT EXISTS triage_records (
	id                 UUID PRIMARY KEY,
	description        TEXT        NOT NULL,
	result             JSONB       NOT NULL,
	model              TEXT        NOT NULL,
	embedding_strategy TEXT        NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS triage_records_created_at_idx ON triage_records (created_at DESC);
`

var triageColumns = []string{"id", "description", "result", "model", "embedding_strategy", "created_at"}

// TriageRepository is the optional journal of triage outcomes.
type TriageRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTriageRepository(db *pgxpool.Pool, logger *zap.Logger) *TriageRepository {
	return &TriageRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the journal table when it does not exist.
func (r *TriageRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, triageSchema); err != nil {
		return fmt.Errorf("failed to create %s: %w", triageTable, err)
	}
	return nil
}

func (r *TriageRepository) Create(ctx context.Context, rec *models.TriageRecord) error {
	sql, args, err := insertTriageQuery(rec)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// List returns journaled triages, newest first.
func (r *TriageRepository) List(ctx context.Context, limit, offset int) ([]*models.TriageRecord, error) {
	sql, args, err := listTriageQuery(limit, offset)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*models.TriageRecord{}
	for rows.Next() {
		var (
			rec    models.TriageRecord
			result []byte
		)
		if err := rows.Scan(&rec.ID, &rec.Description, &result, &rec.Model, &rec.EmbeddingStrategy, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(result, &rec.Result); err != nil {
			r.logger.Warn("Skipping journal row with unreadable result", zap.String("id", rec.ID.String()), zap.Error(err))
			continue
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

func insertTriageQuery(rec *models.TriageRecord) (string, []interface{}, error) {
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode triage result: %w", err)
	}

	return squirrel.Insert(triageTable).
		Columns(triageColumns...).
		Values(rec.ID, rec.Description, result, rec.Model, rec.EmbeddingStrategy, rec.CreatedAt).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}

func listTriageQuery(limit, offset int) (string, []interface{}, error) {
	if limit < 1 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return squirrel.Select(triageColumns...).
		From(triageTable).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
}
