package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/feed-harvester/internal/entity"
	"github.com/user/feed-harvester/internal/repository"
)

// RecordRepoImpl implements repository.RecordRepository on the harvested_records table.
type RecordRepoImpl struct {
	db *pgxpool.Pool
}

func NewRecordRepo(db *pgxpool.Pool) *RecordRepoImpl {
	return &RecordRepoImpl{db: db}
}

// SaveAll inserts records in one transaction. Ids already present are left untouched.
func (r *RecordRepoImpl) SaveAll(ctx context.Context, records []entity.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO harvested_records (id, name, profile_url, content, post_url, group_images, profile_images, create_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.AuthorName, rec.AuthorProfileURL, rec.Content, rec.PostURL,
			nonNil(rec.ImageURLs), nonNil(rec.ProfileImages), rec.CreatedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting records: %w", err)
	}
	return tx.Commit(ctx)
}

// IDs returns every stored record id.
func (r *RecordRepoImpl) IDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM harvested_records`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *RecordRepoImpl) FindByID(ctx context.Context, id string) (*entity.Record, error) {
	var rec entity.Record
	err := r.db.QueryRow(ctx, `
		SELECT id, name, profile_url, content, post_url, group_images, profile_images, create_at
		FROM harvested_records
		WHERE id = $1`, id,
	).Scan(
		&rec.ID,
		&rec.AuthorName,
		&rec.AuthorProfileURL,
		&rec.Content,
		&rec.PostURL,
		&rec.ImageURLs,
		&rec.ProfileImages,
		&rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
