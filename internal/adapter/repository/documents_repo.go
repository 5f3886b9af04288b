package repository

import (
	"context"
	"fmt"

	"resume-canvas/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

// DocumentsRepo archives generated resumes. A nil pool makes every call a
// no-op so the service runs without a database.
type DocumentsRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentsRepo(pool *pgxpool.Pool) *DocumentsRepo {
	return &DocumentsRepo{pool: pool}
}

func (r *DocumentsRepo) Save(ctx context.Context, d domain.ResumeDocument) error {
	if r.pool == nil {
		return nil
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `INSERT INTO resume_documents (id, markdown, item_count, images, model, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET markdown = EXCLUDED.markdown, item_count = EXCLUDED.item_count, images = EXCLUDED.images, model = EXCLUDED.model`,
		d.ID, d.Markdown, d.ItemCount, d.Images, d.Model, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("save resume document %s: %w", d.ID, err)
	}
	return nil
}

// Recent returns the latest archived documents, newest first.
func (r *DocumentsRepo) Recent(ctx context.Context, limit int) ([]domain.ResumeDocument, error) {
	if r.pool == nil {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, markdown, item_count, images, model, created_at
		FROM resume_documents ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list resume documents: %w", err)
	}
	defer rows.Close()

	var out []domain.ResumeDocument
	for rows.Next() {
		var d domain.ResumeDocument
		if err := rows.Scan(&d.ID, &d.Markdown, &d.ItemCount, &d.Images, &d.Model, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan resume document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
