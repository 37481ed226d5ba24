package content

import (
	"context"
	"fmt"

	"beps/internal/domain"
	models "beps/internal/domain/models/content"
	contentRepo "beps/internal/domain/repositories/content"
	"beps/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pendingColumns = `id, content_type, page_id, additional_id, object_key, filename, file_size, uploaded_by, uploaded_at`

const archiveColumns = `id, content_type, original_page_id, original_additional_id, object_key, archived_filename, file_size, archived_by, archived_at`

// PostgresWorkflowRepository implements contentRepo.WorkflowRepository
type PostgresWorkflowRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewWorkflowRepository creates a new pending/archive repository
func NewWorkflowRepository(config *postgres.RepositoryConfig) contentRepo.WorkflowRepository {
	return &PostgresWorkflowRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// GetPending returns the pending row of a page or additional
func (r *PostgresWorkflowRepository) GetPending(ctx context.Context, contentType models.ContentType, targetID int64) (*models.PendingContent, error) {
	target := "page_id = $2 AND additional_id IS NULL"
	if contentType == models.ContentTypeAdditional {
		target = "additional_id = $2"
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE content_type = $1 AND %s
	`, pendingColumns, r.tables.PendingContents, target)

	executor := postgres.GetExecutor(ctx, r.pool)
	p, err := scanPending(executor.QueryRow(ctx, query, contentType, targetID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("pending %s %d: %w", contentType, targetID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get pending: %w", postgres.Classify(err))
	}
	return p, nil
}

// UpsertPending inserts the pending row or replaces the existing one for the
// same target. Concurrent uploads resolve last-writer-wins on the unique index.
func (r *PostgresWorkflowRepository) UpsertPending(ctx context.Context, p *models.PendingContent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (content_type, page_id, additional_id, object_key, filename, file_size, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (content_type, page_id, (COALESCE(additional_id, 0)))
		DO UPDATE SET object_key = EXCLUDED.object_key,
		              filename = EXCLUDED.filename,
		              file_size = EXCLUDED.file_size,
		              uploaded_by = EXCLUDED.uploaded_by,
		              uploaded_at = EXCLUDED.uploaded_at
		RETURNING id
	`, r.tables.PendingContents)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		p.ContentType,
		p.PageID,
		p.AdditionalID,
		p.ObjectKey,
		p.Filename,
		p.FileSize,
		p.UploadedBy,
		p.UploadedAt,
	).Scan(&p.ID)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("pending target: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("upsert pending: %w", postgres.Classify(err))
	}
	return nil
}

// DeletePending removes a pending row
func (r *PostgresWorkflowRepository) DeletePending(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.PendingContents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete pending: %w", postgres.Classify(err))
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("pending %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdatePendingObject rewrites filename and key after a rename
func (r *PostgresWorkflowRepository) UpdatePendingObject(ctx context.Context, id int64, filename, objectKey string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET filename = $1, object_key = $2 WHERE id = $3
	`, r.tables.PendingContents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, filename, objectKey, id)
	if err != nil {
		return fmt.Errorf("update pending object: %w", postgres.Classify(err))
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("pending %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListPendingByPages returns pending rows whose page is in pageIDs, including
// pending additionals of those pages.
func (r *PostgresWorkflowRepository) ListPendingByPages(ctx context.Context, pageIDs []int64) ([]models.PendingContent, error) {
	if len(pageIDs) == 0 {
		return []models.PendingContent{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE page_id = ANY($1)
		ORDER BY page_id, id
	`, pendingColumns, r.tables.PendingContents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, pageIDs)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", postgres.Classify(err))
	}
	defer rows.Close()

	out := []models.PendingContent{}
	for rows.Next() {
		p, err := scanPending(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending: %w", err)
	}
	return out, nil
}

// InsertArchive appends an archive row. The archived key is timestamped, so a
// duplicate means the same approval ran twice within one minute.
func (r *PostgresWorkflowRepository) InsertArchive(ctx context.Context, a *models.ArchivedContent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (content_type, original_page_id, original_additional_id, object_key, archived_filename, file_size, archived_by, archived_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, r.tables.ArchivedContents)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		a.ContentType,
		a.OriginalPageID,
		a.OriginalAdditionalID,
		a.ObjectKey,
		a.ArchivedFilename,
		a.FileSize,
		a.ArchivedBy,
		a.ArchivedAt,
	).Scan(&a.ID)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("archive '%s' already exists", a.ObjectKey),
				ResourceType: "archive",
			}
		}
		return fmt.Errorf("insert archive: %w", postgres.Classify(err))
	}
	return nil
}

// ListArchives returns the archive history of a target, newest first
func (r *PostgresWorkflowRepository) ListArchives(ctx context.Context, contentType models.ContentType, targetID int64) ([]models.ArchivedContent, error) {
	target := "original_page_id = $2 AND original_additional_id IS NULL"
	if contentType == models.ContentTypeAdditional {
		target = "original_additional_id = $2"
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE content_type = $1 AND %s
		ORDER BY archived_at DESC, id DESC
	`, archiveColumns, r.tables.ArchivedContents, target)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, contentType, targetID)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", postgres.Classify(err))
	}
	defer rows.Close()

	out := []models.ArchivedContent{}
	for rows.Next() {
		var a models.ArchivedContent
		if err := rows.Scan(
			&a.ID,
			&a.ContentType,
			&a.OriginalPageID,
			&a.OriginalAdditionalID,
			&a.ObjectKey,
			&a.ArchivedFilename,
			&a.FileSize,
			&a.ArchivedBy,
			&a.ArchivedAt,
		); err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archives: %w", err)
	}
	return out, nil
}

func scanPending(row pgx.Row) (*models.PendingContent, error) {
	var p models.PendingContent
	err := row.Scan(
		&p.ID,
		&p.ContentType,
		&p.PageID,
		&p.AdditionalID,
		&p.ObjectKey,
		&p.Filename,
		&p.FileSize,
		&p.UploadedBy,
		&p.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
