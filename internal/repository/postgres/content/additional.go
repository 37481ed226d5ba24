package content

import (
	"context"
	"fmt"
	"time"

	"beps/internal/domain"
	models "beps/internal/domain/models/content"
	contentRepo "beps/internal/domain/repositories/content"
	"beps/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const additionalColumns = `id, page_id, filename, object_key, file_extension, content_number, file_size, created_at, updated_at, is_deleted`

// PostgresAdditionalRepository implements contentRepo.AdditionalRepository
type PostgresAdditionalRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewAdditionalRepository creates a new page additional repository
func NewAdditionalRepository(config *postgres.RepositoryConfig) contentRepo.AdditionalRepository {
	return &PostgresAdditionalRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Get retrieves a live additional by ID
func (r *PostgresAdditionalRepository) Get(ctx context.Context, id int64) (*models.PageAdditional, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id = $1 AND NOT is_deleted
	`, additionalColumns, r.tables.PageAdditionals)

	executor := postgres.GetExecutor(ctx, r.pool)
	a, err := scanAdditional(executor.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("additional %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get additional: %w", postgres.Classify(err))
	}
	return a, nil
}

// ListByPage returns live additionals of a page ordered by content number
func (r *PostgresAdditionalRepository) ListByPage(ctx context.Context, pageID int64) ([]models.PageAdditional, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE page_id = $1 AND NOT is_deleted
		ORDER BY content_number
	`, additionalColumns, r.tables.PageAdditionals)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, pageID)
	if err != nil {
		return nil, fmt.Errorf("list additionals: %w", postgres.Classify(err))
	}
	return scanAdditionals(rows)
}

// ListByPages returns live additionals of several pages
func (r *PostgresAdditionalRepository) ListByPages(ctx context.Context, pageIDs []int64) ([]models.PageAdditional, error) {
	if len(pageIDs) == 0 {
		return []models.PageAdditional{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE page_id = ANY($1) AND NOT is_deleted
		ORDER BY page_id, content_number
	`, additionalColumns, r.tables.PageAdditionals)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, pageIDs)
	if err != nil {
		return nil, fmt.Errorf("list additionals by pages: %w", postgres.Classify(err))
	}
	return scanAdditionals(rows)
}

// MaxContentNumber returns the highest live content number of a page
func (r *PostgresAdditionalRepository) MaxContentNumber(ctx context.Context, pageID int64) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(content_number), 0) FROM %s
		WHERE page_id = $1 AND NOT is_deleted
	`, r.tables.PageAdditionals)

	var n int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, pageID).Scan(&n); err != nil {
		return 0, fmt.Errorf("max content number: %w", postgres.Classify(err))
	}
	return n, nil
}

// Create inserts an additional
func (r *PostgresAdditionalRepository) Create(ctx context.Context, a *models.PageAdditional) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (page_id, filename, object_key, file_extension, content_number, file_size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id, created_at, updated_at
	`, r.tables.PageAdditionals)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		a.PageID,
		a.Filename,
		a.ObjectKey,
		a.FileExtension,
		a.ContentNumber,
		a.FileSize,
		time.Now(),
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("additional number %d already exists on page %d", a.ContentNumber, a.PageID),
				ResourceType: "additional",
			}
		}
		return fmt.Errorf("create additional: %w", postgres.Classify(err))
	}
	return nil
}

// UpdateObject rewrites filename and canonical key after a rename
func (r *PostgresAdditionalRepository) UpdateObject(ctx context.Context, id int64, filename, objectKey string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET filename = $1, object_key = $2, updated_at = $3
		WHERE id = $4
	`, r.tables.PageAdditionals)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, filename, objectKey, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update additional object: %w", postgres.Classify(err))
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("additional %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdateFileSize records the size of the approved object
func (r *PostgresAdditionalRepository) UpdateFileSize(ctx context.Context, id int64, size int64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET file_size = $1, updated_at = $2 WHERE id = $3
	`, r.tables.PageAdditionals)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, size, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update additional size: %w", postgres.Classify(err))
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("additional %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SoftDelete tombstones an additional
func (r *PostgresAdditionalRepository) SoftDelete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET is_deleted = TRUE, updated_at = $1
		WHERE id = $2 AND NOT is_deleted
	`, r.tables.PageAdditionals)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("delete additional: %w", postgres.Classify(err))
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("additional %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func scanAdditional(row pgx.Row) (*models.PageAdditional, error) {
	var a models.PageAdditional
	err := row.Scan(
		&a.ID,
		&a.PageID,
		&a.Filename,
		&a.ObjectKey,
		&a.FileExtension,
		&a.ContentNumber,
		&a.FileSize,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.IsDeleted,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanAdditionals(rows pgx.Rows) ([]models.PageAdditional, error) {
	defer rows.Close()

	out := []models.PageAdditional{}
	for rows.Next() {
		a, err := scanAdditional(rows)
		if err != nil {
			return nil, fmt.Errorf("scan additional: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate additionals: %w", err)
	}
	return out, nil
}
