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

// PostgresHierarchyRepository implements contentRepo.HierarchyRepository
type PostgresHierarchyRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewHierarchyRepository creates a new hierarchy repository
func NewHierarchyRepository(config *postgres.RepositoryConfig) contentRepo.HierarchyRepository {
	return &PostgresHierarchyRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// GetChannel retrieves a live channel by ID
func (r *PostgresHierarchyRepository) GetChannel(ctx context.Context, id int64) (*models.Channel, error) {
	query := fmt.Sprintf(`
		SELECT id, name, created_at, updated_at, is_deleted
		FROM %s
		WHERE id = $1 AND NOT is_deleted
	`, r.tables.Channels)

	var c models.Channel
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.IsDeleted)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("channel %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get channel: %w", postgres.Classify(err))
	}
	return &c, nil
}

// GetFolder retrieves a live folder by ID
func (r *PostgresHierarchyRepository) GetFolder(ctx context.Context, id int64) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT id, name, channel_id, parent_id, created_at, updated_at, is_deleted
		FROM %s
		WHERE id = $1 AND NOT is_deleted
	`, r.tables.Folders)

	var f models.Folder
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&f.ID, &f.Name, &f.ChannelID, &f.ParentID, &f.CreatedAt, &f.UpdatedAt, &f.IsDeleted,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", postgres.Classify(err))
	}
	return &f, nil
}

// GetPage retrieves a live page by ID
func (r *PostgresHierarchyRepository) GetPage(ctx context.Context, id int64) (*models.Page, error) {
	return r.getPage(ctx, id, "")
}

// LockPage retrieves a live page and holds FOR UPDATE until the transaction ends
func (r *PostgresHierarchyRepository) LockPage(ctx context.Context, id int64) (*models.Page, error) {
	return r.getPage(ctx, id, "FOR UPDATE")
}

func (r *PostgresHierarchyRepository) getPage(ctx context.Context, id int64, lock string) (*models.Page, error) {
	query := fmt.Sprintf(`
		SELECT id, name, folder_id, object_id, created_at, updated_at, is_deleted
		FROM %s
		WHERE id = $1 AND NOT is_deleted
		%s
	`, r.tables.Pages, lock)

	var p models.Page
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.FolderID, &p.ObjectID, &p.CreatedAt, &p.UpdatedAt, &p.IsDeleted,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("page %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get page: %w", postgres.Classify(err))
	}
	return &p, nil
}

// GetDetail retrieves a live page detail by ID
func (r *PostgresHierarchyRepository) GetDetail(ctx context.Context, id int64) (*models.PageDetail, error) {
	query := fmt.Sprintf(`
		SELECT id, name, page_id, object_id, created_at, updated_at, is_deleted
		FROM %s
		WHERE id = $1 AND NOT is_deleted
	`, r.tables.PageDetails)

	var d models.PageDetail
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.Name, &d.PageID, &d.ObjectID, &d.CreatedAt, &d.UpdatedAt, &d.IsDeleted,
	)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("page detail %d: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get page detail: %w", postgres.Classify(err))
	}
	return &d, nil
}

// FolderChain walks parent_id upwards with a recursive CTE.
// The depth column bounds the walk so a corrupted cycle cannot loop forever.
func (r *PostgresHierarchyRepository) FolderChain(ctx context.Context, folderID int64) ([]models.FolderLink, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE chain AS (
			SELECT id, name, channel_id, parent_id, 0 AS depth
			FROM %[1]s
			WHERE id = $1
			UNION ALL
			SELECT f.id, f.name, f.channel_id, f.parent_id, c.depth + 1
			FROM %[1]s f
			JOIN chain c ON f.id = c.parent_id
			WHERE c.depth < 64
		)
		SELECT id, name, channel_id, parent_id
		FROM chain
		ORDER BY depth
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("folder chain: %w", postgres.Classify(err))
	}
	defer rows.Close()

	chain := []models.FolderLink{}
	for rows.Next() {
		var l models.FolderLink
		if err := rows.Scan(&l.ID, &l.Name, &l.ChannelID, &l.ParentID); err != nil {
			return nil, fmt.Errorf("scan folder link: %w", err)
		}
		chain = append(chain, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folder chain: %w", err)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("folder %d: %w", folderID, domain.ErrNotFound)
	}
	return chain, nil
}

// CreateChannel inserts a channel
func (r *PostgresHierarchyRepository) CreateChannel(ctx context.Context, channel *models.Channel) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, created_at, updated_at)
		VALUES ($1, $2, $2)
		RETURNING id, created_at, updated_at
	`, r.tables.Channels)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, channel.Name, time.Now()).
		Scan(&channel.ID, &channel.CreatedAt, &channel.UpdatedAt)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("channel '%s' already exists", channel.Name),
				ResourceType: "channel",
			}
		}
		return fmt.Errorf("create channel: %w", postgres.Classify(err))
	}
	return nil
}

// CreateFolder inserts a folder
func (r *PostgresHierarchyRepository) CreateFolder(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, channel_id, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, created_at, updated_at
	`, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, folder.Name, folder.ChannelID, folder.ParentID, time.Now()).
		Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("folder '%s' already exists in this location", folder.Name),
				ResourceType: "folder",
			}
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("folder parent: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("create folder: %w", postgres.Classify(err))
	}
	return nil
}

// CreatePage inserts a page
func (r *PostgresHierarchyRepository) CreatePage(ctx context.Context, page *models.Page) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, folder_id, object_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING id, created_at, updated_at
	`, r.tables.Pages)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, page.Name, page.FolderID, page.ObjectID, time.Now()).
		Scan(&page.ID, &page.CreatedAt, &page.UpdatedAt)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("page '%s' already exists in this folder", page.Name),
				ResourceType: "page",
			}
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("page folder %d: %w", page.FolderID, domain.ErrNotFound)
		}
		return fmt.Errorf("create page: %w", postgres.Classify(err))
	}
	return nil
}

// RenameChannel updates a channel name
func (r *PostgresHierarchyRepository) RenameChannel(ctx context.Context, id int64, name string) error {
	return r.rename(ctx, r.tables.Channels, "channel", id, name)
}

// RenameFolder updates a folder name
func (r *PostgresHierarchyRepository) RenameFolder(ctx context.Context, id int64, name string) error {
	return r.rename(ctx, r.tables.Folders, "folder", id, name)
}

// RenamePage updates a page name
func (r *PostgresHierarchyRepository) RenamePage(ctx context.Context, id int64, name string) error {
	return r.rename(ctx, r.tables.Pages, "page", id, name)
}

func (r *PostgresHierarchyRepository) rename(ctx context.Context, table, resource string, id int64, name string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET name = $1, updated_at = $2
		WHERE id = $3 AND NOT is_deleted
	`, table)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, name, time.Now(), id)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("%s '%s' already exists in this location", resource, name),
				ResourceType: resource,
				ResourceID:   fmt.Sprint(id),
			}
		}
		return fmt.Errorf("rename %s: %w", resource, postgres.Classify(err))
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", resource, id, domain.ErrNotFound)
	}
	return nil
}

// SetPageObjectID sets the canonical object key of a page
func (r *PostgresHierarchyRepository) SetPageObjectID(ctx context.Context, id int64, objectID *string) error {
	return r.setObjectID(ctx, r.tables.Pages, "page", id, objectID)
}

// SetDetailObjectID sets the canonical object key of a page detail
func (r *PostgresHierarchyRepository) SetDetailObjectID(ctx context.Context, id int64, objectID *string) error {
	return r.setObjectID(ctx, r.tables.PageDetails, "page detail", id, objectID)
}

func (r *PostgresHierarchyRepository) setObjectID(ctx context.Context, table, resource string, id int64, objectID *string) error {
	query := fmt.Sprintf(`UPDATE %s SET object_id = $1, updated_at = $2 WHERE id = $3`, table)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, objectID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("set %s object: %w", resource, postgres.Classify(err))
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", resource, id, domain.ErrNotFound)
	}
	return nil
}

// SoftDeleteChannel tombstones a channel
func (r *PostgresHierarchyRepository) SoftDeleteChannel(ctx context.Context, id int64) error {
	return r.softDelete(ctx, r.tables.Channels, "channel", id)
}

// SoftDeleteFolder tombstones a folder
func (r *PostgresHierarchyRepository) SoftDeleteFolder(ctx context.Context, id int64) error {
	return r.softDelete(ctx, r.tables.Folders, "folder", id)
}

// SoftDeletePage tombstones a page
func (r *PostgresHierarchyRepository) SoftDeletePage(ctx context.Context, id int64) error {
	return r.softDelete(ctx, r.tables.Pages, "page", id)
}

func (r *PostgresHierarchyRepository) softDelete(ctx context.Context, table, resource string, id int64) error {
	query := fmt.Sprintf(`
		UPDATE %s SET is_deleted = TRUE, updated_at = $1
		WHERE id = $2 AND NOT is_deleted
	`, table)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", resource, postgres.Classify(err))
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", resource, id, domain.ErrNotFound)
	}
	return nil
}

// ListDetails returns the live details of a page ordered by name
func (r *PostgresHierarchyRepository) ListDetails(ctx context.Context, pageID int64) ([]models.PageDetail, error) {
	query := fmt.Sprintf(`
		SELECT id, name, page_id, object_id, created_at, updated_at, is_deleted
		FROM %s
		WHERE page_id = $1 AND NOT is_deleted
		ORDER BY name, id
	`, r.tables.PageDetails)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, pageID)
	if err != nil {
		return nil, fmt.Errorf("list page details: %w", postgres.Classify(err))
	}
	return scanDetails(rows)
}

// CountDetails counts the live details of a page
func (r *PostgresHierarchyRepository) CountDetails(ctx context.Context, pageID int64) (int, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE page_id = $1 AND NOT is_deleted
	`, r.tables.PageDetails)

	var n int
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, pageID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count page details: %w", postgres.Classify(err))
	}
	return n, nil
}

// PagesUnderFolder returns live pages in the folder subtree
func (r *PostgresHierarchyRepository) PagesUnderFolder(ctx context.Context, folderID int64) ([]models.Page, error) {
	query := fmt.Sprintf(`
		WITH RECURSIVE subtree AS (
			SELECT id FROM %[1]s WHERE id = $1 AND NOT is_deleted
			UNION
			SELECT f.id FROM %[1]s f
			JOIN subtree s ON f.parent_id = s.id
			WHERE NOT f.is_deleted
		)
		SELECT p.id, p.name, p.folder_id, p.object_id, p.created_at, p.updated_at, p.is_deleted
		FROM %[2]s p
		JOIN subtree s ON p.folder_id = s.id
		WHERE NOT p.is_deleted
		ORDER BY p.id
	`, r.tables.Folders, r.tables.Pages)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("list folder pages: %w", postgres.Classify(err))
	}
	return scanPages(rows)
}

// PagesUnderChannel returns live pages of every live folder in the channel
func (r *PostgresHierarchyRepository) PagesUnderChannel(ctx context.Context, channelID int64) ([]models.Page, error) {
	query := fmt.Sprintf(`
		SELECT p.id, p.name, p.folder_id, p.object_id, p.created_at, p.updated_at, p.is_deleted
		FROM %s p
		JOIN %s f ON f.id = p.folder_id
		WHERE f.channel_id = $1 AND NOT f.is_deleted AND NOT p.is_deleted
		ORDER BY p.id
	`, r.tables.Pages, r.tables.Folders)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, channelID)
	if err != nil {
		return nil, fmt.Errorf("list channel pages: %w", postgres.Classify(err))
	}
	return scanPages(rows)
}

// Snapshot reads every live hierarchy row in one batch round trip.
func (r *PostgresHierarchyRepository) Snapshot(ctx context.Context, channelID *int64, withDetails bool) (*models.Snapshot, error) {
	channelFilter := "($1::bigint IS NULL OR c.id = $1)"

	batch := &pgx.Batch{}
	batch.Queue(fmt.Sprintf(`
		SELECT c.id, c.name, c.created_at, c.updated_at, c.is_deleted
		FROM %s c
		WHERE NOT c.is_deleted AND %s
		ORDER BY c.name, c.id
	`, r.tables.Channels, channelFilter), channelID)
	batch.Queue(fmt.Sprintf(`
		SELECT f.id, f.name, f.channel_id, f.parent_id, f.created_at, f.updated_at, f.is_deleted
		FROM %s f
		JOIN %s c ON c.id = f.channel_id
		WHERE NOT f.is_deleted AND NOT c.is_deleted AND %s
		ORDER BY f.name, f.id
	`, r.tables.Folders, r.tables.Channels, channelFilter), channelID)
	batch.Queue(fmt.Sprintf(`
		SELECT p.id, p.name, p.folder_id, p.object_id, p.created_at, p.updated_at, p.is_deleted
		FROM %s p
		JOIN %s f ON f.id = p.folder_id
		JOIN %s c ON c.id = f.channel_id
		WHERE NOT p.is_deleted AND NOT f.is_deleted AND NOT c.is_deleted AND %s
		ORDER BY p.name, p.id
	`, r.tables.Pages, r.tables.Folders, r.tables.Channels, channelFilter), channelID)
	batch.Queue(fmt.Sprintf(`
		SELECT m.id, m.type, m.assignee_id, m.channel_id, m.folder_id, m.file_id,
		       a.id, a.user_id, a.name, COALESCE(a.position, '')
		FROM %s m
		JOIN %s a ON a.id = m.assignee_id
		ORDER BY m.id
	`, r.tables.ContentManagers, r.tables.Assignees))
	if withDetails {
		batch.Queue(fmt.Sprintf(`
			SELECT d.id, d.name, d.page_id, d.object_id, d.created_at, d.updated_at, d.is_deleted
			FROM %s d
			JOIN %s p ON p.id = d.page_id
			JOIN %s f ON f.id = p.folder_id
			JOIN %s c ON c.id = f.channel_id
			WHERE NOT d.is_deleted AND NOT p.is_deleted AND %s
			ORDER BY d.name, d.id
		`, r.tables.PageDetails, r.tables.Pages, r.tables.Folders, r.tables.Channels, channelFilter), channelID)
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	results := executor.SendBatch(ctx, batch)
	defer results.Close()

	snap := &models.Snapshot{}

	rows, err := results.Query()
	if err != nil {
		return nil, fmt.Errorf("snapshot channels: %w", postgres.Classify(err))
	}
	for rows.Next() {
		var c models.Channel
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt, &c.IsDeleted); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		snap.Channels = append(snap.Channels, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot channels: %w", err)
	}

	rows, err = results.Query()
	if err != nil {
		return nil, fmt.Errorf("snapshot folders: %w", postgres.Classify(err))
	}
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.ID, &f.Name, &f.ChannelID, &f.ParentID, &f.CreatedAt, &f.UpdatedAt, &f.IsDeleted); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		snap.Folders = append(snap.Folders, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot folders: %w", err)
	}

	rows, err = results.Query()
	if err != nil {
		return nil, fmt.Errorf("snapshot pages: %w", postgres.Classify(err))
	}
	if snap.Pages, err = scanPages(rows); err != nil {
		return nil, err
	}

	rows, err = results.Query()
	if err != nil {
		return nil, fmt.Errorf("snapshot managers: %w", postgres.Classify(err))
	}
	for rows.Next() {
		var m models.ManagerAssignment
		if err := rows.Scan(
			&m.ID, &m.Type, &m.AssigneeID, &m.ChannelID, &m.FolderID, &m.FileID,
			&m.Assignee.ID, &m.Assignee.UserID, &m.Assignee.Name, &m.Assignee.Position,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan manager: %w", err)
		}
		snap.Managers = append(snap.Managers, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot managers: %w", err)
	}

	if withDetails {
		rows, err = results.Query()
		if err != nil {
			return nil, fmt.Errorf("snapshot details: %w", postgres.Classify(err))
		}
		if snap.Details, err = scanDetails(rows); err != nil {
			return nil, err
		}
	}

	return snap, nil
}

func scanPages(rows pgx.Rows) ([]models.Page, error) {
	defer rows.Close()

	pages := []models.Page{}
	for rows.Next() {
		var p models.Page
		if err := rows.Scan(&p.ID, &p.Name, &p.FolderID, &p.ObjectID, &p.CreatedAt, &p.UpdatedAt, &p.IsDeleted); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return pages, nil
}

func scanDetails(rows pgx.Rows) ([]models.PageDetail, error) {
	defer rows.Close()

	details := []models.PageDetail{}
	for rows.Next() {
		var d models.PageDetail
		if err := rows.Scan(&d.ID, &d.Name, &d.PageID, &d.ObjectID, &d.CreatedAt, &d.UpdatedAt, &d.IsDeleted); err != nil {
			return nil, fmt.Errorf("scan page detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page details: %w", err)
	}
	return details, nil
}
