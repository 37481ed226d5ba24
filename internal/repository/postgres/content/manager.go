package content

import (
	"context"
	"fmt"

	"beps/internal/domain"
	models "beps/internal/domain/models/content"
	contentRepo "beps/internal/domain/repositories/content"
	"beps/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresManagerRepository implements contentRepo.ManagerRepository and
// contentRepo.AssignmentRepository
type PostgresManagerRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewManagerRepository creates a new content manager repository
func NewManagerRepository(config *postgres.RepositoryConfig) contentRepo.ManagerRepository {
	return &PostgresManagerRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// NewAssignmentRepository creates a repository that edits assignments
func NewAssignmentRepository(config *postgres.RepositoryConfig) contentRepo.AssignmentRepository {
	return &PostgresManagerRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// IsFileManager reports whether userID manages the page
func (r *PostgresManagerRepository) IsFileManager(ctx context.Context, userID string, pageID int64) (bool, error) {
	return r.exists(ctx, "file_id = $2", userID, pageID)
}

// IsFolderManager reports whether userID manages any of the folders
func (r *PostgresManagerRepository) IsFolderManager(ctx context.Context, userID string, folderIDs []int64) (bool, error) {
	if len(folderIDs) == 0 {
		return false, nil
	}
	return r.exists(ctx, "folder_id = ANY($2)", userID, folderIDs)
}

// IsChannelManager reports whether userID manages the channel
func (r *PostgresManagerRepository) IsChannelManager(ctx context.Context, userID string, channelID int64) (bool, error) {
	return r.exists(ctx, "channel_id = $2", userID, channelID)
}

func (r *PostgresManagerRepository) exists(ctx context.Context, target, userID string, arg any) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s m
			JOIN %s a ON a.id = m.assignee_id
			WHERE lower(a.user_id) = lower($1) AND m.%s
		)
	`, r.tables.ContentManagers, r.tables.Assignees, target)

	var ok bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, userID, arg).Scan(&ok); err != nil {
		return false, fmt.Errorf("manager lookup: %w", postgres.Classify(err))
	}
	return ok, nil
}

// List returns every assignment joined with its assignee
func (r *PostgresManagerRepository) List(ctx context.Context) ([]models.ManagerEntry, error) {
	query := fmt.Sprintf(`
		SELECT m.id, m.type, m.assignee_id, m.channel_id, m.folder_id, m.file_id,
		       a.id, a.user_id, a.name, COALESCE(a.position, '')
		FROM %s m
		JOIN %s a ON a.id = m.assignee_id
		ORDER BY m.id
	`, r.tables.ContentManagers, r.tables.Assignees)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list managers: %w", postgres.Classify(err))
	}
	defer rows.Close()

	entries := []models.ManagerEntry{}
	for rows.Next() {
		var e models.ManagerEntry
		if err := rows.Scan(
			&e.ID, &e.Type, &e.AssigneeID, &e.ChannelID, &e.FolderID, &e.FileID,
			&e.Assignee.ID, &e.Assignee.UserID, &e.Assignee.Name, &e.Assignee.Position,
		); err != nil {
			return nil, fmt.Errorf("scan manager: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list managers: %w", postgres.Classify(err))
	}
	return entries, nil
}

// Get returns one assignment, locked for the current transaction
func (r *PostgresManagerRepository) Get(ctx context.Context, id int64) (*models.ContentManager, error) {
	query := fmt.Sprintf(`
		SELECT id, type, assignee_id, channel_id, folder_id, file_id
		FROM %s
		WHERE id = $1
		FOR UPDATE
	`, r.tables.ContentManagers)

	var m models.ContentManager
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(&m.ID, &m.Type, &m.AssigneeID, &m.ChannelID, &m.FolderID, &m.FileID)
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("content manager %d not found", id)}
		}
		return nil, fmt.Errorf("get manager: %w", postgres.Classify(err))
	}
	return &m, nil
}

// FindUser matches a live user id case-insensitively
func (r *PostgresManagerRepository) FindUser(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := fmt.Sprintf(`
		SELECT id, name, COALESCE(position, '')
		FROM %s
		WHERE lower(id) = lower($1) AND NOT is_deleted
		ORDER BY id
		LIMIT 1
	`, r.tables.Users)

	var u models.UserProfile
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, userID).Scan(&u.ID, &u.Name, &u.Position); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("user with ID %s not found", userID)}
		}
		return nil, fmt.Errorf("find user: %w", postgres.Classify(err))
	}
	return &u, nil
}

// FindAssignee returns the assignee of an exact user id
func (r *PostgresManagerRepository) FindAssignee(ctx context.Context, userID string) (*models.Assignee, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, name, COALESCE(position, '')
		FROM %s
		WHERE user_id = $1
	`, r.tables.Assignees)

	var a models.Assignee
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, userID).Scan(&a.ID, &a.UserID, &a.Name, &a.Position); err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, fmt.Errorf("assignee %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find assignee: %w", postgres.Classify(err))
	}
	return &a, nil
}

// CreateAssignee inserts an assignee. A concurrent insert for the same user
// is absorbed and its id returned.
func (r *PostgresManagerRepository) CreateAssignee(ctx context.Context, a *models.Assignee) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, name, position)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, r.tables.Assignees)

	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, a.UserID, a.Name, a.Position).Scan(&a.ID); err != nil {
		return fmt.Errorf("create assignee: %w", postgres.Classify(err))
	}
	return nil
}

// DeleteAssigneeIfUnused removes an assignee no assignment references
func (r *PostgresManagerRepository) DeleteAssigneeIfUnused(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`
		DELETE FROM %s a
		WHERE a.id = $1
		  AND NOT EXISTS (SELECT 1 FROM %s m WHERE m.assignee_id = a.id)
	`, r.tables.Assignees, r.tables.ContentManagers)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete assignee: %w", postgres.Classify(err))
	}
	return nil
}

// TargetAssigned reports whether an assignment other than m holds its target
func (r *PostgresManagerRepository) TargetAssigned(ctx context.Context, m *models.ContentManager) (bool, error) {
	column, err := targetColumn(m.Type)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND id <> $2)
	`, r.tables.ContentManagers, column)

	var taken bool
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, m.Target(), m.ID).Scan(&taken); err != nil {
		return false, fmt.Errorf("target lookup: %w", postgres.Classify(err))
	}
	return taken, nil
}

// Create inserts an assignment
func (r *PostgresManagerRepository) Create(ctx context.Context, m *models.ContentManager) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (type, assignee_id, channel_id, folder_id, file_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, r.tables.ContentManagers)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, m.Type, m.AssigneeID, m.ChannelID, m.FolderID, m.FileID).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("create manager: %w", postgres.Classify(err))
	}
	return nil
}

// Update rewrites an assignment's assignee and target
func (r *PostgresManagerRepository) Update(ctx context.Context, m *models.ContentManager) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET type = $1, assignee_id = $2, channel_id = $3, folder_id = $4, file_id = $5
		WHERE id = $6
	`, r.tables.ContentManagers)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, m.Type, m.AssigneeID, m.ChannelID, m.FolderID, m.FileID, m.ID)
	if err != nil {
		return fmt.Errorf("update manager: %w", postgres.Classify(err))
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("content manager %d not found", m.ID)}
	}
	return nil
}

// Delete removes an assignment
func (r *PostgresManagerRepository) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.ContentManagers)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete manager: %w", postgres.Classify(err))
	}
	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("content manager %d not found", id)}
	}
	return nil
}

func targetColumn(t models.ManagerType) (string, error) {
	switch t {
	case models.ManagerTypeChannel:
		return "channel_id", nil
	case models.ManagerTypeFolder:
		return "folder_id", nil
	case models.ManagerTypeFile:
		return "file_id", nil
	}
	return "", &domain.ValidationError{Message: fmt.Sprintf("unknown manager type %q", t)}
}
