package notification

import (
	"context"
	"fmt"

	models "beps/internal/domain/models/notification"
	statsModels "beps/internal/domain/models/statistics"
	notifRepo "beps/internal/domain/repositories/notification"
	"beps/internal/repository/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPushRepository implements notifRepo.PushRepository
type PostgresPushRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewPushRepository creates a new push message repository
func NewPushRepository(config *postgres.RepositoryConfig) notifRepo.PushRepository {
	return &PostgresPushRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// ListRecipients joins live users with their count of completed pages
func (r *PostgresPushRepository) ListRecipients(ctx context.Context, filter statsModels.Filter) ([]models.Recipient, error) {
	where := "NOT u.is_deleted"
	var args []any
	switch filter.Type {
	case statsModels.FilterCompany:
		args = append(args, filter.Company)
		where += " AND u.company = $1"
	case statsModels.FilterDepartment:
		args = append(args, filter.Department)
		where += " AND u.department = $1"
		if filter.Company != "" {
			args = append(args, filter.Company)
			where += " AND u.company = $2"
		}
	case statsModels.FilterUser:
		args = append(args, filter.UserID)
		where += " AND u.id = $1"
	}

	query := fmt.Sprintf(`
		SELECT u.id, COUNT(ch.completed_at)
		FROM %s u
		LEFT JOIN %s ch ON ch.user_id = u.id AND ch.completed_at IS NOT NULL
		WHERE %s
		GROUP BY u.id
		ORDER BY u.id
	`, r.tables.Users, r.tables.CompletionHistory, where)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", postgres.Classify(err))
	}
	defer rows.Close()

	out := []models.Recipient{}
	for rows.Next() {
		var rec models.Recipient
		if err := rows.Scan(&rec.UserID, &rec.CompletedPages); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", postgres.Classify(err))
	}
	return out, nil
}

// CountPages counts live pages
func (r *PostgresPushRepository) CountPages(ctx context.Context) (int64, error) {
	return postgres.CountLivePages(ctx, postgres.GetExecutor(ctx, r.pool), r.tables)
}

// InsertMessages inserts messages in one batch and fills their IDs
func (r *PostgresPushRepository) InsertMessages(ctx context.Context, messages []*models.PushMessage) error {
	if len(messages) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, title, message, is_read, created_at)
		VALUES ($1, $2, $3, FALSE, $4)
		RETURNING id
	`, r.tables.PushMessages)

	batch := &pgx.Batch{}
	for _, m := range messages {
		batch.Queue(query, m.UserID, m.Title, m.Message, m.CreatedAt)
	}

	executor := postgres.GetExecutor(ctx, r.pool)
	results := executor.SendBatch(ctx, batch)
	defer results.Close()

	for _, m := range messages {
		if err := results.QueryRow().Scan(&m.ID); err != nil {
			return fmt.Errorf("insert push message for %s: %w", m.UserID, postgres.Classify(err))
		}
	}
	return nil
}

// TrimPerUser deletes everything but the newest keep messages of each user in
// a single statement.
func (r *PostgresPushRepository) TrimPerUser(ctx context.Context, userIDs []string, keep int) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		DELETE FROM %[1]s
		WHERE id IN (
			SELECT id FROM (
				SELECT id, row_number() OVER (PARTITION BY user_id ORDER BY created_at DESC, id DESC) AS rn
				FROM %[1]s
				WHERE user_id = ANY($1)
			) ranked
			WHERE rn > $2
		)
	`, r.tables.PushMessages)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, userIDs, keep)
	if err != nil {
		return 0, fmt.Errorf("trim push messages: %w", postgres.Classify(err))
	}
	return result.RowsAffected(), nil
}

// Latest returns the newest messages of a user
func (r *PostgresPushRepository) Latest(ctx context.Context, userID string, limit int) ([]models.PushMessage, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, title, message, is_read, created_at
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, r.tables.PushMessages)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("latest push messages: %w", postgres.Classify(err))
	}
	defer rows.Close()

	out := []models.PushMessage{}
	for rows.Next() {
		var m models.PushMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Title, &m.Message, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan push message: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate push messages: %w", postgres.Classify(err))
	}
	return out, nil
}

// MarkRead flags the given messages of a user as read
func (r *PostgresPushRepository) MarkRead(ctx context.Context, userID string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s SET is_read = TRUE
		WHERE user_id = $1 AND id = ANY($2) AND NOT is_read
	`, r.tables.PushMessages)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, userID, ids); err != nil {
		return fmt.Errorf("mark push messages read: %w", postgres.Classify(err))
	}
	return nil
}
