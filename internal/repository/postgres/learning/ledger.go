package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	models "beps/internal/domain/models/learning"
	learningRepo "beps/internal/domain/repositories/learning"
	"beps/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedgerRepository implements learningRepo.LedgerRepository.
// Intervals cross the wire as float seconds so no interval codec is involved.
type PostgresLedgerRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewLedgerRepository creates a new viewing ledger repository
func NewLedgerRepository(config *postgres.RepositoryConfig) learningRepo.LedgerRepository {
	return &PostgresLedgerRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// LockViewer takes a transaction-scoped advisory lock keyed on user and file.
// Outside a transaction the lock would be released immediately, so callers run
// it inside ExecTx.
func (r *PostgresLedgerRepository) LockViewer(ctx context.Context, userID string, fileID int64) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		fmt.Sprintf("viewer:%s:%d", userID, fileID),
	)
	if err != nil {
		return fmt.Errorf("lock viewer: %w", postgres.Classify(err))
	}
	return nil
}

// InsertView appends a viewing history row
func (r *PostgresLedgerRepository) InsertView(ctx context.Context, view *models.ViewingHistory) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, file_id, file_type, start_time, end_time, stay_duration, ip_address)
		VALUES ($1, $2, $3, $4, $5, make_interval(secs => $6::float8), $7)
		RETURNING id
	`, r.tables.ViewingHistory)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		view.UserID,
		view.FileID,
		view.FileType,
		view.StartTime,
		view.EndTime,
		view.StayDuration.Seconds(),
		view.IPAddress,
	).Scan(&view.ID)
	if err != nil {
		return fmt.Errorf("insert view: %w", postgres.Classify(err))
	}
	return nil
}

// GrantPoint upserts the point record. The conditional DO UPDATE leaves a
// capped record untouched and returns no row, which is reported as not granted.
func (r *PostgresLedgerRepository) GrantPoint(ctx context.Context, userID string, fileID int64, fileType models.FileType, at time.Time) (int, bool, error) {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s AS pr (user_id, file_id, file_type, point, earned_times)
		VALUES ($1, $2, $3, 1, jsonb_build_array($4::text))
		ON CONFLICT (user_id, file_id) DO UPDATE
		SET point = pr.point + 1,
		    earned_times = pr.earned_times || jsonb_build_array($4::text)
		WHERE pr.point < $5
		RETURNING point
	`, r.tables.PointRecords)

	executor := postgres.GetExecutor(ctx, r.pool)

	var point int
	err := executor.QueryRow(ctx, query,
		userID, fileID, fileType, at.UTC().Format(time.RFC3339Nano), models.MaxPoints,
	).Scan(&point)
	if err == nil {
		return point, true, nil
	}
	if !postgres.IsPgNoRowsError(err) {
		return 0, false, fmt.Errorf("grant point: %w", postgres.Classify(err))
	}

	current := fmt.Sprintf(`SELECT point FROM %s WHERE user_id = $1 AND file_id = $2`, r.tables.PointRecords)
	if err := executor.QueryRow(ctx, current, userID, fileID).Scan(&point); err != nil {
		return 0, false, fmt.Errorf("read point: %w", postgres.Classify(err))
	}
	return point, false, nil
}

// AddCompletion accumulates page time. completed_at is only ever written
// while NULL.
func (r *PostgresLedgerRepository) AddCompletion(ctx context.Context, userID string, pageID int64, d, threshold time.Duration, at time.Time) (*models.CompletionHistory, error) {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s AS ch (user_id, page_id, total_duration, completed_at)
		VALUES ($1, $2, make_interval(secs => $3::float8),
		        CASE WHEN $3::float8 >= $4::float8 THEN $5::timestamptz END)
		ON CONFLICT (user_id, page_id) DO UPDATE
		SET total_duration = ch.total_duration + EXCLUDED.total_duration,
		    completed_at = COALESCE(ch.completed_at,
		        CASE WHEN EXTRACT(EPOCH FROM ch.total_duration + EXCLUDED.total_duration) >= $4::float8
		             THEN $5::timestamptz END)
		RETURNING id, EXTRACT(EPOCH FROM total_duration)::float8, completed_at
	`, r.tables.CompletionHistory)

	c := &models.CompletionHistory{UserID: userID, PageID: pageID}
	var seconds float64

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		userID, pageID, d.Seconds(), threshold.Seconds(), at,
	).Scan(&c.ID, &seconds, &c.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("add completion: %w", postgres.Classify(err))
	}
	c.TotalDuration = time.Duration(seconds * float64(time.Second))
	return c, nil
}

// ListPoints returns the point records of a user
func (r *PostgresLedgerRepository) ListPoints(ctx context.Context, userID string) ([]models.PointRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, file_id, file_type, point, earned_times
		FROM %s
		WHERE user_id = $1
		ORDER BY file_id
	`, r.tables.PointRecords)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list points: %w", postgres.Classify(err))
	}
	defer rows.Close()

	records := []models.PointRecord{}
	for rows.Next() {
		var rec models.PointRecord
		var raw []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.FileID, &rec.FileType, &rec.Point, &raw); err != nil {
			return nil, fmt.Errorf("scan point record: %w", err)
		}
		if rec.EarnedTimes, err = parseEarnedTimes(raw); err != nil {
			return nil, fmt.Errorf("point record %d: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate point records: %w", err)
	}
	return records, nil
}

func parseEarnedTimes(raw []byte) ([]time.Time, error) {
	var stamps []string
	if err := json.Unmarshal(raw, &stamps); err != nil {
		return nil, fmt.Errorf("decode earned_times: %w", err)
	}
	out := make([]time.Time, 0, len(stamps))
	for _, s := range stamps {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("parse earned time %q: %w", s, err)
		}
		out = append(out, t)
	}
	return out, nil
}
