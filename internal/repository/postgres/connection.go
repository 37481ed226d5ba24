package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"beps/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Users string

	Channels        string
	Folders         string
	Pages           string
	PageDetails     string
	PageAdditionals string

	PendingContents  string
	ArchivedContents string
	Assignees        string
	ContentManagers  string

	ViewingHistory    string
	PointRecords      string
	CompletionHistory string
	LoginHistory      string

	LoginSummaryDay    string
	LoginSummaryAgg    string
	LearningSummaryDay string
	LearningSummaryAgg string

	PushMessages string
	IPRanges     string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	t := func(name string) string { return fmt.Sprintf("%s%s", prefix, name) }
	return &TableNames{
		Users: t("users"),

		Channels:        t("channels"),
		Folders:         t("folders"),
		Pages:           t("pages"),
		PageDetails:     t("page_details"),
		PageAdditionals: t("page_additionals"),

		PendingContents:  t("pending_contents"),
		ArchivedContents: t("archived_contents"),
		Assignees:        t("assignees"),
		ContentManagers:  t("content_managers"),

		ViewingHistory:    t("content_viewing_history"),
		PointRecords:      t("content_point_records"),
		CompletionHistory: t("learning_completion_history"),
		LoginHistory:      t("login_history"),

		LoginSummaryDay:    t("login_summary_day"),
		LoginSummaryAgg:    t("login_summary_agg"),
		LearningSummaryDay: t("learning_summary_day"),
		LearningSummaryAgg: t("learning_summary_agg"),

		PushMessages: t("push_messages"),
		IPRanges:     t("ip_ranges"),
	}
}

// All lists every table, dependents before the tables they reference.
func (t *TableNames) All() []string {
	return []string{
		t.IPRanges,
		t.PushMessages,
		t.LearningSummaryAgg,
		t.LearningSummaryDay,
		t.LoginSummaryAgg,
		t.LoginSummaryDay,
		t.LoginHistory,
		t.CompletionHistory,
		t.PointRecords,
		t.ViewingHistory,
		t.ContentManagers,
		t.Assignees,
		t.ArchivedContents,
		t.PendingContents,
		t.PageAdditionals,
		t.PageDetails,
		t.Pages,
		t.Folders,
		t.Channels,
		t.Users,
	}
}

// CreateConnectionPool creates a pgx pool with health checks on idle connections.
//
// Port 6543 is treated as a PgBouncer transaction pooler, which cannot hold
// prepared statements, so the pool switches to QueryExecModeCacheDescribe
// unless the DSN already set default_query_exec_mode.
//
// Advisory locks are session scoped; the cleanup scheduler must therefore
// connect directly (port 5432) or through a session pooler.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.HealthCheckPeriod = 30 * time.Second
	config.MaxConnIdleTime = 5 * time.Minute

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the transaction stored in ctx, or the pool when there is none.
// Repositories use it so they join a surrounding ExecTx automatically.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
