package network

import (
	"context"
	"fmt"

	models "beps/internal/domain/models/network"
	networkRepo "beps/internal/domain/repositories/network"
	"beps/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresIPRangeRepository implements networkRepo.IPRangeRepository
type PostgresIPRangeRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewIPRangeRepository creates a new IP range repository
func NewIPRangeRepository(config *postgres.RepositoryConfig) networkRepo.IPRangeRepository {
	return &PostgresIPRangeRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// List returns all ranges as text; host() drops the /32 mask.
func (r *PostgresIPRangeRepository) List(ctx context.Context) ([]models.IPRange, error) {
	query := fmt.Sprintf(`
		SELECT id, host(start_ip), host(end_ip), label
		FROM %s
		ORDER BY start_ip
	`, r.tables.IPRanges)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list ip ranges: %w", postgres.Classify(err))
	}
	defer rows.Close()

	out := []models.IPRange{}
	for rows.Next() {
		var ir models.IPRange
		if err := rows.Scan(&ir.ID, &ir.StartIP, &ir.EndIP, &ir.Label); err != nil {
			return nil, fmt.Errorf("scan ip range: %w", err)
		}
		out = append(out, ir)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ip ranges: %w", err)
	}
	return out, nil
}
