package postgres

import (
	"context"
	"fmt"

	"beps/internal/domain/repositories"
)

// CountLivePages counts pages whose folder and channel are also live.
// Shared by the statistics and push repositories.
func CountLivePages(ctx context.Context, executor repositories.DBTX, tables *TableNames) (int64, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s p
		JOIN %s f ON f.id = p.folder_id
		JOIN %s c ON c.id = f.channel_id
		WHERE NOT p.is_deleted AND NOT f.is_deleted AND NOT c.is_deleted
	`, tables.Pages, tables.Folders, tables.Channels)

	var n int64
	if err := executor.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count pages: %w", classify(err))
	}
	return n, nil
}
