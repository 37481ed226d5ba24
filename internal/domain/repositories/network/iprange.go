package network

import (
	"context"

	models "beps/internal/domain/models/network"
)

// IPRangeRepository reads the curated internal IP ranges.
type IPRangeRepository interface {
	List(ctx context.Context) ([]models.IPRange, error)
}
