package network

import "context"

// IPClassifier classifies addresses against the internal ranges.
type IPClassifier interface {
	IsInternal(ip string) bool
	Reload(ctx context.Context) error
	Len() int
}
