package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode"

	"beps/internal/domain"
	contentModels "beps/internal/domain/models/content"
	"beps/internal/domain/repositories"
	contentRepo "beps/internal/domain/repositories/content"
	contentSvc "beps/internal/domain/services/content"

	"golang.org/x/sync/singleflight"
)

const presignedURLExpiry = 15 * time.Minute

// presenceCacheKey is a cached probe, stamped with the row's update time so
// any write to the row misses the old entry.
func presenceCacheKey(kind string, id int64, updatedAt time.Time) string {
	return fmt.Sprintf("content:presence:%s:%d:%d", kind, id, updatedAt.UnixNano())
}

// presenceProber implements PresenceProber over the object store. Probes are
// cached and concurrent probes of the same key share one HEAD request.
type presenceProber struct {
	hierarchy contentRepo.HierarchyRepository
	store     repositories.ObjectStore
	cache     repositories.Cache
	deriver   *Deriver
	ttl       time.Duration
	group     singleflight.Group
	logger    *slog.Logger
}

// NewPresenceProber creates a new presence prober
func NewPresenceProber(
	hierarchy contentRepo.HierarchyRepository,
	store repositories.ObjectStore,
	cache repositories.Cache,
	ttl time.Duration,
	logger *slog.Logger,
) contentSvc.PresenceProber {
	return &presenceProber{
		hierarchy: hierarchy,
		store:     store,
		cache:     cache,
		deriver:   NewDeriver(hierarchy, logger),
		ttl:       ttl,
		logger:    logger,
	}
}

// file is the probed row reduced to what presence needs.
type file struct {
	kind      string
	id        int64
	name      string
	objectID  *string
	updatedAt time.Time
	key       string
}

func (p *presenceProber) resolve(ctx context.Context, fileID int64, isDetail bool) (*file, error) {
	if isDetail {
		detail, err := p.hierarchy.GetDetail(ctx, fileID)
		if err != nil {
			return nil, err
		}
		f := &file{kind: "detail", id: detail.ID, name: detail.Name, objectID: detail.ObjectID, updatedAt: detail.UpdatedAt}
		if detail.ObjectID != nil {
			f.key = *detail.ObjectID
			return f, nil
		}
		if f.key, err = p.deriver.DetailKey(ctx, detail, detail.Name); err != nil {
			return nil, err
		}
		return f, nil
	}

	page, err := p.hierarchy.GetPage(ctx, fileID)
	if err != nil {
		return nil, err
	}
	f := &file{kind: "page", id: page.ID, name: page.Name, objectID: page.ObjectID, updatedAt: page.UpdatedAt}
	if page.ObjectID != nil {
		f.key = *page.ObjectID
		return f, nil
	}
	if f.key, err = p.deriver.PageKey(ctx, page, page.Name); err != nil {
		return nil, err
	}
	return f, nil
}

// Probe reports whether the file's canonical object exists. When the store
// is unavailable the answer falls back to a name heuristic; fallback answers
// are not cached.
func (p *presenceProber) Probe(ctx context.Context, fileID int64, isDetail bool) (*contentModels.ContentPresence, error) {
	f, err := p.resolve(ctx, fileID, isDetail)
	if err != nil {
		return nil, err
	}
	cacheKey := presenceCacheKey(f.kind, f.id, f.updatedAt)

	var cached contentModels.ContentPresence
	if ok, err := p.cache.GetJSON(ctx, cacheKey, &cached); err != nil {
		p.logger.Warn("presence cache read failed", "cache_key", cacheKey, "error", err)
	} else if ok {
		return &cached, nil
	}

	v, err, _ := p.group.Do(cacheKey, func() (any, error) {
		return p.head(ctx, f, cacheKey)
	})
	if err != nil {
		return nil, err
	}
	presence := *v.(*contentModels.ContentPresence)
	return &presence, nil
}

func (p *presenceProber) head(ctx context.Context, f *file, cacheKey string) (*contentModels.ContentPresence, error) {
	presence := &contentModels.ContentPresence{Key: f.key, Source: contentModels.PresenceSourceStore}

	_, err := p.store.Head(ctx, f.key)
	switch {
	case err == nil:
		presence.Present = true
	case errors.Is(err, domain.ErrNotFound):
	case errors.Is(err, domain.ErrStorageUnavailable):
		p.logger.Warn("object store unavailable, using name heuristic",
			"kind", f.kind,
			"id", f.id,
			"object_key", f.key,
		)
		presence.Present = f.objectID != nil || looksStored(f.name) || p.hasDetails(ctx, f)
		presence.Source = contentModels.PresenceSourceHeuristic
		return presence, nil
	default:
		return nil, fmt.Errorf("probe %s %d: %w", f.kind, f.id, err)
	}

	if err := p.cache.SetJSON(ctx, cacheKey, presence, p.ttl); err != nil {
		p.logger.Warn("presence cache write failed", "cache_key", cacheKey, "error", err)
	}
	return presence, nil
}

// PresignedURL returns a GET URL for a file with a recorded object id
func (p *presenceProber) PresignedURL(ctx context.Context, fileID int64, isDetail bool) (string, error) {
	f, err := p.resolve(ctx, fileID, isDetail)
	if err != nil {
		return "", err
	}
	if f.objectID == nil {
		return "", &domain.NotFoundError{Message: fmt.Sprintf("%s %d has no published content", f.kind, f.id)}
	}
	return p.store.Presign(ctx, http.MethodGet, f.key, presignedURLExpiry)
}

// looksStored guesses presence from a name: an extension or a digit suggests
// an uploaded file rather than a placeholder.
func looksStored(name string) bool {
	if Extension(name) != "" {
		return true
	}
	return strings.IndexFunc(name, unicode.IsDigit) >= 0
}

func (p *presenceProber) hasDetails(ctx context.Context, f *file) bool {
	if f.kind != "page" {
		return false
	}
	n, err := p.hierarchy.CountDetails(ctx, f.id)
	if err != nil {
		p.logger.Warn("detail count failed", "page_id", f.id, "error", err)
		return false
	}
	return n > 0
}
