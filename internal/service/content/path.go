package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"beps/internal/domain"
	models "beps/internal/domain/models/content"
	contentRepo "beps/internal/domain/repositories/content"
)

// Deriver maps hierarchy entities to canonical object keys. It reads through
// the repository, so inside a transaction it sees uncommitted renames.
type Deriver struct {
	hierarchy contentRepo.HierarchyRepository
	logger    *slog.Logger
}

// NewDeriver creates a new path deriver
func NewDeriver(hierarchy contentRepo.HierarchyRepository, logger *slog.Logger) *Deriver {
	return &Deriver{hierarchy: hierarchy, logger: logger}
}

// errDetached marks a parent chain that does not reach a channel.
var errDetached = errors.New("detached hierarchy")

// folderSegments returns channel → … → folder names.
func (d *Deriver) folderSegments(ctx context.Context, folderID int64) ([]string, error) {
	chain, err := d.hierarchy.FolderChain(ctx, folderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errDetached
		}
		return nil, err
	}

	top := chain[len(chain)-1]
	if top.ParentID != nil {
		return nil, errDetached
	}
	channel, err := d.hierarchy.GetChannel(ctx, top.ChannelID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, errDetached
		}
		return nil, err
	}

	segments := make([]string, 0, len(chain)+1)
	segments = append(segments, channel.Name)
	for i := len(chain) - 1; i >= 0; i-- {
		segments = append(segments, chain[i].Name)
	}
	return segments, nil
}

// PageKey returns the key of filename stored directly in the page's folder.
func (d *Deriver) PageKey(ctx context.Context, page *models.Page, filename string) (string, error) {
	segments, err := d.folderSegments(ctx, page.FolderID)
	if err != nil {
		return d.fallback(err, "page", page.ID, filename)
	}
	return JoinKey(append(segments, filename)...), nil
}

// PageDirKey returns the key of filename stored under the page's own
// directory; details and additionals live there.
func (d *Deriver) PageDirKey(ctx context.Context, page *models.Page, filename string) (string, error) {
	segments, err := d.folderSegments(ctx, page.FolderID)
	if err != nil {
		return d.fallback(err, "page", page.ID, filename)
	}
	return JoinKey(append(segments, Basename(page.Name), filename)...), nil
}

// DetailKey returns the key of a detail file.
func (d *Deriver) DetailKey(ctx context.Context, detail *models.PageDetail, filename string) (string, error) {
	page, err := d.hierarchy.GetPage(ctx, detail.PageID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return d.fallback(errDetached, "page detail", detail.ID, filename)
		}
		return "", err
	}
	return d.PageDirKey(ctx, page, filename)
}

// Key resolves a page or detail by id and derives the key of filename.
func (d *Deriver) Key(ctx context.Context, fileID int64, filename string, isDetail bool) (string, error) {
	if isDetail {
		detail, err := d.hierarchy.GetDetail(ctx, fileID)
		if err != nil {
			return "", err
		}
		return d.DetailKey(ctx, detail, filename)
	}
	page, err := d.hierarchy.GetPage(ctx, fileID)
	if err != nil {
		return "", err
	}
	return d.PageKey(ctx, page, filename)
}

func (d *Deriver) fallback(err error, kind string, id int64, filename string) (string, error) {
	if !errors.Is(err, errDetached) {
		return "", fmt.Errorf("derive %s %d key: %w", kind, id, err)
	}
	key := fallbackKey(id, filename)
	d.logger.Warn("detached parent, using fallback key",
		"kind", kind,
		"id", id,
		"object_key", key,
	)
	return key, nil
}
