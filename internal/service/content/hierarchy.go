package content

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"beps/internal/domain"
	"beps/internal/domain/models"
	contentModels "beps/internal/domain/models/content"
	"beps/internal/domain/repositories"
	contentRepo "beps/internal/domain/repositories/content"
	"beps/internal/domain/services"
	contentSvc "beps/internal/domain/services/content"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/sync/singleflight"
)

// hierarchyVersionKey holds the counter stamped into traversal cache keys.
// Bumping it orphans every cached traversal at once.
const hierarchyVersionKey = "content:hierarchy:version"

func hierarchyCacheKey(version int64, opts contentSvc.TraverseOptions) string {
	variant := fmt.Sprintf("c%s:f%s:d%d:p%t:dt%t:m%t",
		optionalID(opts.ChannelID), optionalID(opts.FolderID), opts.Depth,
		opts.IncludePages, opts.IncludeDetails, opts.IncludeManagers)
	return fmt.Sprintf("content:hierarchy:v%d:%s", version, variant)
}

func optionalID(id *int64) string {
	if id == nil {
		return "*"
	}
	return fmt.Sprintf("%d", *id)
}

// hierarchyService implements the HierarchyService interface
type hierarchyService struct {
	hierarchy  contentRepo.HierarchyRepository
	txManager  repositories.TransactionManager
	cache      repositories.Cache
	prober     contentSvc.PresenceProber
	authorizer services.ContentAuthorizer
	ttl        time.Duration
	group      singleflight.Group
	logger     *slog.Logger
}

// NewHierarchyService creates a new hierarchy service
func NewHierarchyService(
	hierarchy contentRepo.HierarchyRepository,
	txManager repositories.TransactionManager,
	cache repositories.Cache,
	prober contentSvc.PresenceProber,
	authorizer services.ContentAuthorizer,
	ttl time.Duration,
	logger *slog.Logger,
) contentSvc.HierarchyService {
	return &hierarchyService{
		hierarchy:  hierarchy,
		txManager:  txManager,
		cache:      cache,
		prober:     prober,
		authorizer: authorizer,
		ttl:        ttl,
		logger:     logger,
	}
}

// Traverse returns the live tree shaped by opts. The structural part is
// cached per version; presence is probed on every call.
func (s *hierarchyService) Traverse(ctx context.Context, opts contentSvc.TraverseOptions) ([]contentModels.ChannelNode, error) {
	if opts.Depth < 0 {
		return nil, &domain.ValidationError{Message: "depth must not be negative"}
	}
	if opts.IncludeDetails || opts.IncludePresence {
		opts.IncludePages = true
	}

	version, err := s.cache.GetInt(ctx, hierarchyVersionKey)
	if err != nil {
		s.logger.Warn("hierarchy version read failed", "error", err)
	}
	cacheKey := hierarchyCacheKey(version, opts)

	var nodes []contentModels.ChannelNode
	hit := false
	if err == nil {
		if hit, err = s.cache.GetJSON(ctx, cacheKey, &nodes); err != nil {
			s.logger.Warn("hierarchy cache read failed", "cache_key", cacheKey, "error", err)
			hit = false
		}
	}

	if !hit {
		v, err, _ := s.group.Do(cacheKey, func() (any, error) {
			built, err := s.build(ctx, opts)
			if err != nil {
				return nil, err
			}
			if err := s.cache.SetJSON(ctx, cacheKey, built, s.ttl); err != nil {
				s.logger.Warn("hierarchy cache write failed", "cache_key", cacheKey, "error", err)
			}
			return built, nil
		})
		if err != nil {
			return nil, err
		}
		// Shared result; presence below writes into the copy.
		nodes = cloneChannels(v.([]contentModels.ChannelNode))
	}

	if opts.IncludePresence {
		s.attachPresence(ctx, nodes)
	}
	return nodes, nil
}

func (s *hierarchyService) build(ctx context.Context, opts contentSvc.TraverseOptions) ([]contentModels.ChannelNode, error) {
	channelID := opts.ChannelID
	if opts.FolderID != nil {
		folder, err := s.hierarchy.GetFolder(ctx, *opts.FolderID)
		if err != nil {
			return nil, err
		}
		if channelID != nil && *channelID != folder.ChannelID {
			return nil, &domain.NotFoundError{
				Message: fmt.Sprintf("folder %d is not in channel %d", folder.ID, *channelID),
			}
		}
		channelID = &folder.ChannelID
	}

	snap, err := s.hierarchy.Snapshot(ctx, channelID, opts.IncludeDetails)
	if err != nil {
		return nil, err
	}
	if opts.ChannelID != nil && len(snap.Channels) == 0 {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("channel %d not found", *opts.ChannelID)}
	}

	return newTreeBuilder(snap, opts).channels(), nil
}

func (s *hierarchyService) attachPresence(ctx context.Context, channels []contentModels.ChannelNode) {
	var walk func(folders []contentModels.FolderNode)
	walk = func(folders []contentModels.FolderNode) {
		for i := range folders {
			for j := range folders[i].Pages {
				page := &folders[i].Pages[j]
				presence, err := s.prober.Probe(ctx, page.ID, false)
				if err != nil {
					s.logger.Warn("presence probe failed", "page_id", page.ID, "error", err)
					continue
				}
				page.Presence = presence
			}
			walk(folders[i].Folders)
		}
	}
	for i := range channels {
		walk(channels[i].Folders)
	}
}

// CreateChannel creates a channel
func (s *hierarchyService) CreateChannel(ctx context.Context, actor models.Identity, req *contentSvc.CreateChannelRequest) (*contentModels.Channel, error) {
	if err := s.authorizer.RequireDeveloper(actor); err != nil {
		return nil, err
	}
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}

	channel := &contentModels.Channel{Name: name}
	if err := s.hierarchy.CreateChannel(ctx, channel); err != nil {
		return nil, err
	}
	s.Invalidate(ctx)

	s.logger.Info("channel created", "channel_id", channel.ID, "name", channel.Name, "user_id", actor.UserID)
	return channel, nil
}

// CreateFolder creates a category (no parent) or a nested folder
func (s *hierarchyService) CreateFolder(ctx context.Context, actor models.Identity, req *contentSvc.CreateFolderRequest) (*contentModels.Folder, error) {
	if err := s.authorizer.RequireDeveloper(actor); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.ChannelID, validation.Required, validation.Min(int64(1))),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}

	folder := &contentModels.Folder{Name: name, ChannelID: req.ChannelID, ParentID: req.ParentID}
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if _, err := s.hierarchy.GetChannel(txCtx, req.ChannelID); err != nil {
			return err
		}
		if req.ParentID != nil {
			parent, err := s.hierarchy.GetFolder(txCtx, *req.ParentID)
			if err != nil {
				return err
			}
			if parent.ChannelID != req.ChannelID {
				return &domain.ValidationError{
					Message: fmt.Sprintf("parent folder %d belongs to channel %d", parent.ID, parent.ChannelID),
				}
			}
		}
		return s.hierarchy.CreateFolder(txCtx, folder)
	})
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx)

	s.logger.Info("folder created", "folder_id", folder.ID, "channel_id", folder.ChannelID, "user_id", actor.UserID)
	return folder, nil
}

// CreatePage creates an empty page; its name must carry the NNN_ prefix
func (s *hierarchyService) CreatePage(ctx context.Context, actor models.Identity, req *contentSvc.CreatePageRequest) (*contentModels.Page, error) {
	if err := s.authorizer.RequireDeveloper(actor); err != nil {
		return nil, err
	}
	name, err := normalizeName(req.Name)
	if err != nil {
		return nil, err
	}
	if _, ok := PagePrefix(name); !ok {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("page name %q must start with a three-digit prefix and _", name)}
	}
	if _, err := s.hierarchy.GetFolder(ctx, req.FolderID); err != nil {
		return nil, err
	}

	page := &contentModels.Page{Name: name, FolderID: req.FolderID}
	if err := s.hierarchy.CreatePage(ctx, page); err != nil {
		return nil, err
	}
	s.Invalidate(ctx)

	s.logger.Info("page created", "page_id", page.ID, "folder_id", page.FolderID, "user_id", actor.UserID)
	return page, nil
}

// DeleteChannel tombstones a channel
func (s *hierarchyService) DeleteChannel(ctx context.Context, actor models.Identity, id int64) error {
	return s.softDelete(ctx, actor, "channel", id, s.hierarchy.SoftDeleteChannel)
}

// DeleteFolder tombstones a folder
func (s *hierarchyService) DeleteFolder(ctx context.Context, actor models.Identity, id int64) error {
	return s.softDelete(ctx, actor, "folder", id, s.hierarchy.SoftDeleteFolder)
}

// DeletePage tombstones a page
func (s *hierarchyService) DeletePage(ctx context.Context, actor models.Identity, id int64) error {
	return s.softDelete(ctx, actor, "page", id, s.hierarchy.SoftDeletePage)
}

func (s *hierarchyService) softDelete(
	ctx context.Context,
	actor models.Identity,
	kind string,
	id int64,
	del func(ctx context.Context, id int64) error,
) error {
	if err := s.authorizer.RequireDeveloper(actor); err != nil {
		return err
	}
	if err := del(ctx, id); err != nil {
		return err
	}
	s.Invalidate(ctx)

	s.logger.Info("hierarchy entry deleted", "kind", kind, "id", id, "user_id", actor.UserID)
	return nil
}

// Invalidate bumps the cache version. Failures only cost freshness until
// the TTL expires.
func (s *hierarchyService) Invalidate(ctx context.Context) {
	version, err := s.cache.Incr(ctx, hierarchyVersionKey)
	if err != nil {
		s.logger.Warn("hierarchy cache invalidation failed", "error", err)
		return
	}
	s.logger.Debug("hierarchy cache invalidated", "version", version)
}
