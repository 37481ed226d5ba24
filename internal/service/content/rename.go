package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"beps/internal/domain"
	"beps/internal/domain/models"
	contentModels "beps/internal/domain/models/content"
	"beps/internal/domain/repositories"
	contentRepo "beps/internal/domain/repositories/content"
	"beps/internal/domain/services"
	contentSvc "beps/internal/domain/services/content"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxNameLength = 255

// renameService implements the RenameService interface
type renameService struct {
	hierarchy   contentRepo.HierarchyRepository
	additionals contentRepo.AdditionalRepository
	workflow    contentRepo.WorkflowRepository
	txManager   repositories.TransactionManager
	store       repositories.ObjectStore
	deriver     *Deriver
	authorizer  services.ContentAuthorizer
	cache       invalidator
	logger      *slog.Logger
}

// NewRenameService creates a new rename service
func NewRenameService(
	hierarchy contentRepo.HierarchyRepository,
	additionals contentRepo.AdditionalRepository,
	workflow contentRepo.WorkflowRepository,
	txManager repositories.TransactionManager,
	store repositories.ObjectStore,
	authorizer services.ContentAuthorizer,
	cache invalidator,
	logger *slog.Logger,
) contentSvc.RenameService {
	return &renameService{
		hierarchy:   hierarchy,
		additionals: additionals,
		workflow:    workflow,
		txManager:   txManager,
		store:       store,
		deriver:     NewDeriver(hierarchy, logger),
		authorizer:  authorizer,
		cache:       cache,
		logger:      logger,
	}
}

// RenameChannel renames a channel and moves every object beneath it
func (s *renameService) RenameChannel(ctx context.Context, actor models.Identity, id int64, newName string) (*contentSvc.RenameResult, error) {
	if err := s.authorizer.RequireDeveloper(actor); err != nil {
		return nil, err
	}
	newName, err := normalizeName(newName)
	if err != nil {
		return nil, err
	}

	channel, err := s.hierarchy.GetChannel(ctx, id)
	if err != nil {
		return nil, err
	}
	if channel.Name == newName {
		return unchanged(), nil
	}

	return s.cascade(ctx, "channel", id, func(txCtx context.Context) ([]contentModels.Page, error) {
		pages, err := s.hierarchy.PagesUnderChannel(txCtx, id)
		if err != nil {
			return nil, err
		}
		return pages, s.hierarchy.RenameChannel(txCtx, id, newName)
	}, nil)
}

// RenameFolder renames a folder and moves every object in its subtree
func (s *renameService) RenameFolder(ctx context.Context, actor models.Identity, id int64, newName string) (*contentSvc.RenameResult, error) {
	if err := s.authorizer.RequireDeveloper(actor); err != nil {
		return nil, err
	}
	newName, err := normalizeName(newName)
	if err != nil {
		return nil, err
	}

	folder, err := s.hierarchy.GetFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	if folder.Name == newName {
		return unchanged(), nil
	}

	return s.cascade(ctx, "folder", id, func(txCtx context.Context) ([]contentModels.Page, error) {
		pages, err := s.hierarchy.PagesUnderFolder(txCtx, id)
		if err != nil {
			return nil, err
		}
		return pages, s.hierarchy.RenameFolder(txCtx, id, newName)
	}, nil)
}

// RenamePage renames a page. A prefix change also renames its additionals.
func (s *renameService) RenamePage(ctx context.Context, actor models.Identity, id int64, newName string) (*contentSvc.RenameResult, error) {
	newName, err := normalizeName(newName)
	if err != nil {
		return nil, err
	}
	prefix, ok := PagePrefix(newName)
	if !ok {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("page name %q must start with a three-digit prefix and _", newName)}
	}

	page, err := s.hierarchy.GetPage(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CanApprove(ctx, actor, page.ID); err != nil {
		return nil, err
	}
	if page.Name == newName {
		return unchanged(), nil
	}

	var reprefix *string
	if oldPrefix, _ := PagePrefix(page.Name); oldPrefix != prefix {
		reprefix = &prefix
	}

	return s.cascade(ctx, "page", id, func(txCtx context.Context) ([]contentModels.Page, error) {
		locked, err := s.hierarchy.LockPage(txCtx, id)
		if err != nil {
			return nil, err
		}
		return []contentModels.Page{*locked}, s.hierarchy.RenamePage(txCtx, id, newName)
	}, reprefix)
}

// cascade runs rename inside a transaction, re-derives every key of the
// affected pages, updates the rows, then moves the objects. Store failures
// are recorded per object and never roll back the rename.
func (s *renameService) cascade(
	ctx context.Context,
	kind string,
	id int64,
	rename func(txCtx context.Context) ([]contentModels.Page, error),
	prefix *string,
) (*contentSvc.RenameResult, error) {
	var moves []contentModels.RenamedObject

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		pages, err := rename(txCtx)
		if err != nil {
			return err
		}

		moves = nil
		for _, p := range pages {
			pageMoves, err := s.rekeyPage(txCtx, p.ID, prefix)
			if err != nil {
				return err
			}
			moves = append(moves, pageMoves...)
		}

		for i := range moves {
			s.move(txCtx, &moves[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)

	result := &contentSvc.RenameResult{Changed: true, Renamed: make([]contentModels.RenamedObject, 0, len(moves))}
	failed := 0
	for _, m := range moves {
		if m.Error != "" {
			failed++
		}
		result.Renamed = append(result.Renamed, m)
	}

	s.logger.Info("rename cascaded",
		"kind", kind,
		"id", id,
		"objects", len(moves),
		"failed_moves", failed,
	)
	return result, nil
}

// rekeyPage re-derives the keys of a page, its details, its additionals and
// their pending rows using the renamed hierarchy, and writes them back.
func (s *renameService) rekeyPage(ctx context.Context, pageID int64, prefix *string) ([]contentModels.RenamedObject, error) {
	page, err := s.hierarchy.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}

	var moves []contentModels.RenamedObject
	pageKey, err := s.deriver.PageKey(ctx, page, page.Name)
	if err != nil {
		return nil, err
	}
	if page.ObjectID != nil && *page.ObjectID != pageKey {
		if err := s.hierarchy.SetPageObjectID(ctx, page.ID, &pageKey); err != nil {
			return nil, err
		}
		moves = append(moves, newMove("page", page.ID, *page.ObjectID, pageKey))
	}

	details, err := s.hierarchy.ListDetails(ctx, page.ID)
	if err != nil {
		return nil, err
	}
	for _, d := range details {
		if d.ObjectID == nil {
			continue
		}
		key, err := s.deriver.PageDirKey(ctx, page, d.Name)
		if err != nil {
			return nil, err
		}
		if key == *d.ObjectID {
			continue
		}
		if err := s.hierarchy.SetDetailObjectID(ctx, d.ID, &key); err != nil {
			return nil, err
		}
		moves = append(moves, newMove("detail", d.ID, *d.ObjectID, key))
	}

	additionals, err := s.additionals.ListByPage(ctx, page.ID)
	if err != nil {
		return nil, err
	}
	additionalKeys := make(map[int64]string, len(additionals))
	additionalNames := make(map[int64]string, len(additionals))
	for _, a := range additionals {
		filename := a.Filename
		if prefix != nil {
			filename = ReprefixAdditional(filename, *prefix)
		}
		key, err := s.deriver.PageDirKey(ctx, page, filename)
		if err != nil {
			return nil, err
		}
		additionalKeys[a.ID] = key
		additionalNames[a.ID] = filename
		if key == a.ObjectKey && filename == a.Filename {
			continue
		}
		if err := s.additionals.UpdateObject(ctx, a.ID, filename, key); err != nil {
			return nil, err
		}
		// Unapproved additionals have no canonical object yet.
		if a.FileSize > 0 {
			moves = append(moves, newMove("additional", a.ID, a.ObjectKey, key))
		}
	}

	pendings, err := s.workflow.ListPendingByPages(ctx, []int64{page.ID})
	if err != nil {
		return nil, err
	}
	for _, p := range pendings {
		filename, canonical := page.Name, pageKey
		if p.ContentType == contentModels.ContentTypeAdditional && p.AdditionalID != nil {
			key, ok := additionalKeys[*p.AdditionalID]
			if !ok {
				continue
			}
			filename, canonical = additionalNames[*p.AdditionalID], key
		}
		key := PendingKey(canonical)
		if key == p.ObjectKey {
			continue
		}
		if err := s.workflow.UpdatePendingObject(ctx, p.ID, filename, key); err != nil {
			return nil, err
		}
		moves = append(moves, newMove("pending", p.ID, p.ObjectKey, key))
	}

	return moves, nil
}

// move copies the object to its new key and deletes the old one.
func (s *renameService) move(ctx context.Context, obj *contentModels.RenamedObject) {
	if err := s.store.Copy(ctx, obj.OldKey, obj.NewKey); err != nil {
		obj.Error = err.Error()
		level := slog.LevelError
		if errors.Is(err, domain.ErrNotFound) {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, "object move failed",
			"type", obj.Type,
			"id", obj.ID,
			"old_key", obj.OldKey,
			"new_key", obj.NewKey,
			"error", err,
		)
		return
	}
	obj.Moved = true
	if err := s.store.Delete(ctx, obj.OldKey); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("old object not deleted after move",
			"type", obj.Type,
			"id", obj.ID,
			"old_key", obj.OldKey,
			"error", err,
		)
	}
}

func newMove(kind string, id int64, oldKey, newKey string) contentModels.RenamedObject {
	return contentModels.RenamedObject{Type: kind, ID: id, OldKey: oldKey, NewKey: newKey}
}

func unchanged() *contentSvc.RenameResult {
	return &contentSvc.RenameResult{Changed: false, Renamed: []contentModels.RenamedObject{}}
}

// normalizeName trims and validates a hierarchy name
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	err := validation.Validate(name,
		validation.Required,
		validation.Length(1, maxNameLength),
	)
	if err != nil {
		return "", fmt.Errorf("%w: name %v", domain.ErrValidation, err)
	}
	return name, nil
}
