package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"beps/internal/capabilities"
	"beps/internal/domain"
	"beps/internal/domain/models"
	contentModels "beps/internal/domain/models/content"
	"beps/internal/domain/repositories"
	contentRepo "beps/internal/domain/repositories/content"
	"beps/internal/domain/services"
	contentSvc "beps/internal/domain/services/content"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// invalidator drops cached hierarchy reads after a mutation.
type invalidator interface {
	Invalidate(ctx context.Context)
}

// workflowService implements the WorkflowService interface
type workflowService struct {
	hierarchy   contentRepo.HierarchyRepository
	additionals contentRepo.AdditionalRepository
	workflow    contentRepo.WorkflowRepository
	txManager   repositories.TransactionManager
	store       repositories.ObjectStore
	deriver     *Deriver
	policies    *capabilities.Registry
	authorizer  services.ContentAuthorizer
	cache       invalidator
	location    *time.Location
	now         func() time.Time
	logger      *slog.Logger
}

// NewWorkflowService creates a new workflow service
func NewWorkflowService(
	hierarchy contentRepo.HierarchyRepository,
	additionals contentRepo.AdditionalRepository,
	workflow contentRepo.WorkflowRepository,
	txManager repositories.TransactionManager,
	store repositories.ObjectStore,
	policies *capabilities.Registry,
	authorizer services.ContentAuthorizer,
	cache invalidator,
	location *time.Location,
	logger *slog.Logger,
) contentSvc.WorkflowService {
	return &workflowService{
		hierarchy:   hierarchy,
		additionals: additionals,
		workflow:    workflow,
		txManager:   txManager,
		store:       store,
		deriver:     NewDeriver(hierarchy, logger),
		policies:    policies,
		authorizer:  authorizer,
		cache:       cache,
		location:    location,
		now:         time.Now,
		logger:      logger,
	}
}

// target is a resolved page or additional.
type target struct {
	contentType contentModels.ContentType
	page        *contentModels.Page
	additional  *contentModels.PageAdditional
}

func (t *target) id() int64 {
	if t.additional != nil {
		return t.additional.ID
	}
	return t.page.ID
}

// filename is the canonical filename of the target.
func (t *target) filename() string {
	if t.additional != nil {
		return t.additional.Filename
	}
	return t.page.Name
}

func (s *workflowService) resolve(ctx context.Context, contentType contentModels.ContentType, id int64) (*target, error) {
	switch contentType {
	case contentModels.ContentTypePage:
		page, err := s.hierarchy.GetPage(ctx, id)
		if err != nil {
			return nil, err
		}
		return &target{contentType: contentType, page: page}, nil
	case contentModels.ContentTypeAdditional:
		additional, err := s.additionals.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		page, err := s.hierarchy.GetPage(ctx, additional.PageID)
		if err != nil {
			return nil, err
		}
		return &target{contentType: contentType, page: page, additional: additional}, nil
	default:
		return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown content type %q", contentType)}
	}
}

// canonicalKey derives where the approved object of the target lives.
func (s *workflowService) canonicalKey(ctx context.Context, t *target) (string, error) {
	if t.additional != nil {
		return s.deriver.PageDirKey(ctx, t.page, t.additional.Filename)
	}
	return s.deriver.PageKey(ctx, t.page, t.page.Name)
}

// UploadPending stages a new version of an existing page or additional
func (s *workflowService) UploadPending(ctx context.Context, req *contentSvc.UploadRequest) (*contentModels.PendingContent, error) {
	if err := s.validateUploadRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.policies.Check(string(req.ContentType), req.Filename, req.MimeType, req.Size); err != nil {
		return nil, err
	}

	t, err := s.resolve(ctx, req.ContentType, req.TargetID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CanUpload(ctx, req.Actor, t.page.ID); err != nil {
		return nil, err
	}
	if t.additional != nil && Extension(req.Filename) != t.additional.FileExtension {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("additional %d expects %s files", t.additional.ID, t.additional.FileExtension),
		}
	}

	canonical, err := s.canonicalKey(ctx, t)
	if err != nil {
		return nil, err
	}
	pendingKey := PendingKey(canonical)

	if err := s.store.Put(ctx, pendingKey, req.Body, req.Size, req.MimeType); err != nil {
		return nil, fmt.Errorf("store pending object: %w", err)
	}

	pending := &contentModels.PendingContent{
		ContentType: req.ContentType,
		PageID:      t.page.ID,
		ObjectKey:   pendingKey,
		Filename:    t.filename(),
		FileSize:    req.Size,
		UploadedBy:  req.Actor.UserID,
		UploadedAt:  s.now(),
	}
	if t.additional != nil {
		pending.AdditionalID = &t.additional.ID
	}

	var (
		prior     *contentModels.PendingContent
		priorRead bool
	)
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		existing, err := s.workflow.GetPending(txCtx, req.ContentType, t.id())
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		prior, priorRead = existing, true
		return s.workflow.UpsertPending(txCtx, pending)
	})
	if err != nil {
		// A surviving prior row may still reference the key we just overwrote.
		if priorRead && (prior == nil || prior.ObjectKey != pendingKey) {
			s.deleteObject(ctx, pendingKey, "discard pending object")
		}
		return nil, err
	}

	if prior != nil && prior.ObjectKey != pendingKey {
		s.deleteObject(ctx, prior.ObjectKey, "delete replaced pending object")
	}

	s.logger.Info("pending content staged",
		"content_type", req.ContentType,
		"target_id", t.id(),
		"object_key", pendingKey,
		"file_size", req.Size,
		"user_id", req.Actor.UserID,
	)
	return pending, nil
}

// Approve promotes the pending version of a target.
//
// Order inside the transaction: head canonical, copy it to archived, insert
// the archive row, copy pending over canonical, delete the pending object,
// delete the pending row, then record object id and size.
func (s *workflowService) Approve(ctx context.Context, actor models.Identity, contentType contentModels.ContentType, targetID int64) (*contentSvc.ApproveResult, error) {
	t, err := s.resolve(ctx, contentType, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CanApprove(ctx, actor, t.page.ID); err != nil {
		return nil, err
	}

	result := &contentSvc.ApproveResult{ContentType: contentType, TargetID: targetID}
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		pending, err := s.workflow.GetPending(txCtx, contentType, targetID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return &domain.NotFoundError{Message: fmt.Sprintf("no pending content for %s %d", contentType, targetID)}
			}
			return err
		}

		canonical, err := s.canonicalKey(txCtx, t)
		if err != nil {
			return err
		}
		result.CanonicalKey = canonical
		result.FileSize = pending.FileSize

		info, err := s.store.Head(txCtx, canonical)
		switch {
		case err == nil:
			archived, err := s.archive(txCtx, actor, t, canonical, info.Size)
			if err != nil {
				return err
			}
			result.Archived = archived
		case errors.Is(err, domain.ErrNotFound):
		default:
			return fmt.Errorf("head canonical object: %w", err)
		}

		if err := s.store.Copy(txCtx, pending.ObjectKey, canonical); err != nil {
			return fmt.Errorf("copy pending to canonical: %w", err)
		}
		if err := s.store.Delete(txCtx, pending.ObjectKey); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("pending object not deleted",
				"object_key", pending.ObjectKey,
				"error", err,
			)
		}
		if err := s.workflow.DeletePending(txCtx, pending.ID); err != nil {
			return err
		}

		if t.additional != nil {
			if canonical != t.additional.ObjectKey {
				if err := s.additionals.UpdateObject(txCtx, t.additional.ID, t.additional.Filename, canonical); err != nil {
					return err
				}
			}
			return s.additionals.UpdateFileSize(txCtx, t.additional.ID, pending.FileSize)
		}
		return s.hierarchy.SetPageObjectID(txCtx, t.page.ID, &canonical)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx)
	s.logger.Info("content approved",
		"content_type", contentType,
		"target_id", targetID,
		"object_key", result.CanonicalKey,
		"archived", result.Archived != nil,
		"user_id", actor.UserID,
	)
	return result, nil
}

// archive copies the current canonical object aside and records it.
func (s *workflowService) archive(ctx context.Context, actor models.Identity, t *target, canonical string, size int64) (*contentModels.ArchivedContent, error) {
	now := s.now()
	archivedKey := ArchivedKey(canonical, now, s.location)
	if err := s.store.Copy(ctx, canonical, archivedKey); err != nil {
		return nil, fmt.Errorf("copy canonical to archive: %w", err)
	}

	archived := &contentModels.ArchivedContent{
		ContentType:      t.contentType,
		OriginalPageID:   t.page.ID,
		ObjectKey:        archivedKey,
		ArchivedFilename: path.Base(archivedKey),
		FileSize:         size,
		ArchivedBy:       actor.UserID,
		ArchivedAt:       now,
	}
	if t.additional != nil {
		archived.OriginalAdditionalID = &t.additional.ID
	}
	if err := s.workflow.InsertArchive(ctx, archived); err != nil {
		return nil, err
	}
	return archived, nil
}

// DeleteContent removes the published object of a target. Rows change first;
// objects are deleted once the transaction has committed.
func (s *workflowService) DeleteContent(ctx context.Context, actor models.Identity, contentType contentModels.ContentType, targetID int64) error {
	t, err := s.resolve(ctx, contentType, targetID)
	if err != nil {
		return err
	}
	if err := s.authorizer.CanApprove(ctx, actor, t.page.ID); err != nil {
		return err
	}

	var keys []string
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		pending, err := s.workflow.GetPending(txCtx, contentType, targetID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if pending != nil {
			if err := s.workflow.DeletePending(txCtx, pending.ID); err != nil {
				return err
			}
			keys = append(keys, pending.ObjectKey)
		}

		if t.additional != nil {
			keys = append(keys, t.additional.ObjectKey)
			return s.additionals.SoftDelete(txCtx, t.additional.ID)
		}

		if t.page.ObjectID == nil {
			if pending == nil {
				return &domain.NotFoundError{Message: fmt.Sprintf("page %d has no published content", t.page.ID)}
			}
			return nil
		}
		keys = append(keys, *t.page.ObjectID)
		return s.hierarchy.SetPageObjectID(txCtx, t.page.ID, nil)
	})
	if err != nil {
		return err
	}

	for _, key := range keys {
		s.deleteObject(ctx, key, "delete content object")
	}
	s.cache.Invalidate(ctx)

	s.logger.Info("content deleted",
		"content_type", contentType,
		"target_id", targetID,
		"objects", len(keys),
		"user_id", actor.UserID,
	)
	return nil
}

// PendingStatus reports whether a target has a pending and a published version
func (s *workflowService) PendingStatus(ctx context.Context, contentType contentModels.ContentType, targetID int64) (*contentModels.PendingStatus, error) {
	t, err := s.resolve(ctx, contentType, targetID)
	if err != nil {
		return nil, err
	}

	status := &contentModels.PendingStatus{
		ContentType: contentType,
		TargetID:    targetID,
	}
	if t.additional != nil {
		status.Published = t.additional.FileSize > 0
	} else {
		status.Published = t.page.ObjectID != nil
	}

	pending, err := s.workflow.GetPending(ctx, contentType, targetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return status, nil
		}
		return nil, err
	}
	status.HasPending = true
	status.Pending = pending
	return status, nil
}

// ListArchives returns the archive history of a target, newest first
func (s *workflowService) ListArchives(ctx context.Context, contentType contentModels.ContentType, targetID int64) ([]contentModels.ArchivedContent, error) {
	if _, err := s.resolve(ctx, contentType, targetID); err != nil {
		return nil, err
	}
	return s.workflow.ListArchives(ctx, contentType, targetID)
}

// deleteObject removes an object outside any transaction and only logs failures.
func (s *workflowService) deleteObject(ctx context.Context, key, action string) {
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("object delete failed",
			"action", action,
			"object_key", key,
			"error", err,
		)
	}
}

func (s *workflowService) validateUploadRequest(req *contentSvc.UploadRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.ContentType,
			validation.Required,
			validation.In(contentModels.ContentTypePage, contentModels.ContentTypeAdditional),
		),
		validation.Field(&req.TargetID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.Filename, validation.Required),
		validation.Field(&req.Body, validation.NotNil),
	)
}
