package content

import (
	"context"
	"fmt"

	"beps/internal/domain"
	contentModels "beps/internal/domain/models/content"
	contentSvc "beps/internal/domain/services/content"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// CreateAdditional numbers a new additional for a page and stages its first
// version. The page row lock serialises concurrent numbering.
func (s *workflowService) CreateAdditional(ctx context.Context, req *contentSvc.CreateAdditionalRequest) (*contentSvc.CreateAdditionalResult, error) {
	if err := s.validateCreateAdditionalRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.policies.Check(string(contentModels.ContentTypeAdditional), req.Filename, req.MimeType, req.Size); err != nil {
		return nil, err
	}

	page, err := s.hierarchy.GetPage(ctx, req.PageID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CanUpload(ctx, req.Actor, page.ID); err != nil {
		return nil, err
	}

	prefix, ok := PagePrefix(page.Name)
	if !ok {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("page %q has no three-digit prefix", page.Name),
		}
	}
	ext := Extension(req.Filename)

	result := &contentSvc.CreateAdditionalResult{}
	var pendingKey string
	stored := false
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		locked, err := s.hierarchy.LockPage(txCtx, page.ID)
		if err != nil {
			return err
		}
		highest, err := s.additionals.MaxContentNumber(txCtx, locked.ID)
		if err != nil {
			return err
		}

		number := highest + 1
		filename := AdditionalFilename(prefix, number, ext)
		canonical, err := s.deriver.PageDirKey(txCtx, locked, filename)
		if err != nil {
			return err
		}

		additional := &contentModels.PageAdditional{
			PageID:        locked.ID,
			Filename:      filename,
			ObjectKey:     canonical,
			FileExtension: ext,
			ContentNumber: number,
		}
		if err := s.additionals.Create(txCtx, additional); err != nil {
			return err
		}

		pendingKey = PendingKey(canonical)
		if err := s.store.Put(txCtx, pendingKey, req.Body, req.Size, req.MimeType); err != nil {
			return fmt.Errorf("store pending object: %w", err)
		}
		stored = true

		pending := &contentModels.PendingContent{
			ContentType:  contentModels.ContentTypeAdditional,
			PageID:       locked.ID,
			AdditionalID: &additional.ID,
			ObjectKey:    pendingKey,
			Filename:     filename,
			FileSize:     req.Size,
			UploadedBy:   req.Actor.UserID,
			UploadedAt:   s.now(),
		}
		if err := s.workflow.UpsertPending(txCtx, pending); err != nil {
			return err
		}

		result.Additional = additional
		result.Pending = pending
		return nil
	})
	if err != nil {
		if stored {
			s.deleteObject(ctx, pendingKey, "discard pending object")
		}
		return nil, err
	}

	s.cache.Invalidate(ctx)
	s.logger.Info("additional created",
		"page_id", page.ID,
		"additional_id", result.Additional.ID,
		"content_number", result.Additional.ContentNumber,
		"object_key", pendingKey,
		"user_id", req.Actor.UserID,
	)
	return result, nil
}

// ListAdditionals returns the live additionals of a page by content number
func (s *workflowService) ListAdditionals(ctx context.Context, pageID int64) ([]contentModels.PageAdditional, error) {
	if _, err := s.hierarchy.GetPage(ctx, pageID); err != nil {
		return nil, err
	}
	return s.additionals.ListByPage(ctx, pageID)
}

// GetAdditional returns a single live additional
func (s *workflowService) GetAdditional(ctx context.Context, id int64) (*contentModels.PageAdditional, error) {
	return s.additionals.Get(ctx, id)
}

func (s *workflowService) validateCreateAdditionalRequest(req *contentSvc.CreateAdditionalRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.PageID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.Filename, validation.Required),
		validation.Field(&req.Body, validation.NotNil),
	)
}
