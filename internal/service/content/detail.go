package content

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"beps/internal/domain"
	contentModels "beps/internal/domain/models/content"
	contentSvc "beps/internal/domain/services/content"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	// detailPolicy is the upload policy detail images are checked against.
	detailPolicy = "detail"

	detailDownloadExpiry = time.Hour
)

// UploadDetail writes a detail image to its canonical key and records it on
// the detail. Details are published immediately; only approvers may do it.
func (s *workflowService) UploadDetail(ctx context.Context, req *contentSvc.DetailUploadRequest) (*contentModels.PageDetail, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.DetailID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.Filename, validation.Required),
		validation.Field(&req.Body, validation.NotNil),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if err := s.policies.Check(detailPolicy, req.Filename, req.MimeType, req.Size); err != nil {
		return nil, err
	}

	detail, err := s.hierarchy.GetDetail(ctx, req.DetailID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CanApprove(ctx, req.Actor, detail.PageID); err != nil {
		return nil, err
	}

	key, err := s.deriver.DetailKey(ctx, detail, detail.Name)
	if err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, key, req.Body, req.Size, req.MimeType); err != nil {
		return nil, fmt.Errorf("store detail object: %w", err)
	}

	previous := detail.ObjectID
	if err := s.hierarchy.SetDetailObjectID(ctx, detail.ID, &key); err != nil {
		if previous == nil || *previous != key {
			s.deleteObject(ctx, key, "discard detail object")
		}
		return nil, err
	}
	if previous != nil && *previous != key {
		s.deleteObject(ctx, *previous, "delete replaced detail object")
	}
	s.cache.Invalidate(ctx)

	s.logger.Info("page detail uploaded",
		"detail_id", detail.ID,
		"page_id", detail.PageID,
		"object_key", key,
		"file_size", req.Size,
		"user_id", req.Actor.UserID,
	)

	detail.ObjectID = &key
	detail.UpdatedAt = s.now()
	return detail, nil
}

// DetailDownload presigns the recorded object of a detail.
func (s *workflowService) DetailDownload(ctx context.Context, detailID int64) (*contentSvc.DetailDownload, error) {
	detail, err := s.hierarchy.GetDetail(ctx, detailID)
	if err != nil {
		return nil, err
	}
	if detail.ObjectID == nil || *detail.ObjectID == "" {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("page detail %d has no content", detail.ID)}
	}

	url, err := s.store.Presign(ctx, http.MethodGet, *detail.ObjectID, detailDownloadExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign detail %d: %w", detail.ID, err)
	}
	return &contentSvc.DetailDownload{
		DownloadURL: url,
		Filename:    detail.Name,
		DetailID:    detail.ID,
	}, nil
}
