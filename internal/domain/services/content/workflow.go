package content

import (
	"context"
	"io"

	"beps/internal/domain/models"
	contentModels "beps/internal/domain/models/content"
)

// WorkflowService runs the pending -> approved -> archived lifecycle.
type WorkflowService interface {
	// UploadPending stages a new version of a page or additional.
	UploadPending(ctx context.Context, req *UploadRequest) (*contentModels.PendingContent, error)

	// CreateAdditional numbers a new additional for a page and stages its first version.
	CreateAdditional(ctx context.Context, req *CreateAdditionalRequest) (*CreateAdditionalResult, error)

	// Approve promotes the pending version, archiving the current canonical object.
	Approve(ctx context.Context, actor models.Identity, contentType contentModels.ContentType, targetID int64) (*ApproveResult, error)

	// DeleteContent removes the canonical object of a target (Published -> Empty).
	DeleteContent(ctx context.Context, actor models.Identity, contentType contentModels.ContentType, targetID int64) error

	PendingStatus(ctx context.Context, contentType contentModels.ContentType, targetID int64) (*contentModels.PendingStatus, error)
	ListArchives(ctx context.Context, contentType contentModels.ContentType, targetID int64) ([]contentModels.ArchivedContent, error)
	ListAdditionals(ctx context.Context, pageID int64) ([]contentModels.PageAdditional, error)
	GetAdditional(ctx context.Context, id int64) (*contentModels.PageAdditional, error)

	// UploadDetail publishes a detail image directly; details have no pending stage.
	UploadDetail(ctx context.Context, req *DetailUploadRequest) (*contentModels.PageDetail, error)

	// DetailDownload returns a time-limited GET URL for a detail image.
	DetailDownload(ctx context.Context, detailID int64) (*DetailDownload, error)
}

// UploadRequest carries an uploaded file for an existing target.
type UploadRequest struct {
	Actor       models.Identity
	ContentType contentModels.ContentType
	TargetID    int64
	Filename    string
	MimeType    string
	Size        int64
	Body        io.Reader
}

// CreateAdditionalRequest carries the first upload of a new additional.
type CreateAdditionalRequest struct {
	Actor    models.Identity
	PageID   int64
	Filename string
	MimeType string
	Size     int64
	Body     io.Reader
}

// DetailUploadRequest carries the image of a page detail.
type DetailUploadRequest struct {
	Actor    models.Identity
	DetailID int64
	Filename string
	MimeType string
	Size     int64
	Body     io.Reader
}

// DetailDownload is a presigned link to a detail image.
type DetailDownload struct {
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
	DetailID    int64  `json:"detail_id"`
}

// CreateAdditionalResult is the new additional and its pending version.
type CreateAdditionalResult struct {
	Additional *contentModels.PageAdditional `json:"additional"`
	Pending    *contentModels.PendingContent `json:"pending"`
}

// ApproveResult describes a completed approval.
type ApproveResult struct {
	ContentType  contentModels.ContentType      `json:"content_type"`
	TargetID     int64                          `json:"target_id"`
	CanonicalKey string                         `json:"canonical_key"`
	FileSize     int64                          `json:"file_size"`
	Archived     *contentModels.ArchivedContent `json:"archived,omitempty"`
}
