package content

import (
	"context"

	"beps/internal/domain/models"
	contentModels "beps/internal/domain/models/content"
)

// HierarchyService reads and edits the content tree.
type HierarchyService interface {
	// Traverse is the single read over the tree, shaped by options.
	Traverse(ctx context.Context, opts TraverseOptions) ([]contentModels.ChannelNode, error)

	CreateChannel(ctx context.Context, actor models.Identity, req *CreateChannelRequest) (*contentModels.Channel, error)
	CreateFolder(ctx context.Context, actor models.Identity, req *CreateFolderRequest) (*contentModels.Folder, error)
	CreatePage(ctx context.Context, actor models.Identity, req *CreatePageRequest) (*contentModels.Page, error)

	DeleteChannel(ctx context.Context, actor models.Identity, id int64) error
	DeleteFolder(ctx context.Context, actor models.Identity, id int64) error
	DeletePage(ctx context.Context, actor models.Identity, id int64) error

	// Invalidate drops cached traversals after a mutation.
	Invalidate(ctx context.Context)
}

// PresenceProber answers whether a page or detail has a canonical object.
type PresenceProber interface {
	Probe(ctx context.Context, fileID int64, isDetail bool) (*contentModels.ContentPresence, error)

	// PresignedURL returns a time-limited GET URL for the canonical object.
	PresignedURL(ctx context.Context, fileID int64, isDetail bool) (string, error)
}

// TraverseOptions filters and projects a traversal.
type TraverseOptions struct {
	ChannelID       *int64 `json:"channel_id,omitempty"`
	FolderID        *int64 `json:"folder_id,omitempty"`
	Depth           int    `json:"depth"`
	IncludePages    bool   `json:"include_pages"`
	IncludeDetails  bool   `json:"include_details"`
	IncludePresence bool   `json:"include_presence"`
	IncludeManagers bool   `json:"include_managers"`
}

// CreateChannelRequest creates a channel.
type CreateChannelRequest struct {
	Name string `json:"name"`
}

// CreateFolderRequest creates a folder; ParentID nil creates a category.
type CreateFolderRequest struct {
	ChannelID int64  `json:"channel_id"`
	ParentID  *int64 `json:"parent_id,omitempty"`
	Name      string `json:"name"`
}

// CreatePageRequest creates an empty page.
type CreatePageRequest struct {
	FolderID int64  `json:"folder_id"`
	Name     string `json:"name"`
}
