package content

import (
	"context"

	"beps/internal/domain/models"
	contentModels "beps/internal/domain/models/content"
)

// ManagerService edits content manager assignments. Writes require a
// developer role.
type ManagerService interface {
	List(ctx context.Context) ([]contentModels.ManagerEntry, error)
	Create(ctx context.Context, actor models.Identity, req *ManagerRequest) (*contentModels.ContentManager, error)

	// Update changes the assignee when UserID is set and the target when
	// Type is set; omitted parts are kept. An assignee left without
	// assignments is removed.
	Update(ctx context.Context, actor models.Identity, id int64, req *ManagerRequest) (*contentModels.ContentManager, error)

	Delete(ctx context.Context, actor models.Identity, id int64) error
}

// ManagerRequest assigns a user to one channel, folder or file.
type ManagerRequest struct {
	UserID    string                    `json:"user_id"`
	Type      contentModels.ManagerType `json:"type"`
	ChannelID *int64                    `json:"channel_id,omitempty"`
	FolderID  *int64                    `json:"folder_id,omitempty"`
	FileID    *int64                    `json:"file_id,omitempty"`
}
