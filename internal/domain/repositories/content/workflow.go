package content

import (
	"context"

	models "beps/internal/domain/models/content"
)

// WorkflowRepository persists pending and archived content.
type WorkflowRepository interface {
	// GetPending returns the pending row of a target, or domain.ErrNotFound.
	GetPending(ctx context.Context, contentType models.ContentType, targetID int64) (*models.PendingContent, error)

	// UpsertPending inserts or replaces the pending row of a target.
	UpsertPending(ctx context.Context, pending *models.PendingContent) error

	DeletePending(ctx context.Context, id int64) error
	UpdatePendingObject(ctx context.Context, id int64, filename, objectKey string) error

	// ListPendingByPages returns pending rows of the pages and their additionals.
	ListPendingByPages(ctx context.Context, pageIDs []int64) ([]models.PendingContent, error)

	InsertArchive(ctx context.Context, archive *models.ArchivedContent) error
	ListArchives(ctx context.Context, contentType models.ContentType, targetID int64) ([]models.ArchivedContent, error)
}

// ManagerRepository answers content manager lookups. User ids are compared
// through Assignee.user_id.
type ManagerRepository interface {
	IsFileManager(ctx context.Context, userID string, pageID int64) (bool, error)
	IsFolderManager(ctx context.Context, userID string, folderIDs []int64) (bool, error)
	IsChannelManager(ctx context.Context, userID string, channelID int64) (bool, error)
}

// AssignmentRepository edits content manager assignments and their assignees.
type AssignmentRepository interface {
	List(ctx context.Context) ([]models.ManagerEntry, error)
	Get(ctx context.Context, id int64) (*models.ContentManager, error)

	// FindUser matches a live user case-insensitively, or returns domain.ErrNotFound.
	FindUser(ctx context.Context, userID string) (*models.UserProfile, error)

	// FindAssignee returns the assignee of a user id, or domain.ErrNotFound.
	FindAssignee(ctx context.Context, userID string) (*models.Assignee, error)
	CreateAssignee(ctx context.Context, assignee *models.Assignee) error

	// DeleteAssigneeIfUnused removes an assignee no assignment references.
	DeleteAssigneeIfUnused(ctx context.Context, id int64) error

	// TargetAssigned reports whether an assignment other than m holds m's target.
	TargetAssigned(ctx context.Context, m *models.ContentManager) (bool, error)

	Create(ctx context.Context, m *models.ContentManager) error
	Update(ctx context.Context, m *models.ContentManager) error
	Delete(ctx context.Context, id int64) error
}
