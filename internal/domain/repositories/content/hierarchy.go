package content

import (
	"context"

	models "beps/internal/domain/models/content"
)

// HierarchyRepository persists channels, folders, pages and page details.
// Reads exclude soft-deleted rows.
type HierarchyRepository interface {
	GetChannel(ctx context.Context, id int64) (*models.Channel, error)
	GetFolder(ctx context.Context, id int64) (*models.Folder, error)
	GetPage(ctx context.Context, id int64) (*models.Page, error)
	GetDetail(ctx context.Context, id int64) (*models.PageDetail, error)

	// FolderChain returns the folder and its ancestors, leaf first, ending at
	// the top-level folder of the channel.
	FolderChain(ctx context.Context, folderID int64) ([]models.FolderLink, error)

	// LockPage takes a row lock on the page for the current transaction.
	LockPage(ctx context.Context, id int64) (*models.Page, error)

	CreateChannel(ctx context.Context, channel *models.Channel) error
	CreateFolder(ctx context.Context, folder *models.Folder) error
	CreatePage(ctx context.Context, page *models.Page) error

	RenameChannel(ctx context.Context, id int64, name string) error
	RenameFolder(ctx context.Context, id int64, name string) error
	RenamePage(ctx context.Context, id int64, name string) error

	SetPageObjectID(ctx context.Context, id int64, objectID *string) error
	SetDetailObjectID(ctx context.Context, id int64, objectID *string) error

	SoftDeleteChannel(ctx context.Context, id int64) error
	SoftDeleteFolder(ctx context.Context, id int64) error
	SoftDeletePage(ctx context.Context, id int64) error

	ListDetails(ctx context.Context, pageID int64) ([]models.PageDetail, error)
	CountDetails(ctx context.Context, pageID int64) (int, error)

	// PagesUnderFolder returns every page in the folder's subtree.
	PagesUnderFolder(ctx context.Context, folderID int64) ([]models.Page, error)
	PagesUnderChannel(ctx context.Context, channelID int64) ([]models.Page, error)

	// Snapshot reads the live hierarchy, optionally limited to one channel.
	Snapshot(ctx context.Context, channelID *int64, withDetails bool) (*models.Snapshot, error)
}

// AdditionalRepository persists page additionals.
type AdditionalRepository interface {
	Get(ctx context.Context, id int64) (*models.PageAdditional, error)
	ListByPage(ctx context.Context, pageID int64) ([]models.PageAdditional, error)
	ListByPages(ctx context.Context, pageIDs []int64) ([]models.PageAdditional, error)

	// MaxContentNumber returns the highest content_number among live additionals
	// of the page, or 0 when there are none.
	MaxContentNumber(ctx context.Context, pageID int64) (int, error)

	Create(ctx context.Context, additional *models.PageAdditional) error
	UpdateObject(ctx context.Context, id int64, filename, objectKey string) error
	UpdateFileSize(ctx context.Context, id int64, size int64) error
	SoftDelete(ctx context.Context, id int64) error
}
