package content

import (
	"time"
)

// Channel is the root of a content sub-tree.
type Channel struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	IsDeleted bool      `json:"is_deleted" db:"is_deleted"`
}

// Folder is a category (top level, ParentID nil) or a nested folder.
type Folder struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	ChannelID int64     `json:"channel_id" db:"channel_id"`
	ParentID  *int64    `json:"parent_id" db:"parent_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	IsDeleted bool      `json:"is_deleted" db:"is_deleted"`
}

// Page is a learning page image. ObjectID is the canonical object key, set on first approval.
type Page struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	FolderID  int64     `json:"folder_id" db:"folder_id"`
	ObjectID  *string   `json:"object_id" db:"object_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	IsDeleted bool      `json:"is_deleted" db:"is_deleted"`
}

// PageDetail is a sub-page stored under its page's directory.
type PageDetail struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	PageID    int64     `json:"page_id" db:"page_id"`
	ObjectID  *string   `json:"object_id" db:"object_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	IsDeleted bool      `json:"is_deleted" db:"is_deleted"`
}

// PageAdditional is an auxiliary attachment of a page (video, pdf, image).
// Filename is always {page_prefix}_{NN}{ext} with NN = ContentNumber.
type PageAdditional struct {
	ID            int64     `json:"id" db:"id"`
	PageID        int64     `json:"page_id" db:"page_id"`
	Filename      string    `json:"filename" db:"filename"`
	ObjectKey     string    `json:"object_key" db:"object_key"`
	FileExtension string    `json:"file_extension" db:"file_extension"`
	ContentNumber int       `json:"content_number" db:"content_number"`
	FileSize      int64     `json:"file_size" db:"file_size"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
	IsDeleted     bool      `json:"is_deleted" db:"is_deleted"`
}

// FolderLink is the minimal projection used when walking up the tree.
type FolderLink struct {
	ID        int64
	Name      string
	ChannelID int64
	ParentID  *int64
}
