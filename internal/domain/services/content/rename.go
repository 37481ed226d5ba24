package content

import (
	"context"

	"beps/internal/domain/models"
	contentModels "beps/internal/domain/models/content"
)

// RenameService renames hierarchy entities and cascades object keys.
type RenameService interface {
	RenameChannel(ctx context.Context, actor models.Identity, id int64, newName string) (*RenameResult, error)
	RenameFolder(ctx context.Context, actor models.Identity, id int64, newName string) (*RenameResult, error)
	RenamePage(ctx context.Context, actor models.Identity, id int64, newName string) (*RenameResult, error)
}

// RenameRequest is the body of a rename call.
type RenameRequest struct {
	NewName string `json:"new_name"`
}

// RenameResult lists the object keys rewritten by a rename.
type RenameResult struct {
	Changed bool                          `json:"changed"`
	Renamed []contentModels.RenamedObject `json:"renamed"`
}
