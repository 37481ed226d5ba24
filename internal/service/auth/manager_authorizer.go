package auth

import (
	"context"
	"fmt"

	"beps/internal/domain"
	"beps/internal/domain/models"
	contentRepo "beps/internal/domain/repositories/content"
	"beps/internal/domain/services"
)

// ManagerAuthorizer implements services.ContentAuthorizer using content
// manager assignments.
//
// Upload is granted to developers, the page's file manager, a folder manager
// anywhere on the page's folder chain, or the channel manager. Approval and
// deletion are narrower: developers or the manager of the page's own folder.
type ManagerAuthorizer struct {
	hierarchy contentRepo.HierarchyRepository
	managers  contentRepo.ManagerRepository
}

// NewManagerAuthorizer creates a new manager-based authorizer
func NewManagerAuthorizer(
	hierarchy contentRepo.HierarchyRepository,
	managers contentRepo.ManagerRepository,
) services.ContentAuthorizer {
	return &ManagerAuthorizer{
		hierarchy: hierarchy,
		managers:  managers,
	}
}

// RequireDeveloper rejects every role outside SuperAdmin and DevAdmin
func (a *ManagerAuthorizer) RequireDeveloper(actor models.Identity) error {
	if actor.Role.IsDeveloper() {
		return nil
	}
	return &domain.ForbiddenError{Message: "developer role required"}
}

// CanUpload checks the file manager, then the folder chain, then the channel
func (a *ManagerAuthorizer) CanUpload(ctx context.Context, actor models.Identity, pageID int64) error {
	if actor.Role.IsDeveloper() {
		return nil
	}

	page, err := a.hierarchy.GetPage(ctx, pageID)
	if err != nil {
		return err
	}

	ok, err := a.managers.IsFileManager(ctx, actor.UserID, page.ID)
	if err != nil {
		return fmt.Errorf("check file manager: %w", err)
	}
	if ok {
		return nil
	}

	chain, err := a.hierarchy.FolderChain(ctx, page.FolderID)
	if err != nil {
		return fmt.Errorf("resolve folder chain: %w", err)
	}
	folderIDs := make([]int64, len(chain))
	for i, f := range chain {
		folderIDs[i] = f.ID
	}
	if ok, err = a.managers.IsFolderManager(ctx, actor.UserID, folderIDs); err != nil {
		return fmt.Errorf("check folder manager: %w", err)
	}
	if ok {
		return nil
	}

	if ok, err = a.managers.IsChannelManager(ctx, actor.UserID, chain[0].ChannelID); err != nil {
		return fmt.Errorf("check channel manager: %w", err)
	}
	if ok {
		return nil
	}

	return &domain.ForbiddenError{Message: fmt.Sprintf("no upload permission for page %d", pageID)}
}

// CanApprove checks the manager of the page's own folder only
func (a *ManagerAuthorizer) CanApprove(ctx context.Context, actor models.Identity, pageID int64) error {
	if actor.Role.IsDeveloper() {
		return nil
	}

	page, err := a.hierarchy.GetPage(ctx, pageID)
	if err != nil {
		return err
	}

	ok, err := a.managers.IsFolderManager(ctx, actor.UserID, []int64{page.FolderID})
	if err != nil {
		return fmt.Errorf("check folder manager: %w", err)
	}
	if !ok {
		return &domain.ForbiddenError{Message: fmt.Sprintf("no approval permission for page %d", pageID)}
	}
	return nil
}
