package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"beps/internal/domain"
	"beps/internal/domain/models"
	contentModels "beps/internal/domain/models/content"
	"beps/internal/domain/repositories"
	contentRepo "beps/internal/domain/repositories/content"
	"beps/internal/domain/services"
	contentSvc "beps/internal/domain/services/content"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// UnassignedPosition is stored when a user row carries no position.
const UnassignedPosition = "미지정"

// positionPrefixes are rank titles kept whole when they lead a position.
var positionPrefixes = []string{"연구원", "선임", "책임", "수석", "대리", "과장", "차장", "부장"}

// NormalizePosition reduces a free-text position to its rank: a known title
// prefix, otherwise the first word.
func NormalizePosition(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return UnassignedPosition
	}
	for _, p := range positionPrefixes {
		if strings.HasPrefix(s, p) {
			return p
		}
	}
	if i := strings.IndexAny(s, " (/"); i >= 0 {
		return s[:i]
	}
	return s
}

// managerService implements the ManagerService interface
type managerService struct {
	assignments contentRepo.AssignmentRepository
	hierarchy   contentRepo.HierarchyRepository
	txManager   repositories.TransactionManager
	authorizer  services.ContentAuthorizer
	cache       invalidator
	logger      *slog.Logger
}

// NewManagerService creates a new content manager service
func NewManagerService(
	assignments contentRepo.AssignmentRepository,
	hierarchy contentRepo.HierarchyRepository,
	txManager repositories.TransactionManager,
	authorizer services.ContentAuthorizer,
	cache invalidator,
	logger *slog.Logger,
) contentSvc.ManagerService {
	return &managerService{
		assignments: assignments,
		hierarchy:   hierarchy,
		txManager:   txManager,
		authorizer:  authorizer,
		cache:       cache,
		logger:      logger,
	}
}

// List returns every assignment with its assignee
func (s *managerService) List(ctx context.Context) ([]contentModels.ManagerEntry, error) {
	return s.assignments.List(ctx)
}

// Create assigns a user to a target that has no manager yet
func (s *managerService) Create(ctx context.Context, actor models.Identity, req *contentSvc.ManagerRequest) (*contentModels.ContentManager, error) {
	if err := s.authorizer.RequireDeveloper(actor); err != nil {
		return nil, err
	}
	err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Type, validation.Required),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	m, err := targetOf(req)
	if err != nil {
		return nil, err
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		assignee, err := s.assigneeFor(txCtx, req.UserID)
		if err != nil {
			return err
		}
		if err := s.checkTarget(txCtx, m); err != nil {
			return err
		}
		m.AssigneeID = assignee.ID
		return s.assignments.Create(txCtx, m)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)

	s.logger.Info("content manager assigned",
		"manager_id", m.ID,
		"type", m.Type,
		"target_id", *m.Target(),
		"assignee_id", m.AssigneeID,
		"user_id", actor.UserID,
	)
	return m, nil
}

// Update moves an assignment to another user or target
func (s *managerService) Update(ctx context.Context, actor models.Identity, id int64, req *contentSvc.ManagerRequest) (*contentModels.ContentManager, error) {
	if err := s.authorizer.RequireDeveloper(actor); err != nil {
		return nil, err
	}
	var target *contentModels.ContentManager
	if req.Type != "" {
		t, err := targetOf(req)
		if err != nil {
			return nil, err
		}
		target = t
	}

	var m *contentModels.ContentManager
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := s.assignments.Get(txCtx, id)
		if err != nil {
			return err
		}
		m = current
		previous := m.AssigneeID

		if target != nil {
			m.Type, m.ChannelID, m.FolderID, m.FileID = target.Type, target.ChannelID, target.FolderID, target.FileID
		}
		if req.UserID != "" {
			assignee, err := s.assigneeFor(txCtx, req.UserID)
			if err != nil {
				return err
			}
			m.AssigneeID = assignee.ID
		}
		if err := s.checkTarget(txCtx, m); err != nil {
			return err
		}
		if err := s.assignments.Update(txCtx, m); err != nil {
			return err
		}
		if previous != m.AssigneeID {
			return s.assignments.DeleteAssigneeIfUnused(txCtx, previous)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx)

	s.logger.Info("content manager updated",
		"manager_id", m.ID,
		"type", m.Type,
		"assignee_id", m.AssigneeID,
		"user_id", actor.UserID,
	)
	return m, nil
}

// Delete removes an assignment and, when it was the last one, its assignee
func (s *managerService) Delete(ctx context.Context, actor models.Identity, id int64) error {
	if err := s.authorizer.RequireDeveloper(actor); err != nil {
		return err
	}
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		m, err := s.assignments.Get(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.assignments.Delete(txCtx, id); err != nil {
			return err
		}
		return s.assignments.DeleteAssigneeIfUnused(txCtx, m.AssigneeID)
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx)

	s.logger.Info("content manager removed", "manager_id", id, "user_id", actor.UserID)
	return nil
}

// assigneeFor returns the assignee of a live user, creating it on first use.
func (s *managerService) assigneeFor(ctx context.Context, userID string) (*contentModels.Assignee, error) {
	user, err := s.assignments.FindUser(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, err
	}
	assignee, err := s.assignments.FindAssignee(ctx, user.ID)
	if err == nil {
		return assignee, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	assignee = &contentModels.Assignee{
		UserID:   user.ID,
		Name:     user.Name,
		Position: NormalizePosition(user.Position),
	}
	if err := s.assignments.CreateAssignee(ctx, assignee); err != nil {
		return nil, err
	}
	return assignee, nil
}

// checkTarget requires a live target that no other assignment holds.
func (s *managerService) checkTarget(ctx context.Context, m *contentModels.ContentManager) error {
	id := *m.Target()
	var err error
	switch m.Type {
	case contentModels.ManagerTypeChannel:
		_, err = s.hierarchy.GetChannel(ctx, id)
	case contentModels.ManagerTypeFolder:
		_, err = s.hierarchy.GetFolder(ctx, id)
	case contentModels.ManagerTypeFile:
		_, err = s.hierarchy.GetPage(ctx, id)
	}
	if err != nil {
		return err
	}

	taken, err := s.assignments.TargetAssigned(ctx, m)
	if err != nil {
		return err
	}
	if taken {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("this %s already has a manager assigned", m.Type),
			ResourceType: string(m.Type),
			ResourceID:   strconv.FormatInt(id, 10),
		}
	}
	return nil
}

// targetOf builds an assignment holding only the id field matching the type.
func targetOf(req *contentSvc.ManagerRequest) (*contentModels.ContentManager, error) {
	m := &contentModels.ContentManager{Type: req.Type}
	var field string
	switch req.Type {
	case contentModels.ManagerTypeChannel:
		m.ChannelID, field = req.ChannelID, "channel_id"
	case contentModels.ManagerTypeFolder:
		m.FolderID, field = req.FolderID, "folder_id"
	case contentModels.ManagerTypeFile:
		m.FileID, field = req.FileID, "file_id"
	default:
		return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown manager type %q", req.Type)}
	}
	if m.Target() == nil {
		return nil, &domain.ValidationError{Message: "required field missing: " + field}
	}
	return m, nil
}
