package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"beps/internal/domain"
	notifModels "beps/internal/domain/models/notification"
	statsModels "beps/internal/domain/models/statistics"
	"beps/internal/domain/repositories"
	notifRepo "beps/internal/domain/repositories/notification"
	notifSvc "beps/internal/domain/services/notification"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// pushService implements the PushService interface
type pushService struct {
	repo      notifRepo.PushRepository
	cache     notifRepo.PushCache
	txManager repositories.TransactionManager
	limit     int
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewPushService creates a new push service. limit is the per-user message
// cap N, ttl the lifetime of a cached list.
func NewPushService(
	repo notifRepo.PushRepository,
	cache notifRepo.PushCache,
	txManager repositories.TransactionManager,
	limit int,
	ttl time.Duration,
	logger *slog.Logger,
) notifSvc.PushService {
	return &pushService{
		repo:      repo,
		cache:     cache,
		txManager: txManager,
		limit:     limit,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
}

// Send stores a message for every recipient whose completion rate is below
// PointValue percent, appends it to their cached list and alerts their
// streams. The store is trimmed to the newest N per recipient afterwards.
func (s *pushService) Send(ctx context.Context, req *notifSvc.SendRequest) (*notifSvc.SendResult, error) {
	if err := s.validateSendRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	filter, err := statsModels.ParseFilter(req.FilterType, req.FilterValue)
	if err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	candidates, err := s.repo.ListRecipients(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, &domain.NotFoundError{Message: "no users match the filter"}
	}
	pages, err := s.repo.CountPages(ctx)
	if err != nil {
		return nil, err
	}
	if pages == 0 {
		return nil, &domain.ValidationError{Message: "no pages are registered"}
	}

	createdAt := s.now().UTC()
	var messages []*notifModels.PushMessage
	for _, c := range candidates {
		rate := float64(c.CompletedPages) / float64(pages) * 100
		if rate >= req.PointValue {
			continue
		}
		messages = append(messages, &notifModels.PushMessage{
			UserID:    c.UserID,
			Title:     req.Title,
			Message:   req.Message,
			CreatedAt: createdAt,
		})
	}
	if len(messages) == 0 {
		return nil, &domain.NotFoundError{
			Message: fmt.Sprintf("no users below %.0f%% completion", req.PointValue),
		}
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.repo.InsertMessages(txCtx, messages)
	})
	if err != nil {
		return nil, err
	}

	userIDs := make([]string, 0, len(messages))
	for _, m := range messages {
		userIDs = append(userIDs, m.UserID)
		s.fanOut(ctx, m)
	}

	trimmed, err := s.repo.TrimPerUser(ctx, userIDs, s.limit)
	if err != nil {
		return nil, err
	}

	s.logger.Info("push sent",
		"filter_type", filter.Type,
		"recipients", len(messages),
		"trimmed", trimmed,
	)
	return &notifSvc.SendResult{Recipients: len(messages), Trimmed: trimmed}, nil
}

// fanOut appends m to the recipient's list and publishes the new length.
// Cache failures are logged; the stored row is picked up by the next load.
func (s *pushService) fanOut(ctx context.Context, m *notifModels.PushMessage) {
	payload, err := json.Marshal(m)
	if err != nil {
		s.logger.Error("encode push message", "user_id", m.UserID, "error", err)
		return
	}
	count, err := s.cache.Append(ctx, m.UserID, payload, s.limit, s.ttl)
	if err != nil {
		s.logger.Warn("push cache append failed", "user_id", m.UserID, "message_id", m.ID, "error", err)
		return
	}
	alert, _ := json.Marshal(notifModels.Alert{Count: count})
	if err := s.cache.Publish(ctx, m.UserID, alert); err != nil {
		s.logger.Warn("push alert publish failed", "user_id", m.UserID, "error", err)
	}
}

// Load returns the user's messages oldest first, hydrating the cache from the
// store when it is cold.
func (s *pushService) Load(ctx context.Context, userID string) ([]notifModels.PushMessage, error) {
	ok, err := s.cache.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if ok {
		if err := s.cache.Touch(ctx, userID, s.ttl); err != nil {
			return nil, err
		}
		return s.cached(ctx, userID)
	}

	latest, err := s.repo.Latest(ctx, userID, s.limit)
	if err != nil {
		return nil, err
	}
	messages := make([]notifModels.PushMessage, len(latest))
	for i, m := range latest {
		messages[len(latest)-1-i] = m
	}
	if len(messages) > 0 {
		if err := s.store(ctx, userID, messages); err != nil {
			return nil, err
		}
	}
	return messages, nil
}

// Read marks every unread cached message as read in the store and the cache.
func (s *pushService) Read(ctx context.Context, userID string) ([]notifModels.PushMessage, error) {
	ok, err := s.cache.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %w", domain.ErrNotFound, notifSvc.ErrNotLoaded)
	}

	messages, err := s.cached(ctx, userID)
	if err != nil {
		return nil, err
	}
	var unread []int64
	for i := range messages {
		if !messages[i].IsRead {
			unread = append(unread, messages[i].ID)
			messages[i].IsRead = true
		}
	}
	if len(unread) > 0 {
		if err := s.repo.MarkRead(ctx, userID, unread); err != nil {
			return nil, err
		}
	}
	if err := s.store(ctx, userID, messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Count returns the cached list length
func (s *pushService) Count(ctx context.Context, userID string) (int64, error) {
	ok, err := s.cache.Exists(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %w", domain.ErrNotFound, notifSvc.ErrNotLoaded)
	}
	return s.cache.Len(ctx, userID)
}

// Subscribe opens the user's alert stream
func (s *pushService) Subscribe(ctx context.Context, userID string) (notifRepo.Subscription, error) {
	return s.cache.Subscribe(ctx, userID)
}

func (s *pushService) cached(ctx context.Context, userID string) ([]notifModels.PushMessage, error) {
	raw, err := s.cache.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	messages := make([]notifModels.PushMessage, 0, len(raw))
	for _, b := range raw {
		var m notifModels.PushMessage
		if err := json.Unmarshal(b, &m); err != nil {
			s.logger.Warn("dropping undecodable push cache entry", "user_id", userID, "error", err)
			continue
		}
		messages = append(messages, m)
	}
	return messages, nil
}

func (s *pushService) store(ctx context.Context, userID string, messages []notifModels.PushMessage) error {
	payloads := make([][]byte, 0, len(messages))
	for _, m := range messages {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode push message: %w", err)
		}
		payloads = append(payloads, b)
	}
	return s.cache.Replace(ctx, userID, payloads, s.limit, s.ttl)
}

func (s *pushService) validateSendRequest(req *notifSvc.SendRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.FilterType,
			validation.Required,
			validation.In(
				string(statsModels.FilterAll), string(statsModels.FilterCompany),
				string(statsModels.FilterDepartment), string(statsModels.FilterUser),
			),
		),
		validation.Field(&req.Message, validation.Required),
		validation.Field(&req.PointValue, validation.Min(0.0), validation.Max(100.0)),
	)
}
