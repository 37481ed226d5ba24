package handler

import (
	"context"
	"io"
	"log/slog"

	"beps/internal/domain"
	"beps/internal/domain/models"
	contentModels "beps/internal/domain/models/content"
	learningModels "beps/internal/domain/models/learning"
	notifModels "beps/internal/domain/models/notification"
	statsModels "beps/internal/domain/models/statistics"
	notifRepo "beps/internal/domain/repositories/notification"
	contentSvc "beps/internal/domain/services/content"
	learningSvc "beps/internal/domain/services/learning"
	notifSvc "beps/internal/domain/services/notification"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAuthorizer struct{}

func (fakeAuthorizer) CanUpload(ctx context.Context, actor models.Identity, pageID int64) error {
	return nil
}

func (fakeAuthorizer) CanApprove(ctx context.Context, actor models.Identity, pageID int64) error {
	return nil
}

func (fakeAuthorizer) RequireDeveloper(actor models.Identity) error {
	if !actor.Role.IsDeveloper() {
		return &domain.ForbiddenError{Message: "developer role required"}
	}
	return nil
}

type fakeLedger struct {
	req    *learningSvc.RecordViewRequest
	result *learningSvc.RecordViewResult
}

func (f *fakeLedger) RecordView(ctx context.Context, req *learningSvc.RecordViewRequest) (*learningSvc.RecordViewResult, error) {
	f.req = req
	return f.result, nil
}

func (f *fakeLedger) PointSummary(ctx context.Context, userID string) (*learningModels.PointSummary, error) {
	return &learningModels.PointSummary{UserID: userID, TotalPoints: 7}, nil
}

type fakeEngine struct {
	query statsModels.Query
	err   error
}

func (f *fakeEngine) Query(ctx context.Context, q statsModels.Query) (*statsModels.Result, error) {
	f.query = q
	if f.err != nil {
		return nil, f.err
	}
	return &statsModels.Result{Metric: q.Metric, HasData: true}, nil
}

type fakeSubscription struct {
	ch     chan string
	closed bool
}

func (s *fakeSubscription) Messages() <-chan string { return s.ch }

func (s *fakeSubscription) Close() error {
	s.closed = true
	return nil
}

type fakePush struct {
	countErr error
	sub      *fakeSubscription
}

func (f *fakePush) Send(ctx context.Context, req *notifSvc.SendRequest) (*notifSvc.SendResult, error) {
	return &notifSvc.SendResult{Recipients: 2}, nil
}

func (f *fakePush) Load(ctx context.Context, userID string) ([]notifModels.PushMessage, error) {
	return nil, nil
}

func (f *fakePush) Read(ctx context.Context, userID string) ([]notifModels.PushMessage, error) {
	return nil, nil
}

func (f *fakePush) Count(ctx context.Context, userID string) (int64, error) {
	return 3, f.countErr
}

func (f *fakePush) Subscribe(ctx context.Context, userID string) (notifRepo.Subscription, error) {
	return f.sub, nil
}

// fakeWorkflow records the last upload; unused operations are not reached.
type fakeWorkflow struct {
	contentSvc.WorkflowService
	upload *contentSvc.UploadRequest
	detail *contentSvc.DetailUploadRequest
	body   []byte
}

func (f *fakeWorkflow) UploadPending(ctx context.Context, req *contentSvc.UploadRequest) (*contentModels.PendingContent, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	f.upload = req
	f.body = body
	return &contentModels.PendingContent{
		ID:          1,
		ContentType: req.ContentType,
		PageID:      req.TargetID,
		Filename:    req.Filename,
		FileSize:    req.Size,
	}, nil
}

func (f *fakeWorkflow) Approve(ctx context.Context, actor models.Identity, contentType contentModels.ContentType, targetID int64) (*contentSvc.ApproveResult, error) {
	return nil, &domain.NotFoundError{Message: "no pending content"}
}

func (f *fakeWorkflow) UploadDetail(ctx context.Context, req *contentSvc.DetailUploadRequest) (*contentModels.PageDetail, error) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	f.detail = req
	f.body = body
	key := "Ch/Cat/001_Intro/001_Intro_1.png"
	return &contentModels.PageDetail{ID: req.DetailID, PageID: 10, Name: "001_Intro_1.png", ObjectID: &key}, nil
}

func (f *fakeWorkflow) DetailDownload(ctx context.Context, detailID int64) (*contentSvc.DetailDownload, error) {
	if detailID != 20 {
		return nil, &domain.NotFoundError{Message: "page detail has no content"}
	}
	return &contentSvc.DetailDownload{DownloadURL: "https://bucket.example/detail", Filename: "001_Intro_1.png", DetailID: detailID}, nil
}
