package content

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"beps/internal/capabilities"
	"beps/internal/domain"
	"beps/internal/domain/models"
	contentModels "beps/internal/domain/models/content"
	contentSvc "beps/internal/domain/services/content"
)

var approvalTime = time.Date(2025, 1, 15, 12, 34, 0, 0, time.UTC)

type workflowFixture struct {
	hierarchy   *fakeHierarchy
	additionals *fakeAdditionals
	workflow    *fakeWorkflow
	tx          *fakeTx
	store       *fakeStore
	cache       *countingInvalidator
	auth        *fakeAuthorizer
	svc         *workflowService
}

// newWorkflowFixture builds Ch/Cat/001_Intro.png as page 10.
func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	registry, err := capabilities.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	f := &workflowFixture{
		hierarchy:   newFakeHierarchy(),
		additionals: newFakeAdditionals(),
		workflow:    newFakeWorkflow(),
		tx:          &fakeTx{},
		store:       newFakeStore(),
		cache:       &countingInvalidator{},
		auth:        &fakeAuthorizer{},
	}
	f.hierarchy.addChannel(1, "Ch")
	f.hierarchy.addFolder(2, 1, nil, "Cat")
	f.hierarchy.addPage(10, 2, "001_Intro.png", nil)

	f.svc = NewWorkflowService(
		f.hierarchy, f.additionals, f.workflow, f.tx, f.store,
		registry, f.auth, f.cache, time.UTC, testLogger(),
	).(*workflowService)
	f.svc.now = func() time.Time { return approvalTime }
	return f
}

var manager = models.Identity{UserID: "manager", Role: models.RoleInternalUser}

func TestCreateAdditional(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateAdditional(ctx, &contentSvc.CreateAdditionalRequest{
		Actor:    manager,
		PageID:   10,
		Filename: "foo.mp4",
		MimeType: "video/mp4",
		Size:     4,
		Body:     strings.NewReader("film"),
	})
	if err != nil {
		t.Fatalf("CreateAdditional() error = %v", err)
	}

	if res.Additional.Filename != "001_01.mp4" || res.Additional.ContentNumber != 1 || res.Additional.PageID != 10 {
		t.Errorf("additional = %+v", res.Additional)
	}
	wantKey := "Ch/Cat/001_Intro/pending/001_01.mp4"
	if res.Pending.ObjectKey != wantKey {
		t.Errorf("pending key = %q, want %q", res.Pending.ObjectKey, wantKey)
	}
	if string(f.store.objects[wantKey]) != "film" {
		t.Errorf("pending object not stored at %q", wantKey)
	}
	if _, err := f.workflow.GetPending(ctx, contentModels.ContentTypeAdditional, res.Additional.ID); err != nil {
		t.Errorf("pending row missing: %v", err)
	}

	// Numbering continues from the highest live sibling.
	res, err = f.svc.CreateAdditional(ctx, &contentSvc.CreateAdditionalRequest{
		Actor:    manager,
		PageID:   10,
		Filename: "Notes.PDF",
		MimeType: "application/pdf",
		Size:     3,
		Body:     strings.NewReader("pdf"),
	})
	if err != nil {
		t.Fatalf("CreateAdditional() second error = %v", err)
	}
	if res.Additional.Filename != "001_02.pdf" || res.Additional.ContentNumber != 2 {
		t.Errorf("second additional = %+v", res.Additional)
	}
}

func TestCreateAdditionalRejects(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int64
		deny     bool
		wantErr  error
	}{
		{name: "bad extension", filename: "virus.exe", size: 1, wantErr: domain.ErrValidation},
		{name: "too large", filename: "huge.mp4", size: 3 << 30, wantErr: domain.ErrTooLarge},
		{name: "no permission", filename: "ok.mp4", size: 1, deny: true, wantErr: domain.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWorkflowFixture(t)
			if tt.deny {
				f.auth.denyUpload = map[string]bool{manager.UserID: true}
			}
			_, err := f.svc.CreateAdditional(context.Background(), &contentSvc.CreateAdditionalRequest{
				Actor:    manager,
				PageID:   10,
				Filename: tt.filename,
				Size:     tt.size,
				Body:     strings.NewReader("x"),
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if len(f.store.objects) != 0 {
				t.Errorf("store written on rejected upload: %v", f.store.ops)
			}
		})
	}
}

func TestUploadPendingReplacesPrior(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	// A stale pending row under an older key.
	stale := "Ch/Old/pending/001_Intro.png"
	f.store.objects[stale] = []byte("old")
	f.workflow.pending[1] = &contentModels.PendingContent{
		ID: 1, ContentType: contentModels.ContentTypePage, PageID: 10, ObjectKey: stale,
	}

	pending, err := f.svc.UploadPending(ctx, &contentSvc.UploadRequest{
		Actor:       manager,
		ContentType: contentModels.ContentTypePage,
		TargetID:    10,
		Filename:    "intro.png",
		MimeType:    "image/png",
		Size:        3,
		Body:        strings.NewReader("new"),
	})
	if err != nil {
		t.Fatalf("UploadPending() error = %v", err)
	}

	if pending.ObjectKey != "Ch/Cat/pending/001_Intro.png" {
		t.Errorf("pending key = %q", pending.ObjectKey)
	}
	if pending.Filename != "001_Intro.png" {
		t.Errorf("pending filename = %q", pending.Filename)
	}
	if _, ok := f.store.objects[stale]; ok {
		t.Error("replaced pending object was not deleted")
	}
	if len(f.workflow.pending) != 1 {
		t.Errorf("pending rows = %d, want 1", len(f.workflow.pending))
	}
}

func TestUploadPendingCommitFailureDiscardsObject(t *testing.T) {
	f := newWorkflowFixture(t)
	f.tx.commitErr = errors.New("commit failed")

	_, err := f.svc.UploadPending(context.Background(), &contentSvc.UploadRequest{
		Actor:       manager,
		ContentType: contentModels.ContentTypePage,
		TargetID:    10,
		Filename:    "intro.png",
		MimeType:    "image/png",
		Size:        3,
		Body:        strings.NewReader("new"),
	})
	if err == nil {
		t.Fatal("UploadPending() expected error")
	}
	if keys := f.store.keys(""); len(keys) != 0 {
		t.Errorf("objects left after failed commit: %v", keys)
	}
}

func TestUploadPendingGuards(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		size     int64
		targetID int64
		wantErr  error
	}{
		{name: "wrong mime", mimeType: "image/jpeg", size: 1, targetID: 10, wantErr: domain.ErrValidation},
		{name: "too large", mimeType: "image/png", size: 101 << 20, targetID: 10, wantErr: domain.ErrTooLarge},
		{name: "missing page", mimeType: "image/png", size: 1, targetID: 99, wantErr: domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWorkflowFixture(t)
			_, err := f.svc.UploadPending(context.Background(), &contentSvc.UploadRequest{
				Actor:       manager,
				ContentType: contentModels.ContentTypePage,
				TargetID:    tt.targetID,
				Filename:    "intro.png",
				MimeType:    tt.mimeType,
				Size:        tt.size,
				Body:        strings.NewReader("x"),
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestApproveWithArchive(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	canonical := "Ch/Cat/001_Intro.png"
	f.hierarchy.pages[10].ObjectID = ptr(canonical)
	f.store.objects[canonical] = make([]byte, 1000)

	pendingBody := strings.Repeat("p", 2000)
	_, err := f.svc.UploadPending(ctx, &contentSvc.UploadRequest{
		Actor:       manager,
		ContentType: contentModels.ContentTypePage,
		TargetID:    10,
		Filename:    "new.png",
		MimeType:    "image/png",
		Size:        2000,
		Body:        strings.NewReader(pendingBody),
	})
	if err != nil {
		t.Fatalf("UploadPending() error = %v", err)
	}

	res, err := f.svc.Approve(ctx, manager, contentModels.ContentTypePage, 10)
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}

	wantArchive := "Ch/Cat/archived/001_Intro_202501151234.png"
	if res.Archived == nil || res.Archived.ObjectKey != wantArchive {
		t.Fatalf("archived = %+v, want key %q", res.Archived, wantArchive)
	}
	if res.Archived.FileSize != 1000 {
		t.Errorf("archived size = %d, want 1000", res.Archived.FileSize)
	}
	if !res.Archived.ArchivedAt.Equal(approvalTime) {
		t.Errorf("archived_at = %v", res.Archived.ArchivedAt)
	}
	if got := len(f.store.objects[wantArchive]); got != 1000 {
		t.Errorf("archived object size = %d", got)
	}
	if got := string(f.store.objects[canonical]); got != pendingBody {
		t.Errorf("canonical object does not match pending content (len %d)", len(got))
	}
	if len(f.workflow.pending) != 0 {
		t.Error("pending row not deleted")
	}
	if keys := f.store.keys("Ch/Cat/pending/"); len(keys) != 0 {
		t.Errorf("pending objects left: %v", keys)
	}
	if f.cache.calls == 0 {
		t.Error("hierarchy cache not invalidated")
	}

	// Archive copy happens before canonical is overwritten.
	archiveAt, overwriteAt := -1, -1
	for i, op := range f.store.ops {
		if op == "copy "+canonical+" -> "+wantArchive {
			archiveAt = i
		}
		if op == "copy Ch/Cat/pending/001_Intro.png -> "+canonical {
			overwriteAt = i
		}
	}
	if archiveAt < 0 || overwriteAt < 0 || archiveAt > overwriteAt {
		t.Errorf("store ops out of order: %v", f.store.ops)
	}
}

func TestApproveFirstVersion(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	_, err := f.svc.UploadPending(ctx, &contentSvc.UploadRequest{
		Actor:       manager,
		ContentType: contentModels.ContentTypePage,
		TargetID:    10,
		Filename:    "a.png",
		MimeType:    "image/png",
		Size:        1,
		Body:        strings.NewReader("a"),
	})
	if err != nil {
		t.Fatalf("UploadPending() error = %v", err)
	}

	res, err := f.svc.Approve(ctx, manager, contentModels.ContentTypePage, 10)
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if res.Archived != nil {
		t.Errorf("unexpected archive %+v", res.Archived)
	}
	page := f.hierarchy.pages[10]
	if page.ObjectID == nil || *page.ObjectID != "Ch/Cat/001_Intro.png" {
		t.Errorf("object_id = %v", page.ObjectID)
	}
}

func TestApproveErrors(t *testing.T) {
	t.Run("no pending", func(t *testing.T) {
		f := newWorkflowFixture(t)
		_, err := f.svc.Approve(context.Background(), manager, contentModels.ContentTypePage, 10)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("error = %v, want not found", err)
		}
	})

	t.Run("forbidden", func(t *testing.T) {
		f := newWorkflowFixture(t)
		f.auth.denyApprove = map[string]bool{manager.UserID: true}
		_, err := f.svc.Approve(context.Background(), manager, contentModels.ContentTypePage, 10)
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("error = %v, want forbidden", err)
		}
	})
}

func TestApproveAdditionalRecordsSize(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	res, err := f.svc.CreateAdditional(ctx, &contentSvc.CreateAdditionalRequest{
		Actor:    manager,
		PageID:   10,
		Filename: "clip.mp4",
		Size:     5,
		Body:     strings.NewReader("video"),
	})
	if err != nil {
		t.Fatalf("CreateAdditional() error = %v", err)
	}

	approved, err := f.svc.Approve(ctx, manager, contentModels.ContentTypeAdditional, res.Additional.ID)
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if approved.CanonicalKey != "Ch/Cat/001_Intro/001_01.mp4" {
		t.Errorf("canonical key = %q", approved.CanonicalKey)
	}
	if got := f.additionals.rows[res.Additional.ID].FileSize; got != 5 {
		t.Errorf("file size = %d, want 5", got)
	}

	status, err := f.svc.PendingStatus(ctx, contentModels.ContentTypeAdditional, res.Additional.ID)
	if err != nil {
		t.Fatalf("PendingStatus() error = %v", err)
	}
	if status.HasPending || !status.Published {
		t.Errorf("status = %+v", status)
	}
}

func TestDeleteContent(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()

	canonical := "Ch/Cat/001_Intro.png"
	f.hierarchy.pages[10].ObjectID = ptr(canonical)
	f.store.objects[canonical] = []byte("img")

	if err := f.svc.DeleteContent(ctx, manager, contentModels.ContentTypePage, 10); err != nil {
		t.Fatalf("DeleteContent() error = %v", err)
	}
	if f.hierarchy.pages[10].ObjectID != nil {
		t.Error("object_id not cleared")
	}
	if _, ok := f.store.objects[canonical]; ok {
		t.Error("canonical object not deleted")
	}

	if err := f.svc.DeleteContent(ctx, manager, contentModels.ContentTypePage, 10); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete error = %v, want not found", err)
	}
}
