package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"beps/internal/domain"
	contentModels "beps/internal/domain/models/content"
	contentSvc "beps/internal/domain/services/content"
)

const detailKey = "Ch/Cat/001_Intro/001_Intro_1.png"

func detailUpload(body string) *contentSvc.DetailUploadRequest {
	return &contentSvc.DetailUploadRequest{
		Actor:    manager,
		DetailID: 20,
		Filename: "scan.png",
		MimeType: "image/png",
		Size:     int64(len(body)),
		Body:     strings.NewReader(body),
	}
}

func TestUploadDetail(t *testing.T) {
	f := newWorkflowFixture(t)
	f.hierarchy.details[20] = &contentModels.PageDetail{ID: 20, PageID: 10, Name: "001_Intro_1.png"}
	ctx := context.Background()

	detail, err := f.svc.UploadDetail(ctx, detailUpload("png"))
	if err != nil {
		t.Fatalf("UploadDetail() error = %v", err)
	}
	if detail.ObjectID == nil || *detail.ObjectID != detailKey {
		t.Errorf("object id = %v, want %q", detail.ObjectID, detailKey)
	}
	if string(f.store.objects[detailKey]) != "png" {
		t.Errorf("object not stored at %q", detailKey)
	}
	if got := f.hierarchy.details[20].ObjectID; got == nil || *got != detailKey {
		t.Errorf("stored object id = %v", got)
	}
	if f.cache.calls != 1 {
		t.Errorf("invalidations = %d, want 1", f.cache.calls)
	}

	t.Run("replaces an object stored elsewhere", func(t *testing.T) {
		f.store.objects["legacy/detail.png"] = []byte("old")
		f.hierarchy.details[20].ObjectID = ptr("legacy/detail.png")

		if _, err := f.svc.UploadDetail(ctx, detailUpload("new")); err != nil {
			t.Fatalf("UploadDetail() error = %v", err)
		}
		if _, ok := f.store.objects["legacy/detail.png"]; ok {
			t.Error("replaced object was not deleted")
		}
		if string(f.store.objects[detailKey]) != "new" {
			t.Errorf("object = %q", f.store.objects[detailKey])
		}
	})
}

func TestUploadDetailRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *workflowFixture, req *contentSvc.DetailUploadRequest)
		wantErr error
	}{
		{
			name:    "missing detail",
			mutate:  func(_ *workflowFixture, req *contentSvc.DetailUploadRequest) { req.DetailID = 99 },
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "not an image",
			mutate:  func(_ *workflowFixture, req *contentSvc.DetailUploadRequest) { req.MimeType = "application/pdf" },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "too large",
			mutate:  func(_ *workflowFixture, req *contentSvc.DetailUploadRequest) { req.Size = 100<<20 + 1 },
			wantErr: domain.ErrTooLarge,
		},
		{
			name: "uploader without approval",
			mutate: func(f *workflowFixture, _ *contentSvc.DetailUploadRequest) {
				f.auth.denyApprove = map[string]bool{manager.UserID: true}
			},
			wantErr: domain.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWorkflowFixture(t)
			f.hierarchy.details[20] = &contentModels.PageDetail{ID: 20, PageID: 10, Name: "001_Intro_1.png"}
			req := detailUpload("png")
			tt.mutate(f, req)

			_, err := f.svc.UploadDetail(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("UploadDetail() error = %v, want %v", err, tt.wantErr)
			}
			if len(f.store.objects) != 0 {
				t.Errorf("objects written: %v", f.store.keys(""))
			}
		})
	}
}

func TestUploadDetailDiscardsObjectWhenRecordFails(t *testing.T) {
	f := newWorkflowFixture(t)
	f.hierarchy.details[20] = &contentModels.PageDetail{ID: 20, PageID: 10, Name: "001_Intro_1.png"}
	f.hierarchy.detailErr = errors.New("connection reset")

	if _, err := f.svc.UploadDetail(context.Background(), detailUpload("png")); err == nil {
		t.Fatal("UploadDetail() error = nil")
	}
	if _, ok := f.store.objects[detailKey]; ok {
		t.Error("orphaned object left in the store")
	}
	if f.cache.calls != 0 {
		t.Errorf("invalidations = %d, want 0", f.cache.calls)
	}
}

func TestDetailDownload(t *testing.T) {
	f := newWorkflowFixture(t)
	f.hierarchy.details[20] = &contentModels.PageDetail{ID: 20, PageID: 10, Name: "001_Intro_1.png", ObjectID: ptr(detailKey)}
	f.hierarchy.details[21] = &contentModels.PageDetail{ID: 21, PageID: 10, Name: "001_Intro_2.png"}
	ctx := context.Background()

	dl, err := f.svc.DetailDownload(ctx, 20)
	if err != nil {
		t.Fatalf("DetailDownload() error = %v", err)
	}
	if dl.DetailID != 20 || dl.Filename != "001_Intro_1.png" || !strings.Contains(dl.DownloadURL, detailKey+"?method=GET") {
		t.Errorf("download = %+v", dl)
	}

	if _, err := f.svc.DetailDownload(ctx, 21); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("no content: error = %v, want ErrNotFound", err)
	}
	if _, err := f.svc.DetailDownload(ctx, 99); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("missing detail: error = %v, want ErrNotFound", err)
	}
}
