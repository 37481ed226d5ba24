package learning

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"beps/internal/domain"
	"beps/internal/domain/models"
	learningModels "beps/internal/domain/models/learning"
	"beps/internal/domain/repositories"
	learningSvc "beps/internal/domain/services/learning"
)

type viewerKey struct {
	user string
	file int64
}

// fakeLedger keeps the ledger in memory with the same cap and set-once rules
// as the SQL implementation.
type fakeLedger struct {
	mu          sync.Mutex
	views       []learningModels.ViewingHistory
	points      map[viewerKey]*learningModels.PointRecord
	completions map[viewerKey]*learningModels.CompletionHistory
	locks       int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		points:      map[viewerKey]*learningModels.PointRecord{},
		completions: map[viewerKey]*learningModels.CompletionHistory{},
	}
}

func (f *fakeLedger) LockViewer(context.Context, string, int64) error {
	f.locks++
	return nil
}

func (f *fakeLedger) InsertView(_ context.Context, v *learningModels.ViewingHistory) error {
	v.ID = int64(len(f.views) + 1)
	f.views = append(f.views, *v)
	return nil
}

func (f *fakeLedger) GrantPoint(_ context.Context, userID string, fileID int64, fileType learningModels.FileType, at time.Time) (int, bool, error) {
	k := viewerKey{userID, fileID}
	rec, ok := f.points[k]
	if !ok {
		f.points[k] = &learningModels.PointRecord{UserID: userID, FileID: fileID, FileType: fileType, Point: 1, EarnedTimes: []time.Time{at}}
		return 1, true, nil
	}
	if rec.Point >= learningModels.MaxPoints {
		return rec.Point, false, nil
	}
	rec.Point++
	rec.EarnedTimes = append(rec.EarnedTimes, at)
	return rec.Point, true, nil
}

func (f *fakeLedger) AddCompletion(_ context.Context, userID string, pageID int64, d, threshold time.Duration, at time.Time) (*learningModels.CompletionHistory, error) {
	k := viewerKey{userID, pageID}
	c, ok := f.completions[k]
	if !ok {
		c = &learningModels.CompletionHistory{UserID: userID, PageID: pageID}
		f.completions[k] = c
	}
	c.TotalDuration += d
	if c.CompletedAt == nil && c.TotalDuration >= threshold {
		stamp := at
		c.CompletedAt = &stamp
	}
	cp := *c
	return &cp, nil
}

func (f *fakeLedger) ListPoints(_ context.Context, userID string) ([]learningModels.PointRecord, error) {
	out := []learningModels.PointRecord{}
	for k, r := range f.points {
		if k.user == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

// fakeTx serialises transactions the way the advisory lock would.
type fakeTx struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return fn(ctx)
}

var now = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newService(ledger *fakeLedger, tx *fakeTx) *ledgerService {
	svc := NewLedgerService(ledger, tx, 30*time.Second, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil))).(*ledgerService)
	svc.now = func() time.Time { return now }
	return svc
}

var viewer = models.Identity{UserID: "Alice", Role: models.RoleInternalUser}

func TestRecordViewTooShort(t *testing.T) {
	ledger, tx := newFakeLedger(), &fakeTx{}
	svc := newService(ledger, tx)

	res, err := svc.RecordView(context.Background(), &learningSvc.RecordViewRequest{
		Actor: viewer, FileID: 7, FileType: learningModels.FileTypePage, StartTime: now.Add(-29 * time.Second),
	})
	if err != nil {
		t.Fatalf("RecordView() error = %v", err)
	}
	if !res.TooShort {
		t.Error("expected TooShort")
	}
	if tx.calls != 0 || len(ledger.views) != 0 {
		t.Errorf("too short view wrote: tx=%d views=%d", tx.calls, len(ledger.views))
	}
}

func TestRecordViewPointCap(t *testing.T) {
	ledger, tx := newFakeLedger(), &fakeTx{}
	svc := newService(ledger, tx)
	ctx := context.Background()

	earned := []time.Time{now, now, now, now, now}
	ledger.points[viewerKey{"alice", 7}] = &learningModels.PointRecord{
		UserID: "alice", FileID: 7, FileType: learningModels.FileTypePage, Point: 5, EarnedTimes: earned,
	}

	res, err := svc.RecordView(ctx, &learningSvc.RecordViewRequest{
		Actor: viewer, FileID: 7, FileType: learningModels.FileTypePage, StartTime: now.Add(-60 * time.Second), IPAddress: "10.0.0.1",
	})
	if err != nil {
		t.Fatalf("RecordView() error = %v", err)
	}
	if res.Point.Added || res.Point.Reason != ReasonMaxPoints || res.Point.Point != 5 {
		t.Errorf("point = %+v", res.Point)
	}
	if len(ledger.views) != 1 || res.ViewID != 1 {
		t.Errorf("view not recorded: views=%d id=%d", len(ledger.views), res.ViewID)
	}
	if rec := ledger.points[viewerKey{"alice", 7}]; rec.Point != 5 || len(rec.EarnedTimes) != 5 {
		t.Errorf("record changed: %+v", rec)
	}
}

func TestRecordViewGrantsUpToCap(t *testing.T) {
	ledger, tx := newFakeLedger(), &fakeTx{}
	svc := newService(ledger, tx)
	ctx := context.Background()

	for i := 1; i <= 7; i++ {
		res, err := svc.RecordView(ctx, &learningSvc.RecordViewRequest{
			Actor: viewer, FileID: 8, FileType: learningModels.FileTypeDetail, StartTime: now.Add(-45 * time.Second),
		})
		if err != nil {
			t.Fatalf("RecordView() #%d error = %v", i, err)
		}
		wantAdded := i <= 5
		if res.Point.Added != wantAdded {
			t.Errorf("view %d: added = %v, want %v", i, res.Point.Added, wantAdded)
		}
		if res.Completion != nil {
			t.Errorf("detail view touched completion")
		}
	}

	rec := ledger.points[viewerKey{"alice", 8}]
	if rec.Point != learningModels.MaxPoints || len(rec.EarnedTimes) != rec.Point {
		t.Errorf("record = %+v", rec)
	}
	if ledger.locks != 7 {
		t.Errorf("locks = %d, want 7", ledger.locks)
	}
}

func TestRecordViewCompletionSetOnce(t *testing.T) {
	ledger, tx := newFakeLedger(), &fakeTx{}
	svc := newService(ledger, tx)
	ctx := context.Background()

	record := func() *learningModels.CompletionHistory {
		t.Helper()
		res, err := svc.RecordView(ctx, &learningSvc.RecordViewRequest{
			Actor: viewer, FileID: 9, FileType: learningModels.FileTypePage, StartTime: now.Add(-40 * time.Second),
		})
		if err != nil {
			t.Fatalf("RecordView() error = %v", err)
		}
		return res.Completion
	}

	first := record()
	if first.CompletedAt != nil || first.TotalDuration != 40*time.Second {
		t.Errorf("first completion = %+v", first)
	}

	second := record()
	if second.CompletedAt == nil || !second.CompletedAt.Equal(now) {
		t.Fatalf("second completion = %+v", second)
	}

	now = now.Add(time.Hour)
	defer func() { now = now.Add(-time.Hour) }()
	third := record()
	if third.TotalDuration != 120*time.Second {
		t.Errorf("total = %v, want 2m", third.TotalDuration)
	}
	if !third.CompletedAt.Equal(*second.CompletedAt) {
		t.Errorf("completed_at moved from %v to %v", second.CompletedAt, third.CompletedAt)
	}
}

func TestRecordViewValidation(t *testing.T) {
	svc := newService(newFakeLedger(), &fakeTx{})
	tests := []struct {
		name string
		req  learningSvc.RecordViewRequest
	}{
		{"missing file", learningSvc.RecordViewRequest{Actor: viewer, FileType: learningModels.FileTypePage, StartTime: now}},
		{"bad type", learningSvc.RecordViewRequest{Actor: viewer, FileID: 1, FileType: "video", StartTime: now}},
		{"missing start", learningSvc.RecordViewRequest{Actor: viewer, FileID: 1, FileType: learningModels.FileTypePage}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordView(context.Background(), &tt.req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("error = %v, want validation", err)
			}
		})
	}
}

func TestPointSummary(t *testing.T) {
	ledger := newFakeLedger()
	ledger.points[viewerKey{"alice", 1}] = &learningModels.PointRecord{UserID: "alice", FileID: 1, Point: 3}
	ledger.points[viewerKey{"alice", 2}] = &learningModels.PointRecord{UserID: "alice", FileID: 2, Point: 2}
	ledger.points[viewerKey{"bob", 1}] = &learningModels.PointRecord{UserID: "bob", FileID: 1, Point: 5}

	summary, err := newService(ledger, &fakeTx{}).PointSummary(context.Background(), "ALICE")
	if err != nil {
		t.Fatalf("PointSummary() error = %v", err)
	}
	if summary.TotalPoints != 5 || len(summary.Files) != 2 {
		t.Errorf("summary = %+v", summary)
	}
}
