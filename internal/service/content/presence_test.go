package content

import (
	"context"
	"errors"
	"sync"
	"testing"

	"beps/internal/domain"
	contentModels "beps/internal/domain/models/content"
)

func newPresenceFixture() (*fakeHierarchy, *fakeStore, *fakeCache, *presenceProber) {
	h := newFakeHierarchy()
	h.addChannel(1, "Ch")
	h.addFolder(2, 1, nil, "Cat")
	h.addPage(10, 2, "001_Intro.png", ptr("Ch/Cat/001_Intro.png"))
	h.addPage(11, 2, "Draft", nil)

	store := newFakeStore()
	cache := newFakeCache()
	p := NewPresenceProber(h, store, cache, 0, testLogger()).(*presenceProber)
	return h, store, cache, p
}

func TestProbe(t *testing.T) {
	_, store, cache, p := newPresenceFixture()
	ctx := context.Background()
	store.objects["Ch/Cat/001_Intro.png"] = []byte("img")

	got, err := p.Probe(ctx, 10, false)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	want := contentModels.ContentPresence{Present: true, Key: "Ch/Cat/001_Intro.png", Source: contentModels.PresenceSourceStore}
	if *got != want {
		t.Errorf("Probe() = %+v, want %+v", *got, want)
	}

	// Second probe is served from the cache.
	if _, err := p.Probe(ctx, 10, false); err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if store.heads != 1 {
		t.Errorf("heads = %d, want 1", store.heads)
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}

	got, err = p.Probe(ctx, 11, false)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if got.Present || got.Key != "Ch/Cat/Draft" {
		t.Errorf("Probe(missing) = %+v", got)
	}
}

func TestProbeStorageUnavailableFallsBack(t *testing.T) {
	h, store, cache, p := newPresenceFixture()
	ctx := context.Background()
	store.fail["head"] = domain.ErrStorageUnavailable
	h.addPage(12, 2, "Overview", nil)
	h.details[30] = &contentModels.PageDetail{ID: 30, PageID: 12, Name: "d"}

	tests := []struct {
		pageID  int64
		present bool
	}{
		{10, true},  // object id recorded
		{11, false}, // no extension, no digits, no details
		{12, true},  // has details
	}
	for _, tt := range tests {
		got, err := p.Probe(ctx, tt.pageID, false)
		if err != nil {
			t.Fatalf("Probe(%d) error = %v", tt.pageID, err)
		}
		if got.Source != contentModels.PresenceSourceHeuristic || got.Present != tt.present {
			t.Errorf("Probe(%d) = %+v, want heuristic present=%v", tt.pageID, got, tt.present)
		}
	}
	if cache.sets != 0 {
		t.Errorf("heuristic answers cached %d times", cache.sets)
	}
}

func TestProbeConcurrent(t *testing.T) {
	_, store, _, p := newPresenceFixture()
	store.objects["Ch/Cat/001_Intro.png"] = []byte("img")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Probe(context.Background(), 10, false); err != nil {
				t.Errorf("Probe() error = %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestPresignedURL(t *testing.T) {
	_, _, _, p := newPresenceFixture()
	ctx := context.Background()

	url, err := p.PresignedURL(ctx, 10, false)
	if err != nil {
		t.Fatalf("PresignedURL() error = %v", err)
	}
	if url != "https://bucket.example/Ch/Cat/001_Intro.png?method=GET" {
		t.Errorf("PresignedURL() = %q", url)
	}

	if _, err := p.PresignedURL(ctx, 11, false); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unpublished error = %v, want not found", err)
	}
}
