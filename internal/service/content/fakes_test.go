package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"beps/internal/domain"
	"beps/internal/domain/models"
	contentModels "beps/internal/domain/models/content"
	"beps/internal/domain/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

// fakeHierarchy is an in-memory HierarchyRepository.
type fakeHierarchy struct {
	channels map[int64]*contentModels.Channel
	folders  map[int64]*contentModels.Folder
	pages    map[int64]*contentModels.Page
	details  map[int64]*contentModels.PageDetail
	nextID   int64
	writes   int

	detailErr error
}

func newFakeHierarchy() *fakeHierarchy {
	return &fakeHierarchy{
		channels: map[int64]*contentModels.Channel{},
		folders:  map[int64]*contentModels.Folder{},
		pages:    map[int64]*contentModels.Page{},
		details:  map[int64]*contentModels.PageDetail{},
		nextID:   1000,
	}
}

func (f *fakeHierarchy) addChannel(id int64, name string) {
	f.channels[id] = &contentModels.Channel{ID: id, Name: name}
}

func (f *fakeHierarchy) addFolder(id, channelID int64, parentID *int64, name string) {
	f.folders[id] = &contentModels.Folder{ID: id, ChannelID: channelID, ParentID: parentID, Name: name}
}

func (f *fakeHierarchy) addPage(id, folderID int64, name string, objectID *string) {
	f.pages[id] = &contentModels.Page{ID: id, FolderID: folderID, Name: name, ObjectID: objectID}
}

func notFound(kind string, id int64) error {
	return fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
}

func (f *fakeHierarchy) GetChannel(_ context.Context, id int64) (*contentModels.Channel, error) {
	c, ok := f.channels[id]
	if !ok || c.IsDeleted {
		return nil, notFound("channel", id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeHierarchy) GetFolder(_ context.Context, id int64) (*contentModels.Folder, error) {
	fo, ok := f.folders[id]
	if !ok || fo.IsDeleted {
		return nil, notFound("folder", id)
	}
	cp := *fo
	return &cp, nil
}

func (f *fakeHierarchy) GetPage(_ context.Context, id int64) (*contentModels.Page, error) {
	p, ok := f.pages[id]
	if !ok || p.IsDeleted {
		return nil, notFound("page", id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeHierarchy) GetDetail(_ context.Context, id int64) (*contentModels.PageDetail, error) {
	d, ok := f.details[id]
	if !ok || d.IsDeleted {
		return nil, notFound("page detail", id)
	}
	cp := *d
	return &cp, nil
}

func (f *fakeHierarchy) FolderChain(_ context.Context, folderID int64) ([]contentModels.FolderLink, error) {
	var chain []contentModels.FolderLink
	id := &folderID
	for id != nil {
		fo, ok := f.folders[*id]
		if !ok || fo.IsDeleted {
			break
		}
		chain = append(chain, contentModels.FolderLink{ID: fo.ID, Name: fo.Name, ChannelID: fo.ChannelID, ParentID: fo.ParentID})
		id = fo.ParentID
	}
	if len(chain) == 0 {
		return nil, notFound("folder", folderID)
	}
	return chain, nil
}

func (f *fakeHierarchy) LockPage(ctx context.Context, id int64) (*contentModels.Page, error) {
	return f.GetPage(ctx, id)
}

func (f *fakeHierarchy) CreateChannel(_ context.Context, c *contentModels.Channel) error {
	for _, existing := range f.channels {
		if existing.Name == c.Name && !existing.IsDeleted {
			return &domain.ConflictError{Message: "channel exists", ResourceType: "channel"}
		}
	}
	f.nextID++
	c.ID = f.nextID
	cp := *c
	f.channels[c.ID] = &cp
	f.writes++
	return nil
}

func (f *fakeHierarchy) CreateFolder(_ context.Context, fo *contentModels.Folder) error {
	f.nextID++
	fo.ID = f.nextID
	cp := *fo
	f.folders[fo.ID] = &cp
	f.writes++
	return nil
}

func (f *fakeHierarchy) CreatePage(_ context.Context, p *contentModels.Page) error {
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.pages[p.ID] = &cp
	f.writes++
	return nil
}

func (f *fakeHierarchy) RenameChannel(_ context.Context, id int64, name string) error {
	f.channels[id].Name = name
	f.writes++
	return nil
}

func (f *fakeHierarchy) RenameFolder(_ context.Context, id int64, name string) error {
	f.folders[id].Name = name
	f.writes++
	return nil
}

func (f *fakeHierarchy) RenamePage(_ context.Context, id int64, name string) error {
	f.pages[id].Name = name
	f.writes++
	return nil
}

func (f *fakeHierarchy) SetPageObjectID(_ context.Context, id int64, objectID *string) error {
	p, ok := f.pages[id]
	if !ok {
		return notFound("page", id)
	}
	p.ObjectID = objectID
	p.UpdatedAt = p.UpdatedAt.Add(time.Second)
	f.writes++
	return nil
}

func (f *fakeHierarchy) SetDetailObjectID(_ context.Context, id int64, objectID *string) error {
	if f.detailErr != nil {
		return f.detailErr
	}
	d, ok := f.details[id]
	if !ok {
		return notFound("page detail", id)
	}
	d.ObjectID = objectID
	f.writes++
	return nil
}

func (f *fakeHierarchy) SoftDeleteChannel(_ context.Context, id int64) error {
	c, ok := f.channels[id]
	if !ok {
		return notFound("channel", id)
	}
	c.IsDeleted = true
	f.writes++
	return nil
}

func (f *fakeHierarchy) SoftDeleteFolder(_ context.Context, id int64) error {
	fo, ok := f.folders[id]
	if !ok {
		return notFound("folder", id)
	}
	fo.IsDeleted = true
	f.writes++
	return nil
}

func (f *fakeHierarchy) SoftDeletePage(_ context.Context, id int64) error {
	p, ok := f.pages[id]
	if !ok {
		return notFound("page", id)
	}
	p.IsDeleted = true
	f.writes++
	return nil
}

func (f *fakeHierarchy) ListDetails(_ context.Context, pageID int64) ([]contentModels.PageDetail, error) {
	out := []contentModels.PageDetail{}
	for _, d := range f.details {
		if d.PageID == pageID && !d.IsDeleted {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeHierarchy) CountDetails(ctx context.Context, pageID int64) (int, error) {
	details, _ := f.ListDetails(ctx, pageID)
	return len(details), nil
}

func (f *fakeHierarchy) inSubtree(folderID, root int64) bool {
	id := &folderID
	for id != nil {
		if *id == root {
			return true
		}
		fo, ok := f.folders[*id]
		if !ok {
			return false
		}
		id = fo.ParentID
	}
	return false
}

func (f *fakeHierarchy) PagesUnderFolder(_ context.Context, folderID int64) ([]contentModels.Page, error) {
	out := []contentModels.Page{}
	for _, p := range f.pages {
		if !p.IsDeleted && f.inSubtree(p.FolderID, folderID) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeHierarchy) PagesUnderChannel(_ context.Context, channelID int64) ([]contentModels.Page, error) {
	out := []contentModels.Page{}
	for _, p := range f.pages {
		if fo, ok := f.folders[p.FolderID]; ok && !p.IsDeleted && fo.ChannelID == channelID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeHierarchy) Snapshot(_ context.Context, channelID *int64, withDetails bool) (*contentModels.Snapshot, error) {
	snap := &contentModels.Snapshot{}
	for _, c := range f.channels {
		if !c.IsDeleted && (channelID == nil || c.ID == *channelID) {
			snap.Channels = append(snap.Channels, *c)
		}
	}
	for _, fo := range f.folders {
		if !fo.IsDeleted && (channelID == nil || fo.ChannelID == *channelID) {
			snap.Folders = append(snap.Folders, *fo)
		}
	}
	for _, p := range f.pages {
		if fo, ok := f.folders[p.FolderID]; ok && !p.IsDeleted && (channelID == nil || fo.ChannelID == *channelID) {
			snap.Pages = append(snap.Pages, *p)
		}
	}
	if withDetails {
		for _, d := range f.details {
			if !d.IsDeleted {
				snap.Details = append(snap.Details, *d)
			}
		}
	}
	sort.Slice(snap.Channels, func(i, j int) bool { return snap.Channels[i].ID < snap.Channels[j].ID })
	sort.Slice(snap.Folders, func(i, j int) bool { return snap.Folders[i].ID < snap.Folders[j].ID })
	sort.Slice(snap.Pages, func(i, j int) bool { return snap.Pages[i].ID < snap.Pages[j].ID })
	sort.Slice(snap.Details, func(i, j int) bool { return snap.Details[i].ID < snap.Details[j].ID })
	return snap, nil
}

// fakeAdditionals is an in-memory AdditionalRepository.
type fakeAdditionals struct {
	rows   map[int64]*contentModels.PageAdditional
	nextID int64
}

func newFakeAdditionals() *fakeAdditionals {
	return &fakeAdditionals{rows: map[int64]*contentModels.PageAdditional{}, nextID: 500}
}

func (f *fakeAdditionals) add(a contentModels.PageAdditional) {
	cp := a
	f.rows[a.ID] = &cp
}

func (f *fakeAdditionals) Get(_ context.Context, id int64) (*contentModels.PageAdditional, error) {
	a, ok := f.rows[id]
	if !ok || a.IsDeleted {
		return nil, notFound("additional", id)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAdditionals) ListByPage(ctx context.Context, pageID int64) ([]contentModels.PageAdditional, error) {
	return f.ListByPages(ctx, []int64{pageID})
}

func (f *fakeAdditionals) ListByPages(_ context.Context, pageIDs []int64) ([]contentModels.PageAdditional, error) {
	out := []contentModels.PageAdditional{}
	for _, a := range f.rows {
		if a.IsDeleted {
			continue
		}
		for _, id := range pageIDs {
			if a.PageID == id {
				out = append(out, *a)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContentNumber < out[j].ContentNumber })
	return out, nil
}

func (f *fakeAdditionals) MaxContentNumber(_ context.Context, pageID int64) (int, error) {
	highest := 0
	for _, a := range f.rows {
		if a.PageID == pageID && !a.IsDeleted && a.ContentNumber > highest {
			highest = a.ContentNumber
		}
	}
	return highest, nil
}

func (f *fakeAdditionals) Create(_ context.Context, a *contentModels.PageAdditional) error {
	f.nextID++
	a.ID = f.nextID
	f.add(*a)
	return nil
}

func (f *fakeAdditionals) UpdateObject(_ context.Context, id int64, filename, objectKey string) error {
	a, ok := f.rows[id]
	if !ok {
		return notFound("additional", id)
	}
	a.Filename, a.ObjectKey = filename, objectKey
	return nil
}

func (f *fakeAdditionals) UpdateFileSize(_ context.Context, id int64, size int64) error {
	a, ok := f.rows[id]
	if !ok {
		return notFound("additional", id)
	}
	a.FileSize = size
	return nil
}

func (f *fakeAdditionals) SoftDelete(_ context.Context, id int64) error {
	a, ok := f.rows[id]
	if !ok {
		return notFound("additional", id)
	}
	a.IsDeleted = true
	return nil
}

// fakeWorkflow is an in-memory WorkflowRepository.
type fakeWorkflow struct {
	pending   map[int64]*contentModels.PendingContent
	archives  []contentModels.ArchivedContent
	nextID    int64
	upsertErr error
}

func newFakeWorkflow() *fakeWorkflow {
	return &fakeWorkflow{pending: map[int64]*contentModels.PendingContent{}, nextID: 900}
}

func (f *fakeWorkflow) find(contentType contentModels.ContentType, targetID int64) *contentModels.PendingContent {
	for _, p := range f.pending {
		if p.ContentType == contentType && p.TargetID() == targetID {
			return p
		}
	}
	return nil
}

func (f *fakeWorkflow) GetPending(_ context.Context, contentType contentModels.ContentType, targetID int64) (*contentModels.PendingContent, error) {
	p := f.find(contentType, targetID)
	if p == nil {
		return nil, notFound("pending", targetID)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeWorkflow) UpsertPending(_ context.Context, p *contentModels.PendingContent) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing := f.find(p.ContentType, p.TargetID()); existing != nil {
		p.ID = existing.ID
	} else {
		f.nextID++
		p.ID = f.nextID
	}
	cp := *p
	f.pending[p.ID] = &cp
	return nil
}

func (f *fakeWorkflow) DeletePending(_ context.Context, id int64) error {
	if _, ok := f.pending[id]; !ok {
		return notFound("pending", id)
	}
	delete(f.pending, id)
	return nil
}

func (f *fakeWorkflow) UpdatePendingObject(_ context.Context, id int64, filename, objectKey string) error {
	p, ok := f.pending[id]
	if !ok {
		return notFound("pending", id)
	}
	p.Filename, p.ObjectKey = filename, objectKey
	return nil
}

func (f *fakeWorkflow) ListPendingByPages(_ context.Context, pageIDs []int64) ([]contentModels.PendingContent, error) {
	out := []contentModels.PendingContent{}
	for _, p := range f.pending {
		for _, id := range pageIDs {
			if p.PageID == id {
				out = append(out, *p)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeWorkflow) InsertArchive(_ context.Context, a *contentModels.ArchivedContent) error {
	for _, existing := range f.archives {
		if existing.ObjectKey == a.ObjectKey {
			return &domain.ConflictError{Message: "archive exists", ResourceType: "archive"}
		}
	}
	f.nextID++
	a.ID = f.nextID
	f.archives = append(f.archives, *a)
	return nil
}

func (f *fakeWorkflow) ListArchives(_ context.Context, contentType contentModels.ContentType, targetID int64) ([]contentModels.ArchivedContent, error) {
	out := []contentModels.ArchivedContent{}
	for _, a := range f.archives {
		if a.ContentType != contentType {
			continue
		}
		if contentType == contentModels.ContentTypePage && a.OriginalPageID == targetID && a.OriginalAdditionalID == nil {
			out = append(out, a)
		}
		if contentType == contentModels.ContentTypeAdditional && a.OriginalAdditionalID != nil && *a.OriginalAdditionalID == targetID {
			out = append(out, a)
		}
	}
	return out, nil
}

// fakeTx runs fn directly; commitErr simulates a failed commit.
type fakeTx struct {
	calls     int
	commitErr error
}

func (f *fakeTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	f.calls++
	if err := fn(ctx); err != nil {
		return err
	}
	return f.commitErr
}

// fakeStore is an in-memory ObjectStore.
type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	ops     []string
	heads   int
	fail    map[string]error // op name → error
	failKey map[string]error // key → error on copy
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: map[string][]byte{},
		fail:    map[string]error{},
		failKey: map[string]error{},
	}
}

func (s *fakeStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail["put"]; err != nil {
		return err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = data
	s.ops = append(s.ops, "put "+key)
	return nil
}

func (s *fakeStore) Head(_ context.Context, key string) (*repositories.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heads++
	if err := s.fail["head"]; err != nil {
		return nil, err
	}
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
	}
	return &repositories.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (s *fakeStore) Get(_ context.Context, key string) (io.ReadCloser, *repositories.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, nil, fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), &repositories.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (s *fakeStore) Copy(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failKey[src]; err != nil {
		return err
	}
	data, ok := s.objects[src]
	if !ok {
		return fmt.Errorf("object %s: %w", src, domain.ErrNotFound)
	}
	s.objects[dst] = append([]byte(nil), data...)
	s.ops = append(s.ops, "copy "+src+" -> "+dst)
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.ops = append(s.ops, "delete "+key)
	return nil
}

func (s *fakeStore) Presign(_ context.Context, method, key string, _ time.Duration) (string, error) {
	return "https://bucket.example/" + key + "?method=" + method, nil
}

func (s *fakeStore) keys(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// fakeCache is an in-memory repositories.Cache.
type fakeCache struct {
	mu     sync.Mutex
	values map[string][]byte
	ints   map[string]int64
	sets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string][]byte{}, ints: map[string]int64{}}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	c.sets++
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func (c *fakeCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ints[key]++
	return c.ints[key], nil
}

func (c *fakeCache) GetInt(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ints[key], nil
}

// fakeAuthorizer allows everything unless a user is listed as denied.
type fakeAuthorizer struct {
	denyUpload  map[string]bool
	denyApprove map[string]bool
}

func (a *fakeAuthorizer) CanUpload(_ context.Context, actor models.Identity, pageID int64) error {
	if a.denyUpload[actor.UserID] {
		return &domain.ForbiddenError{Message: fmt.Sprintf("no upload permission for page %d", pageID)}
	}
	return nil
}

func (a *fakeAuthorizer) CanApprove(_ context.Context, actor models.Identity, pageID int64) error {
	if a.denyApprove[actor.UserID] {
		return &domain.ForbiddenError{Message: fmt.Sprintf("no approval permission for page %d", pageID)}
	}
	return nil
}

func (a *fakeAuthorizer) RequireDeveloper(actor models.Identity) error {
	if actor.Role.IsDeveloper() {
		return nil
	}
	return &domain.ForbiddenError{Message: "developer role required"}
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate(context.Context) { c.calls++ }
