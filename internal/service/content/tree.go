package content

import (
	contentModels "beps/internal/domain/models/content"
	contentSvc "beps/internal/domain/services/content"
)

// treeBuilder assembles nested nodes from a flat snapshot.
type treeBuilder struct {
	opts       contentSvc.TraverseOptions
	channelSet []contentModels.Channel
	folders    []contentModels.Folder
	top        map[int64][]contentModels.Folder
	children   map[int64][]contentModels.Folder
	pages      map[int64][]contentModels.Page
	details    map[int64][]contentModels.PageDetail
	channelMgr map[int64]*contentModels.Assignee
	folderMgr  map[int64]*contentModels.Assignee
	fileMgr    map[int64]*contentModels.Assignee
}

func newTreeBuilder(snap *contentModels.Snapshot, opts contentSvc.TraverseOptions) *treeBuilder {
	b := &treeBuilder{
		opts:       opts,
		channelSet: snap.Channels,
		folders:    snap.Folders,
		top:        make(map[int64][]contentModels.Folder),
		children:   make(map[int64][]contentModels.Folder),
		pages:      make(map[int64][]contentModels.Page),
		details:    make(map[int64][]contentModels.PageDetail),
		channelMgr: make(map[int64]*contentModels.Assignee),
		folderMgr:  make(map[int64]*contentModels.Assignee),
		fileMgr:    make(map[int64]*contentModels.Assignee),
	}

	for _, f := range snap.Folders {
		if f.ParentID == nil {
			b.top[f.ChannelID] = append(b.top[f.ChannelID], f)
		} else {
			b.children[*f.ParentID] = append(b.children[*f.ParentID], f)
		}
	}
	for _, p := range snap.Pages {
		b.pages[p.FolderID] = append(b.pages[p.FolderID], p)
	}
	for _, d := range snap.Details {
		b.details[d.PageID] = append(b.details[d.PageID], d)
	}
	for i := range snap.Managers {
		m := &snap.Managers[i]
		assignee := m.Assignee
		switch {
		case m.ChannelID != nil:
			b.channelMgr[*m.ChannelID] = &assignee
		case m.FolderID != nil:
			b.folderMgr[*m.FolderID] = &assignee
		case m.FileID != nil:
			b.fileMgr[*m.FileID] = &assignee
		}
	}
	return b
}

func (b *treeBuilder) channels() []contentModels.ChannelNode {
	out := make([]contentModels.ChannelNode, 0, len(b.channelSet))
	for _, c := range b.channelSet {
		node := contentModels.ChannelNode{Channel: c, Folders: []contentModels.FolderNode{}}
		if b.opts.IncludeManagers {
			node.Manager = b.channelMgr[c.ID]
		}

		if b.opts.FolderID != nil {
			for _, f := range b.folders {
				if f.ID == *b.opts.FolderID && f.ChannelID == c.ID {
					node.Folders = append(node.Folders, b.folder(f, 1))
				}
			}
		} else {
			for _, f := range b.top[c.ID] {
				node.Folders = append(node.Folders, b.folder(f, 1))
			}
		}
		out = append(out, node)
	}
	return out
}

// folder builds a folder node at level (1 = the first folder returned).
// Depth 0 means unlimited.
func (b *treeBuilder) folder(f contentModels.Folder, level int) contentModels.FolderNode {
	node := contentModels.FolderNode{Folder: f, Folders: []contentModels.FolderNode{}}
	if b.opts.IncludeManagers {
		node.Manager = b.folderMgr[f.ID]
	}

	if b.opts.IncludePages {
		for _, p := range b.pages[f.ID] {
			page := contentModels.PageNode{Page: p}
			if b.opts.IncludeManagers {
				page.Manager = b.fileMgr[p.ID]
			}
			if b.opts.IncludeDetails {
				page.Details = b.details[p.ID]
			}
			node.Pages = append(node.Pages, page)
		}
	}

	if b.opts.Depth == 0 || level < b.opts.Depth {
		for _, child := range b.children[f.ID] {
			node.Folders = append(node.Folders, b.folder(child, level+1))
		}
	}
	return node
}

// cloneChannels copies the mutable parts of a shared tree.
func cloneChannels(in []contentModels.ChannelNode) []contentModels.ChannelNode {
	out := make([]contentModels.ChannelNode, len(in))
	for i, c := range in {
		out[i] = c
		out[i].Folders = cloneFolders(c.Folders)
	}
	return out
}

func cloneFolders(in []contentModels.FolderNode) []contentModels.FolderNode {
	if in == nil {
		return nil
	}
	out := make([]contentModels.FolderNode, len(in))
	for i, f := range in {
		out[i] = f
		out[i].Folders = cloneFolders(f.Folders)
		if f.Pages != nil {
			out[i].Pages = append([]contentModels.PageNode(nil), f.Pages...)
		}
	}
	return out
}
