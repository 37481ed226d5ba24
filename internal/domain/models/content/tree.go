package content

// ChannelNode is a channel with its top-level folders.
type ChannelNode struct {
	Channel
	Manager *Assignee    `json:"manager,omitempty"`
	Folders []FolderNode `json:"folders"`
}

// FolderNode is a folder with nested folders and pages.
type FolderNode struct {
	Folder
	Manager *Assignee    `json:"manager,omitempty"`
	Folders []FolderNode `json:"folders"`
	Pages   []PageNode   `json:"pages,omitempty"`
}

// PageNode is a page with optional details and presence.
type PageNode struct {
	Page
	Manager  *Assignee        `json:"manager,omitempty"`
	Details  []PageDetail     `json:"details,omitempty"`
	Presence *ContentPresence `json:"presence,omitempty"`
}

// Snapshot is the flat hierarchy read used to assemble a traversal.
type Snapshot struct {
	Channels []Channel
	Folders  []Folder
	Pages    []Page
	Details  []PageDetail
	Managers []ManagerAssignment
}

// ManagerAssignment joins a ContentManager row with its Assignee.
type ManagerAssignment struct {
	ContentManager
	Assignee Assignee
}
