package content

// ManagerType is the level a content manager is assigned at.
type ManagerType string

const (
	ManagerTypeChannel ManagerType = "channel"
	ManagerTypeFolder  ManagerType = "folder"
	ManagerTypeFile    ManagerType = "file"
)

// Assignee is the stable identity of a manager, decoupled from the user row.
type Assignee struct {
	ID       int64  `json:"id" db:"id"`
	UserID   string `json:"user_id" db:"user_id"`
	Name     string `json:"name" db:"name"`
	Position string `json:"position" db:"position"`
}

// ContentManager assigns an Assignee to exactly one channel, folder or file.
type ContentManager struct {
	ID         int64       `json:"id" db:"id"`
	Type       ManagerType `json:"type" db:"type"`
	AssigneeID int64       `json:"assignee_id" db:"assignee_id"`
	ChannelID  *int64      `json:"channel_id,omitempty" db:"channel_id"`
	FolderID   *int64      `json:"folder_id,omitempty" db:"folder_id"`
	FileID     *int64      `json:"file_id,omitempty" db:"file_id"`
}

// Target returns the id of the entity the assignment points at.
func (m *ContentManager) Target() *int64 {
	switch m.Type {
	case ManagerTypeChannel:
		return m.ChannelID
	case ManagerTypeFolder:
		return m.FolderID
	case ManagerTypeFile:
		return m.FileID
	}
	return nil
}

// ManagerEntry is an assignment listed with its assignee.
type ManagerEntry struct {
	ContentManager
	Assignee Assignee `json:"assignee"`
}

// UserProfile is the part of a user row an assignee is built from.
type UserProfile struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Position string `json:"position" db:"position"`
}
