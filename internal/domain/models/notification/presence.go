package notification

// Presence frame types exchanged on the presence socket.
const (
	FrameVerifyUserExists = "verify_user_exists"
	FrameAddUser          = "add_user"
	FramePong             = "pong"
	FrameClose            = "close"

	FramePing           = "ping"
	FrameUserCount      = "user_count"
	FrameDuplicateLogin = "duplicate_login"
	FrameNoUserActive   = "no_user_active"
	FrameInvalidToken   = "invalid_token"
)

// ClientFrame is a frame sent by a presence client.
type ClientFrame struct {
	Type   string `json:"type"`
	UserID string `json:"user_id,omitempty"`
	Token  string `json:"token,omitempty"`
}

// ActiveUser is one entry of a user_count frame.
type ActiveUser struct {
	UserID string `json:"user_id"`
}

// ServerFrame is a frame sent to presence clients.
type ServerFrame struct {
	Type    string       `json:"type"`
	Message string       `json:"message,omitempty"`
	Count   *int         `json:"count,omitempty"`
	Users   []ActiveUser `json:"users,omitempty"`
}
