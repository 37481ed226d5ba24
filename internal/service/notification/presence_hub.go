package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	notifModels "beps/internal/domain/models/notification"
	"beps/internal/domain/services"
)

const (
	duplicateLoginMessage = "signed in from another device; this session is closed"
	invalidTokenMessage   = "token does not identify this user"
	logoutTimeout         = 10 * time.Second
)

// Peer is one connected presence socket. Send and Close must be safe for
// concurrent use.
type Peer interface {
	ID() string
	Send(frame notifModels.ServerFrame) error
	Close() error
}

type peerState struct {
	peer       Peer
	remoteIP   string
	userID     string
	token      string
	lastActive time.Time
	loggedOut  bool
	evicted    bool
}

// PresenceHub tracks presence sockets and enforces one socket per user.
type PresenceHub struct {
	verifier services.TokenVerifier
	revoker  services.SessionRevoker
	timeout  time.Duration
	now      func() time.Time
	logger   *slog.Logger

	mu    sync.Mutex
	peers map[string]*peerState
}

// NewPresenceHub creates a hub. An add_user claim is accepted only when
// verifier accepts its token and the token subject is the claimed user.
// Sockets silent for longer than timeout are dropped by Scan.
func NewPresenceHub(
	verifier services.TokenVerifier,
	revoker services.SessionRevoker,
	timeout time.Duration,
	logger *slog.Logger,
) *PresenceHub {
	return &PresenceHub{
		verifier: verifier,
		revoker:  revoker,
		timeout:  timeout,
		now:      time.Now,
		logger:   logger,
		peers:    map[string]*peerState{},
	}
}

// Connect registers a socket and sends it the current user count.
func (h *PresenceHub) Connect(p Peer, remoteIP string) {
	h.mu.Lock()
	h.peers[p.ID()] = &peerState{peer: p, remoteIP: remoteIP, lastActive: h.now()}
	frame := h.userCountLocked()
	h.mu.Unlock()

	h.logger.Info("presence socket connected", "socket_id", p.ID(), "remote_ip", remoteIP)
	h.send(p, frame)
}

// Handle dispatches one client frame.
func (h *PresenceHub) Handle(ctx context.Context, peerID string, frame notifModels.ClientFrame) {
	switch frame.Type {
	case notifModels.FrameVerifyUserExists:
		h.verify(peerID, frame.UserID)
	case notifModels.FrameAddUser:
		h.addUser(peerID, frame.UserID, frame.Token)
	case notifModels.FramePong:
		h.mu.Lock()
		if st, ok := h.peers[peerID]; ok {
			st.lastActive = h.now()
		}
		h.mu.Unlock()
	case notifModels.FrameClose:
		h.mu.Lock()
		if st, ok := h.peers[peerID]; ok {
			st.loggedOut = true
		}
		h.mu.Unlock()
		h.logger.Info("presence client logged out", "socket_id", peerID)
	default:
		h.logger.Debug("ignoring presence frame", "socket_id", peerID, "type", frame.Type)
	}
}

// verify notifies the socket holding userID, if any; otherwise it tells the
// asking socket that nobody is active.
func (h *PresenceHub) verify(peerID, userID string) {
	userID = strings.ToLower(strings.TrimSpace(userID))

	h.mu.Lock()
	holder := h.holderLocked(userID, "")
	asker := h.peers[peerID]
	h.mu.Unlock()

	if holder != nil {
		h.send(holder.peer, notifModels.ServerFrame{Type: notifModels.FrameDuplicateLogin, Message: duplicateLoginMessage})
		return
	}
	if asker != nil {
		h.send(asker.peer, notifModels.ServerFrame{Type: notifModels.FrameNoUserActive})
	}
}

// addUser claims userID for the socket, evicting any other socket that holds it.
func (h *PresenceHub) addUser(peerID, userID, token string) {
	userID = strings.ToLower(strings.TrimSpace(userID))
	if userID == "" {
		return
	}
	if err := h.authenticate(userID, token); err != nil {
		h.logger.Warn("presence claim rejected",
			"user_id", userID,
			"socket_id", peerID,
			"error", err,
		)
		h.mu.Lock()
		st, ok := h.peers[peerID]
		h.mu.Unlock()
		if ok {
			h.send(st.peer, notifModels.ServerFrame{Type: notifModels.FrameInvalidToken, Message: invalidTokenMessage})
		}
		return
	}

	h.mu.Lock()
	st, ok := h.peers[peerID]
	if !ok {
		h.mu.Unlock()
		return
	}
	previous := h.holderLocked(userID, peerID)
	if previous != nil {
		previous.evicted = true
	}
	st.userID = userID
	st.token = token
	st.lastActive = h.now()
	frame := h.userCountLocked()
	peers := h.peersLocked()
	h.mu.Unlock()

	if previous != nil {
		h.logger.Info("duplicate login, evicting previous socket",
			"user_id", userID,
			"socket_id", previous.peer.ID(),
			"new_socket_id", peerID,
		)
		h.send(previous.peer, notifModels.ServerFrame{Type: notifModels.FrameDuplicateLogin, Message: duplicateLoginMessage})
		if err := previous.peer.Close(); err != nil {
			h.logger.Debug("close evicted socket", "socket_id", previous.peer.ID(), "error", err)
		}
	}
	h.logger.Info("presence user added", "user_id", userID, "socket_id", peerID)
	h.broadcast(peers, frame)
}

// authenticate checks that token is valid and was issued to userID.
func (h *PresenceHub) authenticate(userID, token string) error {
	if h.verifier == nil {
		return errors.New("no token verifier configured")
	}
	if token == "" {
		return errors.New("missing token")
	}
	claims, err := h.verifier.VerifyToken(token)
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(claims.GetUserID()), userID) {
		return fmt.Errorf("token subject %q does not match user", claims.GetUserID())
	}
	return nil
}

// Disconnect removes a socket. A socket that claimed a user and did not log
// out itself has its token revoked at the auth provider.
func (h *PresenceHub) Disconnect(ctx context.Context, peerID string) {
	h.mu.Lock()
	st, ok := h.peers[peerID]
	if ok {
		delete(h.peers, peerID)
	}
	frame := h.userCountLocked()
	peers := h.peersLocked()
	h.mu.Unlock()

	if !ok {
		return
	}
	h.logger.Info("presence socket disconnected", "socket_id", peerID, "user_id", st.userID)
	if st.userID == "" {
		return
	}

	if !st.loggedOut && st.token != "" && h.revoker != nil {
		logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
		err := h.revoker.Logout(logoutCtx, st.token)
		cancel()
		if err != nil {
			h.logger.Error("auth logout failed", "user_id", st.userID, "socket_id", peerID, "error", err)
		} else {
			h.logger.Info("auth logout sent", "user_id", st.userID, "socket_id", peerID)
		}
	}
	h.broadcast(peers, frame)
}

// Scan closes sockets idle for longer than the timeout and returns how many
// it closed. Their read loops then call Disconnect.
func (h *PresenceHub) Scan() int {
	cutoff := h.now().Add(-h.timeout)

	h.mu.Lock()
	var stale []Peer
	for _, st := range h.peers {
		if st.lastActive.Before(cutoff) {
			stale = append(stale, st.peer)
		}
	}
	h.mu.Unlock()

	for _, p := range stale {
		h.logger.Info("closing idle presence socket", "socket_id", p.ID())
		if err := p.Close(); err != nil {
			h.logger.Debug("close idle socket", "socket_id", p.ID(), "error", err)
		}
	}
	return len(stale)
}

// Ping sends a ping frame to every socket
func (h *PresenceHub) Ping() {
	h.mu.Lock()
	peers := h.peersLocked()
	h.mu.Unlock()
	h.broadcast(peers, notifModels.ServerFrame{Type: notifModels.FramePing})
}

// Run pings sockets and scans for idle ones until ctx ends.
func (h *PresenceHub) Run(ctx context.Context, pingInterval, checkInterval time.Duration) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	check := time.NewTicker(checkInterval)
	defer check.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			h.Ping()
		case <-check.C:
			h.Scan()
		}
	}
}

// ActiveUsers returns the claimed user ids, sorted.
func (h *PresenceHub) ActiveUsers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, st := range h.peers {
		if st.userID != "" && !st.evicted {
			out = append(out, st.userID)
		}
	}
	sort.Strings(out)
	return out
}

func (h *PresenceHub) holderLocked(userID, exclude string) *peerState {
	for id, st := range h.peers {
		if id != exclude && !st.evicted && st.userID == userID {
			return st
		}
	}
	return nil
}

func (h *PresenceHub) userCountLocked() notifModels.ServerFrame {
	users := []notifModels.ActiveUser{}
	for _, st := range h.peers {
		if st.userID != "" && !st.evicted {
			users = append(users, notifModels.ActiveUser{UserID: st.userID})
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	n := len(users)
	return notifModels.ServerFrame{Type: notifModels.FrameUserCount, Count: &n, Users: users}
}

func (h *PresenceHub) peersLocked() []Peer {
	out := make([]Peer, 0, len(h.peers))
	for _, st := range h.peers {
		out = append(out, st.peer)
	}
	return out
}

func (h *PresenceHub) broadcast(peers []Peer, frame notifModels.ServerFrame) {
	for _, p := range peers {
		h.send(p, frame)
	}
}

func (h *PresenceHub) send(p Peer, frame notifModels.ServerFrame) {
	if err := p.Send(frame); err != nil {
		h.logger.Debug("presence send failed", "socket_id", p.ID(), "type", frame.Type, "error", err)
	}
}
