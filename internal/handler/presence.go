package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	notifModels "beps/internal/domain/models/notification"
	"beps/internal/httputil"
	"beps/internal/service/notification"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

// wsPeer adapts a websocket connection to the presence hub.
type wsPeer struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (p *wsPeer) ID() string { return p.id }

func (p *wsPeer) Send(frame notifModels.ServerFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return p.conn.WriteJSON(frame)
}

func (p *wsPeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = p.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsWriteTimeout))
	return p.conn.Close()
}

// PresenceHandler upgrades presence sockets and feeds their frames to the hub
type PresenceHandler struct {
	hub            *notification.PresenceHub
	upgrader       websocket.Upgrader
	maxMessageSize int64
	logger         *slog.Logger
}

// NewPresenceHandler creates a new presence handler. Browsers may connect
// only from one of origins; requests without an Origin header are accepted.
func NewPresenceHandler(hub *notification.PresenceHub, origins []string, maxMessageSize int64, logger *slog.Logger) *PresenceHandler {
	allowed := map[string]bool{}
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}
	return &PresenceHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		maxMessageSize: maxMessageSize,
		logger:         logger,
	}
}

// Serve runs one presence socket until it closes
// GET /api/presence/ws
func (h *PresenceHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("presence upgrade failed", "error", err)
		return
	}
	conn.SetReadLimit(h.maxMessageSize)

	peer := &wsPeer{id: uuid.New().String(), conn: conn}
	h.hub.Connect(peer, httputil.RemoteIP(r))
	defer func() {
		h.hub.Disconnect(context.WithoutCancel(r.Context()), peer.id)
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("presence socket read failed", "socket_id", peer.id, "error", err)
			}
			return
		}

		var frame notifModels.ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.logger.Debug("ignoring malformed presence frame", "socket_id", peer.id, "error", err)
			continue
		}
		h.hub.Handle(r.Context(), peer.id, frame)
	}
}
