package handler

import (
	"log/slog"
	"net/http"

	notifModels "beps/internal/domain/models/notification"
	"beps/internal/domain/services"
	notifSvc "beps/internal/domain/services/notification"
	"beps/internal/handler/sse"
	"beps/internal/httputil"

	"github.com/google/uuid"
)

// PushHandler handles push messages and the alert stream
type PushHandler struct {
	push       notifSvc.PushService
	authorizer services.ContentAuthorizer
	sseConfig  *sse.Config
	logger     *slog.Logger
}

// NewPushHandler creates a new push handler
func NewPushHandler(
	push notifSvc.PushService,
	authorizer services.ContentAuthorizer,
	sseConfig *sse.Config,
	logger *slog.Logger,
) *PushHandler {
	if sseConfig == nil {
		sseConfig = sse.DefaultConfig()
	}
	return &PushHandler{
		push:       push,
		authorizer: authorizer,
		sseConfig:  sseConfig,
		logger:     logger,
	}
}

// Send fans a message out to the users selected by the filter
// POST /api/push/send
func (h *PushHandler) Send(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.authorizer.RequireDeveloper(actor); err != nil {
		handleError(w, err)
		return
	}
	var req notifSvc.SendRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		handleError(w, err)
		return
	}

	result, err := h.push.Send(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// Load fills the caller's cache from the store and returns it
// GET /api/push/load
func (h *PushHandler) Load(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	messages, err := h.push.Load(r.Context(), actor.UserID)
	if err != nil {
		handleError(w, err)
		return
	}
	if messages == nil {
		messages = []notifModels.PushMessage{}
	}
	httputil.RespondJSON(w, http.StatusOK, messages)
}

// Read marks the caller's cached messages as read
// POST /api/push/read
func (h *PushHandler) Read(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	messages, err := h.push.Read(r.Context(), actor.UserID)
	if err != nil {
		handleError(w, err)
		return
	}
	if messages == nil {
		messages = []notifModels.PushMessage{}
	}
	httputil.RespondJSON(w, http.StatusOK, messages)
}

// Count returns the length of the caller's cached list
// GET /api/push/count
func (h *PushHandler) Count(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	n, err := h.push.Count(r.Context(), actor.UserID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, notifModels.Alert{Count: n})
}

// Events streams the caller's alerts until the client goes away
// GET /api/push/events
func (h *PushHandler) Events(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	sub, err := h.push.Subscribe(ctx, actor.UserID)
	if err != nil {
		handleError(w, err)
		return
	}
	defer sub.Close()

	stream, err := sse.Open(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	clientID := uuid.New().String()
	h.logger.Debug("push stream opened", "user_id", actor.UserID, "client_id", clientID)
	defer h.logger.Debug("push stream closed", "user_id", actor.UserID, "client_id", clientID)

	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	stopped := keepAlive.Start(stream, h.logger)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopped:
			return
		case payload, ok := <-sub.Messages():
			if !ok {
				return
			}
			// Unnamed frames reach EventSource.onmessage.
			if err := stream.WriteEvent("", payload); err != nil {
				h.logger.Debug("push stream write failed",
					"user_id", actor.UserID,
					"client_id", clientID,
					"error", err,
				)
				return
			}
		}
	}
}
