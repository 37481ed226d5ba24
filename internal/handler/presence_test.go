package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"beps/internal/domain/models"
	notifModels "beps/internal/domain/models/notification"
	"beps/internal/service/notification"

	"github.com/gorilla/websocket"
)

func readFrame(t *testing.T, conn *websocket.Conn) notifModels.ServerFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame notifModels.ServerFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

// tokenSubjects accepts only the listed tokens.
type tokenSubjects map[string]string

func (v tokenSubjects) VerifyToken(token string) (*models.TokenClaims, error) {
	sub, ok := v[token]
	if !ok {
		return nil, errors.New("token is malformed")
	}
	claims := &models.TokenClaims{}
	claims.Subject = sub
	return claims, nil
}

func TestPresenceSocket(t *testing.T) {
	hub := notification.NewPresenceHub(tokenSubjects{"alice-token": "alice"}, nil, time.Minute, discardLogger())
	h := NewPresenceHandler(hub, []string{"http://localhost:3000"}, 1<<20, discardLogger())
	srv := httptest.NewServer(http.HandlerFunc(h.Serve))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer first.Close()

	if f := readFrame(t, first); f.Type != notifModels.FrameUserCount {
		t.Fatalf("first frame = %+v", f)
	}

	if err := first.WriteJSON(notifModels.ClientFrame{Type: notifModels.FrameAddUser, UserID: "Alice", Token: "alice-token"}); err != nil {
		t.Fatal(err)
	}
	f := readFrame(t, first)
	if f.Type != notifModels.FrameUserCount || f.Count == nil || *f.Count != 1 {
		t.Fatalf("after add_user = %+v", f)
	}

	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer second.Close()
	readFrame(t, second)

	if err := second.WriteJSON(notifModels.ClientFrame{Type: notifModels.FrameVerifyUserExists, UserID: "alice"}); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(t, first); f.Type != notifModels.FrameDuplicateLogin {
		t.Fatalf("holder frame = %+v", f)
	}
}

func TestPresenceSocketRejectsForgedClaim(t *testing.T) {
	hub := notification.NewPresenceHub(tokenSubjects{"alice-token": "alice"}, nil, time.Minute, discardLogger())
	h := NewPresenceHandler(hub, []string{"http://localhost:3000"}, 1<<20, discardLogger())
	srv := httptest.NewServer(http.HandlerFunc(h.Serve))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readFrame(t, conn)

	if err := conn.WriteJSON(notifModels.ClientFrame{Type: notifModels.FrameAddUser, UserID: "alice", Token: "forged"}); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(t, conn); f.Type != notifModels.FrameInvalidToken {
		t.Fatalf("frame = %+v, want invalid_token", f)
	}
	if got := hub.ActiveUsers(); len(got) != 0 {
		t.Errorf("active users = %v, want none", got)
	}
}

func TestPresenceRejectsForeignOrigin(t *testing.T) {
	hub := notification.NewPresenceHub(nil, nil, time.Minute, discardLogger())
	h := NewPresenceHandler(hub, []string{"http://localhost:3000"}, 1<<20, discardLogger())
	srv := httptest.NewServer(http.HandlerFunc(h.Serve))
	defer srv.Close()

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("response = %v", resp)
	}
}
