package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func newTestPeer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(server.Close)
	return strings.Replace(server.URL, "http", "ws", 1)
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Errorf("peer read failed: %v", err)
		return nil
	}
	envelope := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		t.Errorf("peer could not decode payload: %v", err)
	}
	return envelope
}

func envelopeType(envelope map[string]json.RawMessage) string {
	var eventType string
	json.Unmarshal(envelope["type"], &eventType)
	return eventType
}

func TestConnectSendsConfigurationBeforeAnythingElse(t *testing.T) {
	firstType := make(chan string, 1)
	voice := make(chan string, 1)

	url := newTestPeer(t, func(conn *websocket.Conn) {
		envelope := readEnvelope(t, conn)
		firstType <- envelopeType(envelope)

		var session struct {
			Voice string `json:"voice"`
		}
		json.Unmarshal(envelope["session"], &session)
		voice <- session.Voice

		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	cfg := NewConfig(WithVoice("alloy"), WithTranscription("whisper-1", "ja"))
	session, err := Connect(context.Background(), url, cfg)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer session.Close()

	if got := <-firstType; got != TypeSessionUpdate {
		t.Fatalf("expected %s first, got %s", TypeSessionUpdate, got)
	}
	if got := <-voice; got != "alloy" {
		t.Fatalf("expected configured voice, got %q", got)
	}
	if session.State() != StateOpen {
		t.Fatalf("expected open session, got %s", session.State())
	}
}

func TestReceiveYieldsEventsInArrivalOrderWithIncreasingSeq(t *testing.T) {
	url := newTestPeer(t, func(conn *websocket.Conn) {
		readEnvelope(t, conn) // session.update

		for _, delta := range []string{"one", "two", "three"} {
			payload, _ := json.Marshal(ServerEvent{Type: TypeResponseTextDelta, Delta: delta})
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	session, err := Connect(context.Background(), url, NewConfig())
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var lastSeq int64
	for i, expected := range []string{"one", "two", "three"} {
		event, err := session.Receive(ctx)
		if err != nil {
			t.Fatalf("receive %d failed: %v", i, err)
		}
		if event.Delta != expected {
			t.Fatalf("expected delta %q at position %d, got %q", expected, i, event.Delta)
		}
		if event.Seq <= lastSeq {
			t.Fatalf("sequence numbers not strictly increasing: %d after %d", event.Seq, lastSeq)
		}
		lastSeq = event.Seq
	}
}

func TestCloseIsIdempotentAndStopsSends(t *testing.T) {
	url := newTestPeer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	session, err := Connect(context.Background(), url, NewConfig())
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	if err := session.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if session.State() != StateClosed {
		t.Fatalf("expected closed state, got %s", session.State())
	}

	err = session.Send(context.Background(), ResponseCreateEvent{})
	var connErr *ConnectionError
	if !errors.As(err, &connErr) || !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected session-closed connection error, got %v", err)
	}
}

func TestCloseFlushesQueuedOutboundEvents(t *testing.T) {
	received := make(chan string, 8)
	url := newTestPeer(t, func(conn *websocket.Conn) {
		for {
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			envelope := map[string]json.RawMessage{}
			json.Unmarshal(payload, &envelope)
			received <- envelopeType(envelope)
		}
	})

	session, err := Connect(context.Background(), url, NewConfig())
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}

	if err := session.CreateItem(context.Background(), NewUserTextItem("flush me")); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	session.Close()

	seen := map[string]bool{}
	deadline := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case eventType := <-received:
			seen[eventType] = true
		case <-deadline:
			t.Fatalf("peer saw only %v before close", seen)
		}
	}
	if !seen[TypeConversationItemCreate] {
		t.Fatalf("queued item was not flushed on close")
	}
}

func TestDialFailureReturnsConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	_, err := Connect(context.Background(), strings.Replace(server.URL, "http", "ws", 1), NewConfig())
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
	if connErr.Op != "dial" {
		t.Fatalf("expected dial failure, got %q", connErr.Op)
	}
}

func TestPeerDisconnectSurfacesConnectionError(t *testing.T) {
	url := newTestPeer(t, func(conn *websocket.Conn) {
		readEnvelope(t, conn)
		// Abrupt teardown without a close handshake.
		conn.Close()
	})

	session, err := Connect(context.Background(), url, NewConfig())
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for {
		_, err := session.Receive(ctx)
		if err == nil {
			continue
		}
		var connErr *ConnectionError
		if !errors.As(err, &connErr) {
			t.Fatalf("expected ConnectionError after peer disconnect, got %v", err)
		}
		return
	}
}
