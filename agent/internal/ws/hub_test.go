package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obsidianstack/rateboost/pkg/types"
	wsHub "github.com/obsidianstack/rateboost/agent/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

// fakeSource is a mutable Source for tests.
type fakeSource struct {
	mu   sync.Mutex
	atts []types.AttachmentStatus
}

func (f *fakeSource) Snapshot() types.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.Snapshot{
		GeneratedAt: time.Now().UTC(),
		Attachments: append([]types.AttachmentStatus{}, f.atts...),
	}
}

func (f *fakeSource) add(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.atts = append(f.atts, types.AttachmentStatus{ID: id, Target: "scene/" + id, Factor: 6})
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
func startHub(t *testing.T, src wsHub.Source) (wsURL string, hub *wsHub.Hub) {
	t.Helper()

	hub = wsHub.New(src, testInterval)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	return "ws" + strings.TrimPrefix(srv.URL, "http"), hub
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads and decodes one message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) wsHub.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m wsHub.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v (raw: %s)", err, raw)
	}
	return m
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateSnapshot(t *testing.T) {
	src := &fakeSource{}
	src.add("a")
	wsURL, _ := startHub(t, src)

	m := readMessage(t, dial(t, wsURL))
	if m.Event != wsHub.EventSnapshot {
		t.Errorf("event: got %q, want snapshot", m.Event)
	}
	if m.Data.GeneratedAt.IsZero() {
		t.Error("generated_at: missing")
	}
	if len(m.Data.Attachments) != 1 || m.Data.Attachments[0].ID != "a" {
		t.Errorf("attachments: got %+v", m.Data.Attachments)
	}
}

func TestHub_CountClients(t *testing.T) {
	wsURL, hub := startHub(t, &fakeSource{})

	conns := make([]*websocket.Conn, 0, 3)
	for i := 0; i < 3; i++ {
		conn := dial(t, wsURL)
		readMessage(t, conn) // consume initial message
		conns = append(conns, conn)
	}

	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}

	conns[0].Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close

	if n := hub.Count(); n != 2 {
		t.Errorf("Count after disconnect: got %d, want 2", n)
	}
}

func TestHub_ReceivesBroadcastOnTick(t *testing.T) {
	src := &fakeSource{}
	wsURL, _ := startHub(t, src)

	conn := dial(t, wsURL)
	if m := readMessage(t, conn); len(m.Data.Attachments) != 0 {
		t.Fatalf("initial attachments: got %d, want 0", len(m.Data.Attachments))
	}

	src.add("late")

	// Broadcasts keep coming; the first one after add must carry it.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m := readMessage(t, conn)
		if len(m.Data.Attachments) == 1 && m.Data.Attachments[0].ID == "late" {
			return
		}
	}
	t.Fatal("no broadcast carried the new attachment")
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	src := &fakeSource{}
	hub := wsHub.New(src, testInterval)
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	conn := dial(t, "ws"+strings.TrimPrefix(srv.URL, "http"))
	readMessage(t, conn)

	cancel()
	<-done

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after shutdown: got %d, want 0", n)
	}
}
