package websocket_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/websocket"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startFeed(t *testing.T) (*websocket.Hub, string) {
	t.Helper()
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	upgrader := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := websocket.NewClient(hub, conn, 3, r.URL.Query().Get("cred"))
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *ws.Conn {
	t.Helper()
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *ws.Conn) websocket.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg websocket.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_ConnectedThenBroadcast(t *testing.T) {
	hub, url := startFeed(t)
	first := dial(t, url)
	second := dial(t, url)

	clientIDs := map[uuid.UUID]bool{}
	for _, conn := range []*ws.Conn{first, second} {
		msg := readMessage(t, conn)
		require.Equal(t, websocket.MessageTypeConnected, msg.Type)
		var payload websocket.ConnectedPayload
		require.NoError(t, json.Unmarshal(msg.Payload, &payload))
		id, err := uuid.Parse(payload.ClientID)
		require.NoError(t, err)
		clientIDs[id] = true
		assert.Equal(t, domain.ID(3), payload.UserID)
	}
	assert.Len(t, clientIDs, 2, "each client gets its own id")
	assert.Equal(t, 2, hub.ClientCount())

	doc := domain.Document{ID: 4, ParentID: 0, Title: "nuevo", Children: []domain.ID{}}
	hub.Publish(domain.DocumentEvent{Type: domain.DocumentCreated, DocumentID: 4, Document: &doc, ActorID: 3})
	hub.Publish(domain.DocumentEvent{Type: domain.DocumentDeleted, DocumentID: 4, ActorID: 3})

	for _, conn := range []*ws.Conn{first, second} {
		created := readMessage(t, conn)
		assert.Equal(t, websocket.MessageTypeDocumentCreated, created.Type)
		var event domain.DocumentEvent
		require.NoError(t, json.Unmarshal(created.Payload, &event))
		require.NotNil(t, event.Document)
		assert.Equal(t, "nuevo", event.Document.Title)

		deleted := readMessage(t, conn)
		assert.Equal(t, websocket.MessageTypeDocumentDeleted, deleted.Type)
		assert.Greater(t, deleted.Seq, created.Seq)
	}
}

func TestHub_PingPong(t *testing.T) {
	_, url := startFeed(t)
	conn := dial(t, url)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "PING"}))
	assert.Equal(t, websocket.MessageTypePong, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "EDIT"}))
	assert.Equal(t, websocket.MessageTypeError, readMessage(t, conn).Type)
}

func TestHub_StopClosesClientsAndDropsEvents(t *testing.T) {
	hub, url := startFeed(t)
	conn := dial(t, url)
	readMessage(t, conn)

	hub.Stop()
	hub.Stop()

	hub.Publish(domain.DocumentEvent{Type: domain.DocumentDeleted, DocumentID: 1})
	assert.Equal(t, 0, hub.ClientCount())

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_DropsClientsThatLoseAuthorization(t *testing.T) {
	hub, url := startFeed(t)

	var mu sync.Mutex
	revoked := map[string]bool{}
	hub.SetAuthorizer(func(ctx context.Context, credential string) bool {
		mu.Lock()
		defer mu.Unlock()
		return credential != "" && !revoked[credential]
	})

	kept := dial(t, url+"?cred=kept")
	lost := dial(t, url+"?cred=lost")
	readMessage(t, kept)
	readMessage(t, lost)

	mu.Lock()
	revoked["lost"] = true
	mu.Unlock()

	doc := domain.Document{ID: 9, Title: "privado", Children: []domain.ID{}}
	hub.Publish(domain.DocumentEvent{Type: domain.DocumentCreated, DocumentID: 9, Document: &doc, ActorID: 3})

	assert.Equal(t, websocket.MessageTypeDocumentCreated, readMessage(t, kept).Type)

	lost.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := lost.ReadMessage()
	require.Error(t, err)
	assert.True(t, ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseNoStatusReceived, ws.CloseAbnormalClosure), "unexpected error %v", err)
	assert.Equal(t, 1, hub.ClientCount())
}
