package testutil

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/dom/doctree/internal/domain"
	"github.com/dom/doctree/internal/websocket"
	gorillaWS "github.com/gorilla/websocket"
)

// WSClient is a test WebSocket client
type WSClient struct {
	t        *testing.T
	conn     *gorillaWS.Conn
	messages chan *websocket.Message
	errors   chan error
	done     chan struct{}
	mu       sync.Mutex
}

// NewWSClient creates a new WebSocket test client
func NewWSClient(t *testing.T, url string) *WSClient {
	t.Helper()

	client, resp, err := DialWS(url)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("failed to connect to websocket (status %d): %v", status, err)
	}
	client.t = t

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

// DialWS connects without failing the test, so callers can assert on a
// rejected handshake.
func DialWS(url string) (*WSClient, *http.Response, error) {
	dialer := *gorillaWS.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, resp, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, resp, err
	}

	client := &WSClient{
		conn:     conn,
		messages: make(chan *websocket.Message, 100),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
	}
	go client.readPump()
	return client, resp, nil
}

// readPump reads messages from the WebSocket connection
func (c *WSClient) readPump() {
	defer close(c.messages)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			case c.errors <- err:
			}
			return
		}

		var msg websocket.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			select {
			case c.errors <- err:
			default:
			}
			continue
		}

		select {
		case c.messages <- &msg:
		case <-c.done:
			return
		}
	}
}

// Close closes the WebSocket connection gracefully
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}

// Ping sends a PING message to the server
func (c *WSClient) Ping() {
	c.t.Helper()

	data, err := json.Marshal(map[string]string{"type": string(websocket.MessageTypePing)})
	if err != nil {
		c.t.Fatalf("failed to marshal ping: %v", err)
	}

	c.mu.Lock()
	err = c.conn.WriteMessage(gorillaWS.TextMessage, data)
	c.mu.Unlock()

	if err != nil {
		c.t.Fatalf("failed to send ping: %v", err)
	}
}

// ExpectMessage waits for a message of the specified type
func (c *WSClient) ExpectMessage(msgType websocket.MessageType, timeout time.Duration) *websocket.Message {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case msg := <-c.messages:
			if msg == nil {
				c.t.Fatalf("connection closed while waiting for %s", msgType)
			}
			if msg.Type == msgType {
				return msg
			}
		case err := <-c.errors:
			c.t.Fatalf("error while waiting for %s: %v", msgType, err)
		case <-deadline:
			c.t.Fatalf("timeout waiting for message type %s", msgType)
		}
	}
}

// ExpectDocumentEvent waits for and decodes a document change of msgType
func (c *WSClient) ExpectDocumentEvent(msgType websocket.MessageType, timeout time.Duration) *domain.DocumentEvent {
	c.t.Helper()

	msg := c.ExpectMessage(msgType, timeout)

	var event domain.DocumentEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		c.t.Fatalf("failed to decode document event: %v", err)
	}
	return &event
}

// ExpectClosed waits for the server to close the connection. Receiving a
// document change first fails the test.
func (c *WSClient) ExpectClosed(timeout time.Duration) {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case msg, ok := <-c.messages:
			if !ok || msg == nil {
				return
			}
			switch msg.Type {
			case websocket.MessageTypeDocumentCreated, websocket.MessageTypeDocumentUpdated, websocket.MessageTypeDocumentDeleted:
				c.t.Fatalf("received %s before the connection closed", msg.Type)
			}
		case <-c.errors:
			return
		case <-deadline:
			c.t.Fatalf("timeout waiting for the connection to close")
		}
	}
}

// ExpectNoMessage verifies no messages are received within timeout
func (c *WSClient) ExpectNoMessage(timeout time.Duration) {
	c.t.Helper()

	select {
	case msg := <-c.messages:
		if msg != nil {
			c.t.Fatalf("unexpected message received: %s", msg.Type)
		}
	case <-time.After(timeout):
		// Expected - no message received
	}
}
