package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   nil,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, "alice")
	c2 := mockClient(hub, "bob")

	hub.Register(c1)
	hub.Register(c2)

	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients, got %d", got)
	}

	hub.Unregister(c1)

	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client after unregister, got %d", got)
	}

	hub.Unregister(c2)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, "alice")
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestSendToUser(t *testing.T) {
	hub := NewHub(slog.Default())

	a1 := mockClient(hub, "alice")
	a2 := mockClient(hub, "alice")
	b := mockClient(hub, "bob")
	hub.Register(a1)
	hub.Register(a2)
	hub.Register(b)

	hub.SendToUser("alice", NewMessage("reminder", "created", "rem-1", map[string]any{"response_id": "resp-1"}))

	for _, c := range []*Client{a1, a2} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "reminder_created" {
				t.Errorf("expected type reminder_created, got %s", got.Type)
			}
			if got.ID != "rem-1" {
				t.Errorf("expected id rem-1, got %s", got.ID)
			}
			if got.Extra["response_id"] != "resp-1" {
				t.Errorf("extra = %v", got.Extra)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	select {
	case <-b.send:
		t.Error("another user's client received the message")
	default:
	}

	hub.Unregister(a1)
	hub.Unregister(a2)
	hub.Unregister(b)
}

func TestSendToUserNoClients(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.SendToUser("nobody", NewMessage("reminder", "deleted", "rem-1", nil))
}

func TestSendFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, "alice")
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.SendToUser("alice", NewMessage("reminder", "updated", "fill", nil))
	}

	// This should drop the message, not panic or block
	hub.SendToUser("alice", NewMessage("reminder", "updated", "dropped", nil))

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("reminder", "updated", "rem-5", nil)
	if msg.Type != "reminder_updated" {
		t.Errorf("expected type reminder_updated, got %s", msg.Type)
	}
	if msg.Entity != "reminder" {
		t.Errorf("expected entity reminder, got %s", msg.Entity)
	}
	if msg.Action != "updated" {
		t.Errorf("expected action updated, got %s", msg.Action)
	}
	if msg.ID != "rem-5" {
		t.Errorf("expected id rem-5, got %s", msg.ID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := "alice"
			if i%2 == 0 {
				user = "bob"
			}
			c := mockClient(hub, user)
			hub.Register(c)
			hub.SendToUser(user, NewMessage("reminder", "created", "x", nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(i)
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
