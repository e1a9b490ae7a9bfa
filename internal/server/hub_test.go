package server

import (
	"encoding/json"
	"strings"
	"testing"
)

// Tests drive the hub synchronously through handleMessage/removeClient,
// which is exactly what Run does per event.

func newTestClient(hub *Hub, addr string) *Client {
	return &Client{
		Hub:  hub,
		Send: make(chan *Message, 16),
		addr: addr,
	}
}

func recv(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case msg := <-c.Send:
		return msg
	default:
		t.Fatal("expected a message, got none")
		return nil
	}
}

func noMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.Send:
		t.Fatalf("unexpected message: %+v", msg)
	default:
	}
}

func createTestRoom(t *testing.T, hub *Hub, host *Client) string {
	t.Helper()
	hub.handleMessage(&Message{Type: TypeCreateRoom, ClientType: "cli", client: host})

	msg := recv(t, host)
	if msg.Type != TypeRoomCreated {
		t.Fatalf("got %q, want room_created", msg.Type)
	}
	var info JoinInfo
	if err := json.Unmarshal(msg.Payload, &info); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if info.ID == "" || info.ID != host.ID {
		t.Fatalf("host identity not assigned: payload=%q client=%q", info.ID, host.ID)
	}
	return msg.RoomID
}

func joinTestRoom(t *testing.T, hub *Hub, roomID string, viewer *Client) JoinInfo {
	t.Helper()
	hub.handleMessage(&Message{Type: TypeJoinRoom, RoomID: roomID, ClientType: "cli", client: viewer})

	msg := recv(t, viewer)
	if msg.Type != TypeJoinSuccess {
		t.Fatalf("got %q, want join_success", msg.Type)
	}
	if msg.RoomID != roomID {
		t.Fatalf("join_success room = %q, want %q", msg.RoomID, roomID)
	}
	var info JoinInfo
	if err := json.Unmarshal(msg.Payload, &info); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	return info
}

func TestCreateRoomAssignsMemorableID(t *testing.T) {
	hub := NewHub()
	host := newTestClient(hub, "host")

	roomID := createTestRoom(t, hub, host)

	if parts := strings.Split(roomID, "-"); len(parts) != 4 {
		t.Errorf("room ID %q is not four words", roomID)
	}
	if hub.Rooms[roomID] == nil {
		t.Fatal("room not registered")
	}
	if hub.Rooms[roomID].HostID != host.ID {
		t.Error("room host not recorded")
	}
}

func TestJoinRoomNotifiesEveryone(t *testing.T) {
	hub := NewHub()
	host := newTestClient(hub, "host")
	v1 := newTestClient(hub, "v1")
	v2 := newTestClient(hub, "v2")

	roomID := createTestRoom(t, hub, host)

	info := joinTestRoom(t, hub, roomID, v1)
	if len(info.Peers) != 1 || info.Peers[0].ID != host.ID {
		t.Errorf("v1 roster = %+v, want just the host", info.Peers)
	}
	joined := recv(t, host)
	if joined.Type != TypePeerJoined || joined.From != v1.ID {
		t.Errorf("host got %q from %q, want peer_joined from v1", joined.Type, joined.From)
	}

	// Second viewer: both existing members hear about it.
	info = joinTestRoom(t, hub, roomID, v2)
	if len(info.Peers) != 2 {
		t.Errorf("v2 roster has %d members, want 2", len(info.Peers))
	}
	if msg := recv(t, host); msg.Type != TypePeerJoined || msg.From != v2.ID {
		t.Errorf("host missed v2's join")
	}
	if msg := recv(t, v1); msg.Type != TypePeerJoined || msg.From != v2.ID {
		t.Errorf("v1 missed v2's join")
	}
}

func TestJoinUnknownRoomFails(t *testing.T) {
	hub := NewHub()
	viewer := newTestClient(hub, "v1")

	hub.handleMessage(&Message{Type: TypeJoinRoom, RoomID: "no-such-room", client: viewer})

	msg := recv(t, viewer)
	if msg.Type != TypeError {
		t.Fatalf("got %q, want error", msg.Type)
	}
}

func TestSignalBroadcastsExceptSender(t *testing.T) {
	hub := NewHub()
	host := newTestClient(hub, "host")
	v1 := newTestClient(hub, "v1")
	v2 := newTestClient(hub, "v2")

	roomID := createTestRoom(t, hub, host)
	joinTestRoom(t, hub, roomID, v1)
	recv(t, host) // peer_joined
	joinTestRoom(t, hub, roomID, v2)
	recv(t, host)
	recv(t, v1)

	hub.handleMessage(&Message{
		Type:    TypeSignal,
		From:    "spoofed-identity",
		Payload: json.RawMessage(`{"kind":"offer","sdp":"v=0"}`),
		client:  v1,
	})

	for _, member := range []*Client{host, v2} {
		msg := recv(t, member)
		if msg.Type != TypeSignal {
			t.Fatalf("member got %q, want signal", msg.Type)
		}
		if msg.From != v1.ID {
			t.Errorf("From = %q, want server-stamped %q", msg.From, v1.ID)
		}
	}
	noMessage(t, v1)
}

func TestSignalAddressedToOneMember(t *testing.T) {
	hub := NewHub()
	host := newTestClient(hub, "host")
	v1 := newTestClient(hub, "v1")
	v2 := newTestClient(hub, "v2")

	roomID := createTestRoom(t, hub, host)
	joinTestRoom(t, hub, roomID, v1)
	recv(t, host)
	joinTestRoom(t, hub, roomID, v2)
	recv(t, host)
	recv(t, v1)

	hub.handleMessage(&Message{
		Type:    TypeSignal,
		To:      v1.ID,
		Payload: json.RawMessage(`{"kind":"answer","sdp":"v=0"}`),
		client:  host,
	})

	msg := recv(t, v1)
	if msg.Type != TypeSignal || msg.From != host.ID || msg.To != v1.ID {
		t.Errorf("v1 got %+v, want addressed signal from host", msg)
	}
	noMessage(t, v2)
	noMessage(t, host)
}

func TestSignalOutsideRoomRejected(t *testing.T) {
	hub := NewHub()
	loner := newTestClient(hub, "loner")

	hub.handleMessage(&Message{Type: TypeSignal, client: loner})

	if msg := recv(t, loner); msg.Type != TypeError {
		t.Fatalf("got %q, want error", msg.Type)
	}
}

func TestLeaveNotifiesAndDeletesEmptyRoom(t *testing.T) {
	hub := NewHub()
	host := newTestClient(hub, "host")
	v1 := newTestClient(hub, "v1")

	roomID := createTestRoom(t, hub, host)
	joinTestRoom(t, hub, roomID, v1)
	recv(t, host)

	hub.removeClient(v1)
	msg := recv(t, host)
	if msg.Type != TypePeerLeft || msg.From != v1.ID {
		t.Errorf("host got %q from %q, want peer_left from v1", msg.Type, msg.From)
	}
	if hub.Rooms[roomID] == nil {
		t.Fatal("room deleted while host still present")
	}

	hub.removeClient(host)
	if hub.Rooms[roomID] != nil {
		t.Error("empty room not deleted")
	}
}
