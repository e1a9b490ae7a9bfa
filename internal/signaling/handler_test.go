package signaling

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestHandler() (*Client, *Handler) {
	client := &Client{
		incoming: make(chan *Message, 8),
		outgoing: make(chan *Message, 8),
		done:     make(chan struct{}, 1),
	}
	handler := NewHandler(client)
	go handler.Start()
	return client, handler
}

func waitRoomEvent(t *testing.T, ch chan *RoomEvent) *RoomEvent {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for room event")
		return nil
	}
}

func TestRoomCreatedRecordsIdentity(t *testing.T) {
	client, handler := newTestHandler()

	payload, _ := json.Marshal(JoinInfo{ID: "peer-42"})
	client.incoming <- &Message{
		Type:    MessageTypeRoomCreated,
		RoomID:  "kitten-waffle-stardust-happy",
		Payload: payload,
	}

	event := waitRoomEvent(t, handler.RoomCreated)
	if event.RoomID != "kitten-waffle-stardust-happy" {
		t.Errorf("RoomID = %q", event.RoomID)
	}
	if event.Self != "peer-42" {
		t.Errorf("Self = %q, want peer-42", event.Self)
	}
	if client.LocalID() != "peer-42" {
		t.Errorf("client LocalID = %q, want peer-42", client.LocalID())
	}
}

func TestJoinSuccessCarriesRoster(t *testing.T) {
	client, handler := newTestHandler()

	payload, _ := json.Marshal(JoinInfo{
		ID:    "peer-2",
		Peers: []PeerInfo{{ID: "peer-1", ClientType: "cli"}},
	})
	client.incoming <- &Message{
		Type:    MessageTypeJoinSuccess,
		RoomID:  "room-x",
		Payload: payload,
	}

	event := waitRoomEvent(t, handler.JoinSuccess)
	if event.Self != "peer-2" {
		t.Errorf("Self = %q, want peer-2", event.Self)
	}
	if len(event.Peers) != 1 || event.Peers[0].ID != "peer-1" {
		t.Errorf("Peers = %+v, want peer-1", event.Peers)
	}
}

func TestSignalRoutingKeepsAddressing(t *testing.T) {
	client, handler := newTestHandler()

	payload, _ := json.Marshal(SignalPayload{Kind: SignalKindOffer, SDP: "v=0"})
	client.incoming <- &Message{
		Type:    MessageTypeSignal,
		From:    "peer-1",
		To:      "peer-2",
		Payload: payload,
	}

	select {
	case sig := <-handler.Signal:
		if sig.From != "peer-1" || sig.To != "peer-2" {
			t.Errorf("addressing lost: from=%q to=%q", sig.From, sig.To)
		}
		if sig.Payload.Kind != SignalKindOffer || sig.Payload.SDP != "v=0" {
			t.Errorf("payload lost: %+v", sig.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for signal")
	}
}

func TestPeerLeftCarriesSender(t *testing.T) {
	client, handler := newTestHandler()

	client.incoming <- &Message{Type: MessageTypePeerLeft, From: "peer-9"}

	select {
	case peerID := <-handler.PeerLeft:
		if peerID != "peer-9" {
			t.Errorf("PeerLeft = %q, want peer-9", peerID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for peer_left")
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	client, handler := newTestHandler()

	payload, _ := json.Marshal(ErrorPayload{Error: "Room not found"})
	client.incoming <- &Message{Type: MessageTypeError, Payload: payload}

	select {
	case errMsg := <-handler.Error:
		if errMsg != "Room not found" {
			t.Errorf("error = %q", errMsg)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error")
	}
}
