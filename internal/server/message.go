package server

import "encoding/json"

// Message is the wire format shared with the CLI (see the signaling
// package). The server stamps From on relayed signals so receivers can
// attribute them; To restricts relay to one room member.
type Message struct {
	Type       string          `json:"type"`
	RoomID     string          `json:"room_id,omitempty"`
	From       string          `json:"from,omitempty"`
	To         string          `json:"to,omitempty"`
	ClientType string          `json:"client_type,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`

	// client is the connection the message arrived on. Hub-internal,
	// never serialized.
	client *Client
}

// Client-to-server message types.
const (
	TypeCreateRoom = "create_room"
	TypeJoinRoom   = "join_room"
	TypeSignal     = "signal"
)

// Server-to-client message types.
const (
	TypeRoomCreated = "room_created"
	TypeJoinSuccess = "join_success"
	TypePeerJoined  = "peer_joined"
	TypePeerLeft    = "peer_left"
	TypeError       = "error"
)

// PeerInfo describes one room member in payloads.
type PeerInfo struct {
	ID         string `json:"id"`
	ClientType string `json:"client_type,omitempty"`
}

// JoinInfo is the room_created/join_success payload: the assigned
// identity plus the members already present.
type JoinInfo struct {
	ID    string     `json:"id"`
	Peers []PeerInfo `json:"peers,omitempty"`
}

func errorMessage(text string) *Message {
	payload, _ := json.Marshal(map[string]string{"error": text})
	return &Message{Type: TypeError, Payload: payload}
}
