package signaling

import "encoding/json"

// Message represents all WebSocket messages between CLI and server.
// From and To carry peer identities on the room broadcast bus: From is
// stamped by the server on relayed signals, To (when set) restricts
// delivery to a single room member.
type Message struct {
	Type       string          `json:"type"`
	RoomID     string          `json:"room_id,omitempty"`
	From       string          `json:"from,omitempty"`
	To         string          `json:"to,omitempty"`
	ClientType string          `json:"client_type,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Message type constants.
const (
	MessageTypeCreateRoom = "create_room"
	MessageTypeJoinRoom   = "join_room"
	MessageTypeSignal     = "signal"

	MessageTypeRoomCreated = "room_created"
	MessageTypeJoinSuccess = "join_success"
	MessageTypePeerJoined  = "peer_joined"
	MessageTypePeerLeft    = "peer_left"
	MessageTypeError       = "error"
)

// Signal kinds carried inside a "signal" message payload.
const (
	SignalKindOffer     = "offer"
	SignalKindAnswer    = "answer"
	SignalKindCandidate = "ice-candidate"
)

// SignalPayload represents the WebRTC negotiation data relayed between
// peers: an SDP offer/answer or a JSON-encoded ICE candidate.
type SignalPayload struct {
	Kind      string          `json:"kind"`
	SDP       string          `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// Signal is a decoded "signal" message together with its addressing.
type Signal struct {
	From    string
	To      string
	Payload SignalPayload
}

// PeerInfo identifies a room member.
type PeerInfo struct {
	ID         string `json:"id"`
	ClientType string `json:"client_type,omitempty"`
}

// JoinInfo is the join_success payload: the joiner's assigned identity
// plus the members already present in the room.
type JoinInfo struct {
	ID    string     `json:"id"`
	Peers []PeerInfo `json:"peers,omitempty"`
}

// ErrorPayload represents error messages from server.
type ErrorPayload struct {
	Error string `json:"error"`
}

// NewSignalMessage builds an addressed "signal" message ready to publish.
func NewSignalMessage(to string, payload SignalPayload) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:    MessageTypeSignal,
		To:      to,
		Payload: raw,
	}, nil
}
