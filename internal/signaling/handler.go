package signaling

import "encoding/json"

// RoomEvent is delivered once the server confirms room membership: the
// room, the identity the server assigned us, and the members already
// present.
type RoomEvent struct {
	RoomID string
	Self   string
	Peers  []PeerInfo
}

// Handler routes incoming signaling messages to appropriate channels.
type Handler struct {
	client      *Client
	RoomCreated chan *RoomEvent
	JoinSuccess chan *RoomEvent
	PeerJoined  chan *PeerInfo
	PeerLeft    chan string
	Signal      chan *Signal
	Error       chan string
	closed      bool
}

// NewHandler creates a new message handler.
func NewHandler(client *Client) *Handler {
	return &Handler{
		client:      client,
		RoomCreated: make(chan *RoomEvent, 1),
		JoinSuccess: make(chan *RoomEvent, 1),
		PeerJoined:  make(chan *PeerInfo, 8),
		PeerLeft:    make(chan string, 8),
		Signal:      make(chan *Signal, 32),
		Error:       make(chan string, 1),
	}
}

// Start begins listening to incoming messages and routing them.
func (h *Handler) Start() {
	for msg := range h.client.Incoming() {

		switch msg.Type {

		case MessageTypeRoomCreated:
			h.handleRoomCreated(msg)

		case MessageTypeJoinSuccess:
			h.handleJoinSuccess(msg)

		case MessageTypePeerJoined:
			h.handlePeerJoined(msg)

		case MessageTypePeerLeft:
			h.PeerLeft <- msg.From

		case MessageTypeSignal:
			h.handleSignal(msg)

		case MessageTypeError:
			h.handleError(msg)

		default:

		}
	}
}

// handleRoomCreated records the assigned identity and forwards the room info.
func (h *Handler) handleRoomCreated(msg *Message) {
	h.RoomCreated <- h.roomEvent(msg)
}

// handleJoinSuccess is called when we successfully joined a room.
func (h *Handler) handleJoinSuccess(msg *Message) {
	h.JoinSuccess <- h.roomEvent(msg)
}

func (h *Handler) roomEvent(msg *Message) *RoomEvent {
	var info JoinInfo
	if msg.Payload != nil {
		json.Unmarshal(msg.Payload, &info)
	}
	if info.ID != "" {
		h.client.SetLocalID(info.ID)
	}
	return &RoomEvent{
		RoomID: msg.RoomID,
		Self:   info.ID,
		Peers:  info.Peers,
	}
}

// handlePeerJoined is called when a peer joins our room.
func (h *Handler) handlePeerJoined(msg *Message) {
	var peerInfo PeerInfo
	if msg.Payload != nil {
		json.Unmarshal(msg.Payload, &peerInfo)
	}

	h.PeerJoined <- &peerInfo
}

// handleSignal parses the WebRTC negotiation payload and forwards it
// together with its addressing for the orchestrator to route.
func (h *Handler) handleSignal(msg *Message) {
	var payload SignalPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		h.Error <- "Failed to parse signal payload"
		return
	}

	h.Signal <- &Signal{
		From:    msg.From,
		To:      msg.To,
		Payload: payload,
	}
}

// handleError parses the error message and sends it through the Error channel.
func (h *Handler) handleError(msg *Message) {
	var errPayload ErrorPayload

	if err := json.Unmarshal(msg.Payload, &errPayload); err != nil {
		h.Error <- "Unknown error from server"
		return
	}

	h.Error <- errPayload.Error
}

// Close closes all handler channels.
func (h *Handler) Close() {
	if h.closed {
		return
	}
	h.closed = true

	close(h.RoomCreated)
	close(h.JoinSuccess)
	close(h.PeerJoined)
	close(h.PeerLeft)
	close(h.Signal)
	close(h.Error)
}
