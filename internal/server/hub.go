package server

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/google/uuid"
)

// Hub is the central brain of the signaling relay. It owns all rooms
// and clients, and a single Run goroutine serializes every mutation.
type Hub struct {
	// Rooms maps room IDs to Room instances.
	Rooms map[string]*Room

	// Register announces new connections.
	Register chan *Client

	// Unregister announces closed connections.
	Unregister chan *Client

	// Inbound carries every client message for the hub to process.
	Inbound chan *Message
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]*Room),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan *Message),
	}
}

// generateRoomID creates a random, memorable room ID using word
// combinations, e.g. "kitten-waffle-stardust-happy".
func (h *Hub) generateRoomID() string {
	allWords := [][]string{animals, dishes, names, randomWords, adjectives, extras}

	for {
		// Pick 4 distinct word lists, then one word from each.
		usedLists := make(map[int]bool)
		words := make([]string, 0, 4)
		for len(words) < 4 {
			listIndex := randomIndex(len(allWords))
			if usedLists[listIndex] {
				continue
			}
			usedLists[listIndex] = true
			list := allWords[listIndex]
			words = append(words, list[randomIndex(len(list))])
		}

		id := fmt.Sprintf("%s-%s-%s-%s", words[0], words[1], words[2], words[3])
		if _, ok := h.Rooms[id]; !ok {
			return id
		}
	}
}

// randomIndex returns a cryptographically secure random index for a slice of given length.
func randomIndex(max int) int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(fmt.Sprintf("failed to generate random index: %v", err))
	}
	return int(n.Int64())
}

// Run starts the hub's main processing loop. This is the single
// goroutine that safely manages all state.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			// Not in a room yet; create_room or join_room comes next.
			slog.Debug("client registered", "addr", client.addr)

		case client := <-h.Unregister:
			h.removeClient(client)

		case message := <-h.Inbound:
			h.handleMessage(message)
		}
	}
}

func (h *Hub) handleMessage(message *Message) {
	switch message.Type {
	case TypeCreateRoom:
		h.createRoom(message)
	case TypeJoinRoom:
		h.joinRoom(message)
	case TypeSignal:
		h.relaySignal(message)
	default:
		slog.Warn("unknown message type", "type", message.Type, "addr", message.client.addr)
	}
}

func (h *Hub) createRoom(message *Message) {
	client := message.client
	client.ClientType = message.ClientType
	client.ID = uuid.NewString()

	roomID := h.generateRoomID()
	room := newRoom(roomID)
	room.HostID = client.ID
	room.Members[client.ID] = client
	h.Rooms[roomID] = room
	client.RoomID = roomID

	slog.Info("room created", "room", roomID, "host", client.ID, "addr", client.addr)

	payload, _ := json.Marshal(JoinInfo{ID: client.ID})
	client.deliver(&Message{
		Type:    TypeRoomCreated,
		RoomID:  roomID,
		Payload: payload,
	})
}

func (h *Hub) joinRoom(message *Message) {
	client := message.client
	client.ClientType = message.ClientType

	room, ok := h.Rooms[message.RoomID]
	if !ok {
		slog.Warn("join failed, room not found", "room", message.RoomID, "addr", client.addr)
		client.deliver(errorMessage("Room not found"))
		return
	}

	client.ID = uuid.NewString()
	client.RoomID = room.ID

	// Tell the existing members first, then hand the joiner the roster.
	joinedPayload, _ := json.Marshal(PeerInfo{ID: client.ID, ClientType: client.ClientType})
	for _, member := range room.Members {
		member.deliver(&Message{
			Type:    TypePeerJoined,
			RoomID:  room.ID,
			From:    client.ID,
			Payload: joinedPayload,
		})
	}

	successPayload, _ := json.Marshal(JoinInfo{ID: client.ID, Peers: room.peers(client.ID)})
	room.Members[client.ID] = client
	client.deliver(&Message{
		Type:    TypeJoinSuccess,
		RoomID:  room.ID,
		Payload: successPayload,
	})

	slog.Info("client joined room", "room", room.ID, "peer", client.ID, "addr", client.addr)
}

// relaySignal forwards a negotiation message inside the sender's room.
// From is always stamped server-side so clients cannot spoof identity.
// A To-addressed signal goes to that one member; otherwise it fans out
// to everyone except the sender.
func (h *Hub) relaySignal(message *Message) {
	client := message.client

	if client.RoomID == "" {
		client.deliver(errorMessage("You must join a room first"))
		return
	}
	room, ok := h.Rooms[client.RoomID]
	if !ok {
		client.deliver(errorMessage("Room not found"))
		return
	}

	message.From = client.ID

	if message.To != "" {
		target, ok := room.Members[message.To]
		if !ok {
			slog.Debug("signal target not in room", "room", room.ID, "to", message.To)
			return
		}
		target.deliver(message)
		return
	}

	for id, member := range room.Members {
		if id == client.ID {
			continue
		}
		member.deliver(message)
	}
}

func (h *Hub) removeClient(client *Client) {
	slog.Debug("client unregistered", "addr", client.addr)

	if client.RoomID != "" {
		if room, ok := h.Rooms[client.RoomID]; ok {
			delete(room.Members, client.ID)

			if len(room.Members) == 0 {
				delete(h.Rooms, room.ID)
				slog.Info("room deleted", "room", room.ID)
			} else {
				for _, member := range room.Members {
					member.deliver(&Message{
						Type:   TypePeerLeft,
						RoomID: room.ID,
						From:   client.ID,
					})
				}
			}
		}
	}

	close(client.Send)
}
