// Package chat carries room chat over the negotiated control data
// channel, msgpack-encoded.
package chat

import (
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Message is one chat line exchanged over the control channel.
type Message struct {
	From   string    `msgpack:"from"`
	Text   string    `msgpack:"text"`
	SentAt time.Time `msgpack:"sentAt"`
}

// Encode serializes a message for the wire.
func Encode(msg Message) ([]byte, error) {
	return msgpack.Marshal(msg)
}

// Decode parses a wire payload back into a message.
func Decode(data []byte) (Message, error) {
	var msg Message
	err := msgpack.Unmarshal(data, &msg)
	return msg, err
}

// Room fans chat messages out over the control channels of every
// connected peer. Channels register as they open and are detached when
// the underlying session goes away.
type Room struct {
	self      string
	onMessage func(Message)

	mu       sync.Mutex
	channels map[string]*webrtc.DataChannel
}

// NewRoom creates a chat room for the given local identity.
func NewRoom(self string, onMessage func(Message)) *Room {
	return &Room{
		self:      self,
		onMessage: onMessage,
		channels:  make(map[string]*webrtc.DataChannel),
	}
}

// Attach registers a peer's control channel. Incoming payloads that fail
// to decode are ignored.
func (r *Room) Attach(peerID string, dc *webrtc.DataChannel) {
	r.mu.Lock()
	r.channels[peerID] = dc
	r.mu.Unlock()

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		decoded, err := Decode(msg.Data)
		if err != nil {
			return
		}
		if r.onMessage != nil {
			r.onMessage(decoded)
		}
	})
}

// Detach forgets a peer's channel, e.g. after its session is torn down.
func (r *Room) Detach(peerID string) {
	r.mu.Lock()
	delete(r.channels, peerID)
	r.mu.Unlock()
}

// Send broadcasts a chat line to every open control channel and echoes
// it locally through the message callback.
func (r *Room) Send(text string) error {
	msg := Message{From: r.self, Text: text, SentAt: time.Now()}
	payload, err := Encode(msg)
	if err != nil {
		return err
	}

	r.mu.Lock()
	channels := make([]*webrtc.DataChannel, 0, len(r.channels))
	for _, dc := range r.channels {
		channels = append(channels, dc)
	}
	r.mu.Unlock()

	for _, dc := range channels {
		if dc.ReadyState() != webrtc.DataChannelStateOpen {
			continue
		}
		// A send failure on one channel must not stop the fan-out.
		_ = dc.Send(payload)
	}

	if r.onMessage != nil {
		r.onMessage(msg)
	}
	return nil
}
