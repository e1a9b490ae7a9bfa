package chat

import (
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sent := Message{From: "peer-1", Text: "hello room", SentAt: time.Now().Truncate(time.Second)}

	data, err := Encode(sent)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.From != sent.From || got.Text != sent.Text || !got.SentAt.Equal(sent.SentAt) {
		t.Errorf("round trip changed message: %+v != %+v", got, sent)
	}
}

func TestDecodeGarbageFails(t *testing.T) {
	if _, err := Decode([]byte{0xc1}); err == nil {
		t.Error("garbage payload decoded without error")
	}
}

func TestSendEchoesLocally(t *testing.T) {
	var received []Message
	room := NewRoom("me", func(msg Message) {
		received = append(received, msg)
	})

	if err := room.Send("anyone here?"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("callback ran %d times, want 1", len(received))
	}
	if received[0].From != "me" || received[0].Text != "anyone here?" {
		t.Errorf("echoed message = %+v", received[0])
	}
	if received[0].SentAt.IsZero() {
		t.Error("SentAt not stamped")
	}
}

func TestSendSkipsUnopenedChannels(t *testing.T) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("NewPeerConnection: %v", err)
	}
	defer pc.Close()

	dc, err := pc.CreateDataChannel("chat", nil)
	if err != nil {
		t.Fatalf("CreateDataChannel: %v", err)
	}

	room := NewRoom("me", nil)
	room.Attach("peer-1", dc)

	// The channel never opens (no connection); Send must not error.
	if err := room.Send("hello"); err != nil {
		t.Errorf("Send with unopened channel: %v", err)
	}

	room.Detach("peer-1")
	if err := room.Send("still fine"); err != nil {
		t.Errorf("Send after detach: %v", err)
	}
}
