package rtc

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// Role is fixed at session creation and never changes.
type Role string

const (
	// RoleInitiator marks the side that produced the offer.
	RoleInitiator Role = "initiator"

	// RoleResponder marks the side that answered a received offer.
	RoleResponder Role = "responder"
)

// Session is one negotiated connection to exactly one remote peer. The
// orchestrator owns its lifecycle: at most one session exists per remote
// peer, and creating a replacement closes the old native handle first.
type Session struct {
	remoteID string
	role     Role
	pc       *webrtc.PeerConnection
	state    ConnectionState

	// chat is the control data channel, created by the initiator before
	// the offer so it becomes part of the negotiated SDP.
	chat *webrtc.DataChannel

	// done is closed exactly once when the session is torn down; it
	// stops the per-track helper goroutines.
	done      chan struct{}
	closeOnce sync.Once
}

// RemoteID returns the identity of the remote peer.
func (s *Session) RemoteID() string {
	return s.remoteID
}

// Role reports whether this side initiated or answered the negotiation.
func (s *Session) Role() Role {
	return s.role
}

// State returns the last observed connection state for this session.
func (s *Session) State() ConnectionState {
	return s.state
}

func (s *Session) close() error {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return s.pc.Close()
}
