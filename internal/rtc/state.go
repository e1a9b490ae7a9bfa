package rtc

import "github.com/pion/webrtc/v4"

// ConnectionState is the negotiation progress reported to callers, both
// per session and as the orchestrator-level aggregate.
type ConnectionState int

const (
	// StateIdle is reported before any session exists and again after cleanup.
	StateIdle ConnectionState = iota

	// StateConnecting means negotiation or ICE checks are in progress.
	StateConnecting

	// StateConnected means media can flow.
	StateConnected

	// StateDisconnected means an established transport lost connectivity.
	StateDisconnected

	// StateFailed means negotiation failed terminally for this session.
	StateFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// fromPeerConnectionState maps native transitions 1:1 onto reported
// states. New and Closed carry no signal for callers and are dropped.
func fromPeerConnectionState(s webrtc.PeerConnectionState) (ConnectionState, bool) {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return StateConnecting, true
	case webrtc.PeerConnectionStateConnected:
		return StateConnected, true
	case webrtc.PeerConnectionStateDisconnected:
		return StateDisconnected, true
	case webrtc.PeerConnectionStateFailed:
		return StateFailed, true
	default:
		return StateIdle, false
	}
}
