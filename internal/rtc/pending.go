package rtc

import "github.com/pion/webrtc/v4"

// pendingCandidates buffers ICE candidates that arrived before a remote
// description existed for their peer. Entries are transient: they are
// flushed, in insertion order, as soon as a remote description is set.
//
// The queue is owned by the orchestrator and accessed only under its
// lock; it needs no synchronization of its own.
type pendingCandidates struct {
	byPeer map[string][]webrtc.ICECandidateInit
}

func newPendingCandidates() *pendingCandidates {
	return &pendingCandidates{
		byPeer: make(map[string][]webrtc.ICECandidateInit),
	}
}

// enqueue appends a candidate to the peer's buffer.
func (q *pendingCandidates) enqueue(peerID string, c webrtc.ICECandidateInit) {
	q.byPeer[peerID] = append(q.byPeer[peerID], c)
}

// flush returns and removes all buffered candidates for the peer, in
// insertion order. Flushing an empty or absent queue yields nil.
func (q *pendingCandidates) flush(peerID string) []webrtc.ICECandidateInit {
	buffered := q.byPeer[peerID]
	delete(q.byPeer, peerID)
	return buffered
}

// drop discards any buffered candidates for the peer.
func (q *pendingCandidates) drop(peerID string) {
	delete(q.byPeer, peerID)
}

// size reports how many candidates are buffered for the peer.
func (q *pendingCandidates) size(peerID string) int {
	return len(q.byPeer[peerID])
}

// clear discards every buffer.
func (q *pendingCandidates) clear() {
	q.byPeer = make(map[string][]webrtc.ICECandidateInit)
}
