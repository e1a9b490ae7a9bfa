package rtc

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/BioHazard786/Roomcast/internal/config"
	"github.com/BioHazard786/Roomcast/internal/media"
	"github.com/BioHazard786/Roomcast/internal/signaling"
	"github.com/pion/rtcp"
	"github.com/pion/webrtc/v4"
)

// ControlChannelLabel is the data channel the initiator opens on every
// session for chat and control traffic.
const ControlChannelLabel = "chat"

// keyframeInterval is how often a PLI is sent for inbound video tracks.
const keyframeInterval = 3 * time.Second

// Transport is the room-scoped signaling bus surface the orchestrator
// publishes on. *signaling.Client satisfies it.
type Transport interface {
	Send(msg *signaling.Message) error
	Close()
}

// Orchestrator establishes, multiplexes, and tears down one negotiated
// WebRTC session per remote room member, over the shared signaling bus.
// It owns the session table, the pending-candidate queue, and the local
// media binding; one orchestrator instance serves one room participation.
//
// All operations are serialized by a single mutex, and native pion
// callbacks are funneled through an internal event goroutine, so state
// transitions for one session are observed in a single causal order.
type Orchestrator struct {
	localID   string
	transport Transport

	mu       sync.Mutex
	sessions map[string]*Session
	pending  *pendingCandidates
	local    *media.Stream
	state    ConnectionState
	closed   bool

	// lastRemote is the most recently received inbound track.
	lastRemote *webrtc.TrackRemote

	onState       func(peerID string, state ConnectionState)
	onTrack       func(peerID string, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
	onDataChannel func(peerID string, dc *webrtc.DataChannel)

	events chan func()
	stop   chan struct{}

	// newPeerConnection is swappable for tests.
	newPeerConnection func() (*webrtc.PeerConnection, error)
}

// NewOrchestrator creates an orchestrator for the given local identity,
// publishing negotiation messages on transport.
func NewOrchestrator(localID string, transport Transport, cfg *config.Config) *Orchestrator {
	o := &Orchestrator{
		localID:   localID,
		transport: transport,
		sessions:  make(map[string]*Session),
		pending:   newPendingCandidates(),
		state:     StateIdle,
		events:    make(chan func(), 64),
		stop:      make(chan struct{}),
	}
	o.newPeerConnection = func() (*webrtc.PeerConnection, error) {
		return NewPeerConnection(cfg)
	}

	go o.loop()
	return o
}

// LocalID returns the identity this orchestrator signs signals with.
func (o *Orchestrator) LocalID() string {
	return o.localID
}

// SetOnStateChange registers the aggregate connection-state observer.
func (o *Orchestrator) SetOnStateChange(fn func(peerID string, state ConnectionState)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onState = fn
}

// SetOnRemoteTrack registers the inbound media observer.
func (o *Orchestrator) SetOnRemoteTrack(fn func(peerID string, track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onTrack = fn
}

// SetOnDataChannel registers the observer for control channels, both the
// ones this side opens as initiator and the ones announced by remotes.
func (o *Orchestrator) SetOnDataChannel(fn func(peerID string, dc *webrtc.DataChannel)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onDataChannel = fn
}

// ConnectionState returns the aggregate state: the most recently
// observed transition across all sessions (last-write-wins).
func (o *Orchestrator) ConnectionState() ConnectionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// PeerState returns the state of one peer's session.
func (o *Orchestrator) PeerState(peerID string) (ConnectionState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sess, ok := o.sessions[peerID]
	if !ok {
		return StateIdle, false
	}
	return sess.state, true
}

// PeerStates returns a snapshot of every session's state.
func (o *Orchestrator) PeerStates() map[string]ConnectionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	states := make(map[string]ConnectionState, len(o.sessions))
	for id, sess := range o.sessions {
		states[id] = sess.state
	}
	return states
}

// SessionCount returns the number of live sessions.
func (o *Orchestrator) SessionCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sessions)
}

// LastRemoteTrack returns the most recently received inbound track, or
// nil if none arrived yet.
func (o *Orchestrator) LastRemoteTrack() *webrtc.TrackRemote {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastRemote
}

// HandleSignal routes one inbound bus message. Messages echoed back from
// this peer and messages addressed to someone else are dropped. ICE
// candidates for senders without a session are buffered rather than
// dropped, so candidates may arrive before the offer they belong to.
func (o *Orchestrator) HandleSignal(sig *signaling.Signal) {
	if sig.From == "" || sig.From == o.localID {
		slog.Debug("dropping echoed signal", "kind", sig.Payload.Kind)
		return
	}
	if sig.To != "" && sig.To != o.localID {
		slog.Debug("dropping signal addressed elsewhere", "kind", sig.Payload.Kind, "to", sig.To)
		return
	}

	switch sig.Payload.Kind {
	case signaling.SignalKindOffer:
		if err := o.HandleOffer(sig.Payload.SDP, sig.From); err != nil {
			slog.Error("offer handling failed", "peer", sig.From, "err", err)
		}
	case signaling.SignalKindAnswer:
		o.HandleAnswer(sig.Payload.SDP, sig.From)
	case signaling.SignalKindCandidate:
		var candidate webrtc.ICECandidateInit
		if err := json.Unmarshal(sig.Payload.Candidate, &candidate); err != nil {
			slog.Warn("dropping malformed ICE candidate", "peer", sig.From, "err", err)
			return
		}
		o.HandleIceCandidate(candidate, sig.From)
	default:
		slog.Warn("unknown signal kind", "kind", sig.Payload.Kind, "peer", sig.From)
	}
}

// CreateOffer starts a negotiation with remoteID as initiator, replacing
// any prior session for that peer. The offer is published addressed to
// the remote peer; ICE candidates trickle afterwards.
func (o *Orchestrator) CreateOffer(remoteID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.createOfferLocked(remoteID)
}

func (o *Orchestrator) createOfferLocked(remoteID string) error {
	if o.closed {
		return newError("create offer", remoteID, ErrClosed)
	}

	sess, err := o.newSessionLocked(remoteID, RoleInitiator)
	if err != nil {
		return newError("create offer", remoteID, err)
	}

	offer, err := sess.pc.CreateOffer(nil)
	if err != nil {
		return o.failLocked(sess, "create offer", err)
	}
	if err := sess.pc.SetLocalDescription(offer); err != nil {
		return o.failLocked(sess, "set local description", err)
	}

	if err := o.publishLocked(remoteID, signaling.SignalPayload{
		Kind: signaling.SignalKindOffer,
		SDP:  sess.pc.LocalDescription().SDP,
	}); err != nil {
		// The local description stays applied; a retried CreateOffer
		// replaces this session.
		return o.failLocked(sess, "publish offer", err)
	}
	return nil
}

// HandleOffer answers an inbound offer, creating a responder session for
// the sender (replacing any prior one) and flushing candidates that
// arrived ahead of the offer.
func (o *Orchestrator) HandleOffer(sdp string, fromID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return newError("handle offer", fromID, ErrClosed)
	}

	sess, err := o.newSessionLocked(fromID, RoleResponder)
	if err != nil {
		return newError("handle offer", fromID, err)
	}

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}
	if err := sess.pc.SetRemoteDescription(offer); err != nil {
		return o.failLocked(sess, "set remote description", err)
	}

	o.flushPendingLocked(sess)

	answer, err := sess.pc.CreateAnswer(nil)
	if err != nil {
		return o.failLocked(sess, "create answer", err)
	}
	if err := sess.pc.SetLocalDescription(answer); err != nil {
		return o.failLocked(sess, "set local description", err)
	}

	if err := o.publishLocked(fromID, signaling.SignalPayload{
		Kind: signaling.SignalKindAnswer,
		SDP:  sess.pc.LocalDescription().SDP,
	}); err != nil {
		return o.failLocked(sess, "publish answer", err)
	}
	return nil
}

// HandleAnswer applies a remote answer if and only if a session exists
// for the sender and a local offer is outstanding with no remote
// description yet. Duplicate or out-of-order answers would otherwise
// corrupt negotiation state, so guard violations are dropped with a
// warning, never an error.
func (o *Orchestrator) HandleAnswer(sdp string, fromID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess, ok := o.sessions[fromID]
	if !ok {
		slog.Warn("answer for unknown peer dropped", "peer", fromID)
		return
	}
	if sess.pc.SignalingState() != webrtc.SignalingStateHaveLocalOffer || sess.pc.RemoteDescription() != nil {
		slog.Warn("answer dropped by state guard", "peer", fromID, "state", sess.pc.SignalingState().String())
		return
	}

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}
	if err := sess.pc.SetRemoteDescription(answer); err != nil {
		o.failLocked(sess, "set remote description", err)
		return
	}

	o.flushPendingLocked(sess)
}

// HandleIceCandidate applies the candidate immediately when the peer's
// session already has a remote description, and buffers it otherwise —
// including when no session exists at all yet.
func (o *Orchestrator) HandleIceCandidate(candidate webrtc.ICECandidateInit, fromID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess, ok := o.sessions[fromID]
	if ok && sess.pc.RemoteDescription() != nil {
		if err := sess.pc.AddICECandidate(candidate); err != nil {
			// Malformed candidates are local, non-fatal failures.
			slog.Warn("failed to apply ICE candidate", "peer", fromID, "err", err)
		}
		return
	}

	o.pending.enqueue(fromID, candidate)
}

// SetLocalStream updates the local media binding and reconciles every
// live session's outgoing tracks: same-kind senders are replaced in
// place, missing kinds are added, and a nil stream removes all outgoing
// tracks. Initiator sessions that gained a brand-new track after
// negotiation are renegotiated with a fresh offer.
func (o *Orchestrator) SetLocalStream(stream *media.Stream) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.local = stream

	var renegotiate []string
	for id, sess := range o.sessions {
		added, err := o.reconcileSessionLocked(sess)
		if err != nil {
			slog.Warn("failed to reconcile local media", "peer", id, "err", err)
			continue
		}
		if added && sess.role == RoleInitiator && sess.pc.RemoteDescription() != nil {
			renegotiate = append(renegotiate, id)
		}
	}

	for _, id := range renegotiate {
		if err := o.createOfferLocked(id); err != nil {
			slog.Warn("renegotiation offer failed", "peer", id, "err", err)
		}
	}
}

// LocalStream returns the current local media binding, or nil.
func (o *Orchestrator) LocalStream() *media.Stream {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.local
}

// ClosePeer tears down the session and buffered candidates for one peer,
// e.g. after it leaves the room. Unknown peers are a no-op.
func (o *Orchestrator) ClosePeer(peerID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if sess, ok := o.sessions[peerID]; ok {
		if err := sess.close(); err != nil {
			slog.Debug("error closing session", "peer", peerID, "err", err)
		}
		delete(o.sessions, peerID)
	}
	o.pending.drop(peerID)
}

// Cleanup tears down every session, clears the session table and the
// pending-candidate queue, closes the transport subscription, and resets
// the aggregate state to idle. Safe to call at any point, including
// mid-negotiation; calling it again is a no-op.
func (o *Orchestrator) Cleanup() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true

	for id, sess := range o.sessions {
		if err := sess.close(); err != nil {
			slog.Debug("error closing session", "peer", id, "err", err)
		}
	}
	o.sessions = make(map[string]*Session)
	o.pending.clear()
	o.local = nil
	o.lastRemote = nil
	o.state = StateIdle
	transport := o.transport
	o.mu.Unlock()

	close(o.stop)
	if transport != nil {
		transport.Close()
	}
}

// newSessionLocked creates (or replaces) the session for remoteID. The
// prior session's native handle is closed before being discarded. The
// new session inherits the current local media binding immediately, so
// call ordering of SetLocalStream vs CreateOffer/HandleOffer does not
// produce a session with no outgoing media.
func (o *Orchestrator) newSessionLocked(remoteID string, role Role) (*Session, error) {
	if prev, ok := o.sessions[remoteID]; ok {
		if err := prev.close(); err != nil {
			slog.Debug("error closing replaced session", "peer", remoteID, "err", err)
		}
		delete(o.sessions, remoteID)
	}

	pc, err := o.newPeerConnection()
	if err != nil {
		return nil, err
	}

	sess := &Session{
		remoteID: remoteID,
		role:     role,
		pc:       pc,
		state:    StateIdle,
		done:     make(chan struct{}),
	}

	if role == RoleInitiator {
		// The control channel must exist before the offer so it is part
		// of the negotiated SDP.
		dc, err := pc.CreateDataChannel(ControlChannelLabel, nil)
		if err != nil {
			pc.Close()
			return nil, err
		}
		sess.chat = dc
		if cb := o.onDataChannel; cb != nil {
			o.dispatch(func() { cb(remoteID, dc) })
		}
	}

	o.registerCallbacks(sess)
	o.sessions[remoteID] = sess

	if _, err := o.reconcileSessionLocked(sess); err != nil {
		slog.Warn("failed to apply local media to new session", "peer", remoteID, "err", err)
	}
	return sess, nil
}

// registerCallbacks wires the native event sinks for one session. The
// callbacks run on arbitrary pion goroutines, so each one posts onto the
// orchestrator's event queue instead of touching state directly. Events
// for a session that has since been replaced are discarded.
func (o *Orchestrator) registerCallbacks(sess *Session) {
	remoteID := sess.remoteID

	sess.pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		o.dispatch(func() {
			state, ok := fromPeerConnectionState(s)
			if !ok {
				return
			}
			o.mu.Lock()
			stale := o.sessions[remoteID] != sess
			var cb func(string, ConnectionState)
			if !stale {
				sess.state = state
				o.state = state
				cb = o.onState
			}
			o.mu.Unlock()
			if cb != nil {
				cb(remoteID, state)
			}
		})
	})

	sess.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		raw, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		o.dispatch(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			if o.sessions[remoteID] != sess {
				return
			}
			if err := o.publishLocked(remoteID, signaling.SignalPayload{
				Kind:      signaling.SignalKindCandidate,
				Candidate: raw,
			}); err != nil {
				slog.Warn("failed to publish ICE candidate", "peer", remoteID, "err", err)
			}
		})
	})

	sess.pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go o.keyframeLoop(sess, track)
		}
		o.dispatch(func() {
			o.mu.Lock()
			o.lastRemote = track
			cb := o.onTrack
			o.mu.Unlock()
			if cb != nil {
				cb(remoteID, track, receiver)
			}
		})
	})

	sess.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		o.dispatch(func() {
			o.mu.Lock()
			cb := o.onDataChannel
			o.mu.Unlock()
			if cb != nil {
				cb(remoteID, dc)
			}
		})
	})
}

// reconcileSessionLocked applies the current local media binding to one
// session. It reports whether a brand-new sender was added, which in
// general requires renegotiation.
func (o *Orchestrator) reconcileSessionLocked(sess *Session) (added bool, err error) {
	if o.local == nil {
		for _, sender := range sess.pc.GetSenders() {
			if sender.Track() == nil {
				continue
			}
			if rerr := sender.ReplaceTrack(nil); rerr != nil && err == nil {
				err = rerr
			}
		}
		return false, err
	}

	for _, track := range o.local.Tracks() {
		var match *webrtc.RTPSender
		for _, sender := range sess.pc.GetSenders() {
			current := sender.Track()
			if current != nil && current.Kind() == track.Kind() {
				match = sender
				break
			}
		}
		if match != nil {
			// Same-kind replacement keeps the already-negotiated sender
			// and needs no renegotiation.
			if rerr := match.ReplaceTrack(track); rerr != nil {
				return added, rerr
			}
			continue
		}
		if _, aerr := sess.pc.AddTrack(track); aerr != nil {
			return added, aerr
		}
		added = true
	}
	return added, nil
}

// flushPendingLocked applies the candidates buffered for the session's
// peer, in arrival order, now that a remote description exists. A
// candidate that fails to apply is dropped; the rest still apply.
func (o *Orchestrator) flushPendingLocked(sess *Session) {
	for _, candidate := range o.pending.flush(sess.remoteID) {
		if err := sess.pc.AddICECandidate(candidate); err != nil {
			slog.Warn("failed to apply buffered ICE candidate", "peer", sess.remoteID, "err", err)
		}
	}
}

func (o *Orchestrator) publishLocked(to string, payload signaling.SignalPayload) error {
	msg, err := signaling.NewSignalMessage(to, payload)
	if err != nil {
		return err
	}
	msg.From = o.localID
	return o.transport.Send(msg)
}

// failLocked forces the session into the failed state. The failure stays
// local to this one session; recovery is a fresh CreateOffer/HandleOffer
// for the same peer, which replaces it.
func (o *Orchestrator) failLocked(sess *Session, op string, err error) error {
	slog.Error("negotiation failed", "op", op, "peer", sess.remoteID, "err", err)
	sess.state = StateFailed
	o.state = StateFailed
	if cb := o.onState; cb != nil {
		peerID := sess.remoteID
		o.dispatch(func() { cb(peerID, StateFailed) })
	}
	return newError(op, sess.remoteID, err)
}

// keyframeLoop periodically requests a keyframe for an inbound video
// track so recorders joining mid-stream can decode from a recent point.
func (o *Orchestrator) keyframeLoop(sess *Session, track *webrtc.TrackRemote) {
	ticker := time.NewTicker(keyframeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.done:
			return
		case <-o.stop:
			return
		case <-ticker.C:
			pli := &rtcp.PictureLossIndication{MediaSSRC: uint32(track.SSRC())}
			if err := sess.pc.WriteRTCP([]rtcp.Packet{pli}); err != nil {
				return
			}
		}
	}
}

func (o *Orchestrator) loop() {
	for {
		select {
		case fn := <-o.events:
			fn()
		case <-o.stop:
			return
		}
	}
}

// dispatch hands work to the event goroutine. It never blocks the
// caller: if the queue is saturated the work runs on its own goroutine
// instead, trading strict ordering for liveness.
func (o *Orchestrator) dispatch(fn func()) {
	select {
	case <-o.stop:
		return
	default:
	}

	select {
	case o.events <- fn:
	default:
		go fn()
	}
}
