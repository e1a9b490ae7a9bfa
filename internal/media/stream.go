package media

import (
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Stream is a named bundle of local tracks published to every session.
// At most one track per kind is allowed, matching how tracks are
// reconciled onto senders.
type Stream struct {
	id     string
	tracks []webrtc.TrackLocal
}

// NewStream creates an empty stream with the given identifier.
func NewStream(id string) *Stream {
	return &Stream{id: id}
}

// ID returns the stream identifier.
func (s *Stream) ID() string {
	return s.id
}

// AddTrack appends a track. Adding a second track of the same kind is
// rejected.
func (s *Stream) AddTrack(track webrtc.TrackLocal) error {
	for _, existing := range s.tracks {
		if existing.Kind() == track.Kind() {
			return fmt.Errorf("stream %q already has a %s track", s.id, track.Kind())
		}
	}
	s.tracks = append(s.tracks, track)
	return nil
}

// Tracks returns the bundled tracks.
func (s *Stream) Tracks() []webrtc.TrackLocal {
	return s.tracks
}

// HasKind reports whether the stream carries a track of the given kind.
func (s *Stream) HasKind(kind webrtc.RTPCodecType) bool {
	for _, track := range s.tracks {
		if track.Kind() == kind {
			return true
		}
	}
	return false
}
