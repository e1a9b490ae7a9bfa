package media

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BioHazard786/Roomcast/internal/utils"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

// trackWriter is the shared surface of the container writers.
type trackWriter interface {
	WriteRTP(p *rtp.Packet) error
	Close() error
}

// Recorder writes one inbound track to a media file: video to IVF,
// Opus audio to Ogg. Packets are pulled on a background goroutine; Close
// stops it and finalizes the container.
type Recorder struct {
	path   string
	track  *webrtc.TrackRemote
	writer trackWriter

	mu      sync.Mutex
	started bool
	closed  bool
	done    chan struct{}
}

// NewRecorder creates the output file for the track inside dir, picking
// the container from the track's codec. The filename is derived from
// name, made unique if it already exists.
func NewRecorder(dir, name string, track *webrtc.TrackRemote) (*Recorder, error) {
	mime := track.Codec().MimeType

	var path string
	var writer trackWriter
	var err error

	switch {
	case strings.EqualFold(mime, webrtc.MimeTypeVP8),
		strings.EqualFold(mime, webrtc.MimeTypeVP9),
		strings.EqualFold(mime, webrtc.MimeTypeAV1):
		path = utils.GetUniqueFilename(filepath.Join(dir, name+".ivf"))
		writer, err = ivfwriter.New(path, ivfwriter.WithCodec(mime))
	case strings.EqualFold(mime, webrtc.MimeTypeOpus):
		path = utils.GetUniqueFilename(filepath.Join(dir, name+".ogg"))
		writer, err = oggwriter.New(path, oggSampleRate, track.Codec().Channels)
	default:
		return nil, fmt.Errorf("cannot record codec %s", mime)
	}
	if err != nil {
		return nil, err
	}

	return &Recorder{
		path:   path,
		track:  track,
		writer: writer,
		done:   make(chan struct{}),
	}, nil
}

// Path returns the output file path.
func (r *Recorder) Path() string {
	return r.path
}

// Start begins pulling packets from the track. Calling it twice is a
// no-op.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return
	}
	r.started = true
	go r.loop()
}

func (r *Recorder) loop() {
	defer close(r.done)

	for {
		packet, _, err := r.track.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("track read ended", "path", r.path, "err", err)
			}
			return
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return
		}
		err = r.writer.WriteRTP(packet)
		r.mu.Unlock()

		if err != nil {
			slog.Warn("failed to write media packet", "path", r.path, "err", err)
			return
		}
	}
}

// Close finalizes the output file. Idempotent; the read loop exits on
// its own when the track ends.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	return r.writer.Close()
}
