package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"
)

// Opus pages carry their timing as granule positions at 48 kHz.
const oggSampleRate = 48000

// Source streams one media file into a local track at the file's native
// pacing. IVF files become video tracks, Ogg files become Opus audio
// tracks; the codec is read from the container header, not guessed from
// the filename.
type Source struct {
	path  string
	kind  webrtc.RTPCodecType
	mime  string
	track *webrtc.TrackLocalStaticSample
}

// OpenFile probes the file's container header and builds the matching
// local track. The file itself is re-opened by Stream, so a Source can
// be created long before streaming starts.
func OpenFile(path string) (*Source, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ivf":
		return openIVF(path)
	case ".ogg":
		return openOgg(path)
	default:
		return nil, fmt.Errorf("unsupported media container: %s", path)
	}
}

func openIVF(path string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	_, header, err := ivfreader.NewWith(file)
	if err != nil {
		return nil, fmt.Errorf("parse IVF header %s: %w", path, err)
	}

	var mime string
	switch header.FourCC {
	case "VP80":
		mime = webrtc.MimeTypeVP8
	case "VP90":
		mime = webrtc.MimeTypeVP9
	case "AV01":
		mime = webrtc.MimeTypeAV1
	default:
		return nil, fmt.Errorf("unsupported IVF codec %q in %s", header.FourCC, path)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mime}, "video", "roomcast")
	if err != nil {
		return nil, err
	}

	return &Source{
		path:  path,
		kind:  webrtc.RTPCodecTypeVideo,
		mime:  mime,
		track: track,
	}, nil
}

func openOgg(path string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	if _, _, err := oggreader.NewWith(file); err != nil {
		return nil, fmt.Errorf("parse Ogg header %s: %w", path, err)
	}

	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "roomcast")
	if err != nil {
		return nil, err
	}

	return &Source{
		path:  path,
		kind:  webrtc.RTPCodecTypeAudio,
		mime:  webrtc.MimeTypeOpus,
		track: track,
	}, nil
}

// Track returns the local track frames are written to.
func (s *Source) Track() *webrtc.TrackLocalStaticSample {
	return s.track
}

// Kind returns the track kind.
func (s *Source) Kind() webrtc.RTPCodecType {
	return s.kind
}

// MimeType returns the codec mime type read from the container header.
func (s *Source) MimeType() string {
	return s.mime
}

// Stream pumps the whole file into the track at native pacing and
// returns nil at end of file. Cancelling the context stops it early.
func (s *Source) Stream(ctx context.Context) error {
	if s.kind == webrtc.RTPCodecTypeVideo {
		return s.streamIVF(ctx)
	}
	return s.streamOgg(ctx)
}

func (s *Source) streamIVF(ctx context.Context) error {
	file, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader, header, err := ivfreader.NewWith(file)
	if err != nil {
		return err
	}

	// One tick per frame at the container's declared timebase.
	frameDuration := time.Millisecond * time.Duration(
		float32(header.TimebaseNumerator)/float32(header.TimebaseDenominator)*1000)
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		frame, _, err := reader.ParseNextFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.track.WriteSample(pionmedia.Sample{Data: frame, Duration: frameDuration}); err != nil {
			return err
		}
	}
}

func (s *Source) streamOgg(ctx context.Context) error {
	file, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader, _, err := oggreader.NewWith(file)
	if err != nil {
		return err
	}

	var lastGranule uint64
	for {
		page, header, err := reader.ParseNextPage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		// Page duration comes from the granule position delta.
		sampleCount := float64(header.GranulePosition - lastGranule)
		lastGranule = header.GranulePosition
		pageDuration := time.Duration(sampleCount/oggSampleRate*1000) * time.Millisecond

		if err := s.track.WriteSample(pionmedia.Sample{Data: page, Duration: pageDuration}); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pageDuration):
		}
	}
}
