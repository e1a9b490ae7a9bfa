package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

func writeIVF(t *testing.T, dir, name, fourCC string, frames ...[]byte) string {
	t.Helper()

	buf := new(bytes.Buffer)
	buf.WriteString("DKIF")
	binary.Write(buf, binary.LittleEndian, uint16(0))  // version
	binary.Write(buf, binary.LittleEndian, uint16(32)) // header size
	buf.WriteString(fourCC)
	binary.Write(buf, binary.LittleEndian, uint16(640)) // width
	binary.Write(buf, binary.LittleEndian, uint16(480)) // height
	binary.Write(buf, binary.LittleEndian, uint32(30))  // timebase denominator
	binary.Write(buf, binary.LittleEndian, uint32(1))   // timebase numerator
	binary.Write(buf, binary.LittleEndian, uint32(len(frames)))
	binary.Write(buf, binary.LittleEndian, uint32(0)) // unused

	for i, frame := range frames {
		binary.Write(buf, binary.LittleEndian, uint32(len(frame)))
		binary.Write(buf, binary.LittleEndian, uint64(i))
		buf.Write(frame)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func writeOgg(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	writer, err := oggwriter.New(path, 48000, 2)
	if err != nil {
		t.Fatalf("create ogg: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close ogg: %v", err)
	}
	return path
}

func TestStreamRejectsDuplicateKind(t *testing.T) {
	video1, _ := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "test")
	video2, _ := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP9}, "video", "test")

	stream := NewStream("s")
	if err := stream.AddTrack(video1); err != nil {
		t.Fatalf("first AddTrack: %v", err)
	}
	if err := stream.AddTrack(video2); err == nil {
		t.Fatal("second video track accepted")
	}
	if !stream.HasKind(webrtc.RTPCodecTypeVideo) {
		t.Error("HasKind(video) = false")
	}
	if stream.HasKind(webrtc.RTPCodecTypeAudio) {
		t.Error("HasKind(audio) = true on video-only stream")
	}
}

func TestOpenFileDetectsIVFCodec(t *testing.T) {
	dir := t.TempDir()

	for fourCC, mime := range map[string]string{
		"VP80": webrtc.MimeTypeVP8,
		"VP90": webrtc.MimeTypeVP9,
		"AV01": webrtc.MimeTypeAV1,
	} {
		path := writeIVF(t, dir, fourCC+".ivf", fourCC)
		src, err := OpenFile(path)
		if err != nil {
			t.Fatalf("OpenFile(%s): %v", fourCC, err)
		}
		if src.MimeType() != mime {
			t.Errorf("%s mime = %q, want %q", fourCC, src.MimeType(), mime)
		}
		if src.Kind() != webrtc.RTPCodecTypeVideo {
			t.Errorf("%s kind = %v, want video", fourCC, src.Kind())
		}
	}
}

func TestOpenFileRejectsUnknownCodecAndContainer(t *testing.T) {
	dir := t.TempDir()

	h264 := writeIVF(t, dir, "h264.ivf", "H264")
	if _, err := OpenFile(h264); err == nil {
		t.Error("unsupported IVF codec accepted")
	}

	mp4 := filepath.Join(dir, "movie.mp4")
	os.WriteFile(mp4, []byte("data"), 0644)
	if _, err := OpenFile(mp4); err == nil {
		t.Error("unsupported container accepted")
	}
}

func TestOpenFileOgg(t *testing.T) {
	dir := t.TempDir()
	path := writeOgg(t, dir, "audio.ogg")

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if src.Kind() != webrtc.RTPCodecTypeAudio {
		t.Errorf("kind = %v, want audio", src.Kind())
	}
	if src.MimeType() != webrtc.MimeTypeOpus {
		t.Errorf("mime = %q, want opus", src.MimeType())
	}
}

func TestStreamIVFRunsToEOF(t *testing.T) {
	dir := t.TempDir()
	path := writeIVF(t, dir, "short.ivf", "VP80",
		[]byte{0x10, 0x02, 0x00}, []byte{0x10, 0x03, 0x00})

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := src.Stream(ctx); err != nil {
		t.Errorf("Stream = %v, want nil at EOF", err)
	}
}

func TestStreamStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := writeIVF(t, dir, "short.ivf", "VP80", []byte{0x10})

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := src.Stream(ctx); err != context.Canceled {
		t.Errorf("Stream = %v, want context.Canceled", err)
	}
}

func TestStreamOggRunsToEOF(t *testing.T) {
	dir := t.TempDir()
	path := writeOgg(t, dir, "audio.ogg")

	src, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := src.Stream(ctx); err != nil {
		t.Errorf("Stream = %v, want nil at EOF", err)
	}
}
