package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestValidateMediaAcceptsVideoAndAudio(t *testing.T) {
	dir := t.TempDir()
	video := writeTempFile(t, dir, "talk.ivf", []byte("DKIF...."))
	audio := writeTempFile(t, dir, "talk.ogg", []byte("OggS...."))

	infos, err := ValidateMedia([]string{video, audio})
	if err != nil {
		t.Fatalf("ValidateMedia: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d infos, want 2", len(infos))
	}
	if infos[0].Kind != "video" || infos[1].Kind != "audio" {
		t.Errorf("kinds = %q, %q; want video, audio", infos[0].Kind, infos[1].Kind)
	}
	if infos[0].Name != "talk.ivf" {
		t.Errorf("Name = %q", infos[0].Name)
	}
}

func TestValidateMediaRejectsDuplicateKind(t *testing.T) {
	dir := t.TempDir()
	first := writeTempFile(t, dir, "a.ivf", []byte("DKIF"))
	second := writeTempFile(t, dir, "b.ivf", []byte("DKIF"))

	_, err := ValidateMedia([]string{first, second})
	if err == nil {
		t.Fatal("two video files accepted")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error %q does not mention the duplicate", err)
	}
}

func TestValidateMediaRejectsUnsupportedAndBroken(t *testing.T) {
	dir := t.TempDir()
	unsupported := writeTempFile(t, dir, "movie.mp4", []byte("data"))
	empty := writeTempFile(t, dir, "empty.ogg", nil)
	missing := filepath.Join(dir, "gone.ivf")

	for _, path := range []string{unsupported, empty, missing, dir} {
		if _, err := ValidateMedia([]string{path}); err == nil {
			t.Errorf("%s accepted, want error", path)
		}
	}

	if _, err := ValidateMedia(nil); err == nil {
		t.Error("empty input accepted")
	}
}

func TestGetTotalSize(t *testing.T) {
	infos := []MediaInfo{{Size: 100}, {Size: 250}}
	if got := GetTotalSize(infos); got != 350 {
		t.Errorf("GetTotalSize = %d, want 350", got)
	}
}
