package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Media container extensions the host command can stream.
// IVF carries VP8/VP9 video frames, Ogg carries Opus audio pages.
const (
	ExtIVF = ".ivf"
	ExtOgg = ".ogg"
)

// MediaInfo holds information about a media file to be streamed
type MediaInfo struct {
	// Path is the absolute path to the file
	Path string

	// Name is the filename (without directory)
	Name string

	// Size is the file size in bytes
	Size int64

	// Kind is "video" for IVF files and "audio" for Ogg files
	Kind string
}

// ValidateMedia checks that all files exist, are readable, and are
// supported media containers. At most one video and one audio file are
// accepted since a broadcast carries one outgoing track per kind.
func ValidateMedia(filePaths []string) ([]MediaInfo, error) {
	if len(filePaths) == 0 {
		return nil, fmt.Errorf("no media files specified")
	}

	var infos []MediaInfo
	var errs []string
	seenKinds := make(map[string]string)

	for _, path := range filePaths {
		info, err := validateSingleMedia(path)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if prev, ok := seenKinds[info.Kind]; ok {
			errs = append(errs, fmt.Sprintf("%s: duplicate %s track (already have %s)", path, info.Kind, prev))
			continue
		}
		seenKinds[info.Kind] = info.Name
		infos = append(infos, info)
	}

	// If any file validation failed, return all errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("media validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return infos, nil
}

// validateSingleMedia checks a single media file and returns its info
func validateSingleMedia(path string) (MediaInfo, error) {
	// Get absolute path
	absPath, err := filepath.Abs(path)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("%s: failed to get absolute path: %w", path, err)
	}

	// Check if file exists
	stat, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return MediaInfo{}, fmt.Errorf("%s: file does not exist", path)
		}
		return MediaInfo{}, fmt.Errorf("%s: failed to stat file: %w", path, err)
	}

	// Check if it's a directory
	if stat.IsDir() {
		return MediaInfo{}, fmt.Errorf("%s: is a directory", path)
	}

	// Check if file is empty
	if stat.Size() == 0 {
		return MediaInfo{}, fmt.Errorf("%s: file is empty", path)
	}

	var kind string
	switch strings.ToLower(filepath.Ext(absPath)) {
	case ExtIVF:
		kind = "video"
	case ExtOgg:
		kind = "audio"
	default:
		return MediaInfo{}, fmt.Errorf("%s: unsupported media type (expected %s or %s)", path, ExtIVF, ExtOgg)
	}

	// Check if file is readable
	file, err := os.Open(absPath)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("%s: cannot open file (check permissions): %w", path, err)
	}
	file.Close()

	return MediaInfo{
		Path: absPath,
		Name: filepath.Base(absPath),
		Size: stat.Size(),
		Kind: kind,
	}, nil
}

// GetTotalSize returns the total size of all media files
func GetTotalSize(infos []MediaInfo) int64 {
	var total int64
	for _, info := range infos {
		total += info.Size
	}
	return total
}
