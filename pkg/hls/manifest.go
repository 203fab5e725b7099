// Package hls parses just enough of HLS playlists to reconstruct a video:
// finding the nested media playlist inside a master playlist and listing the
// media segments in playback order.
package hls

import (
	"bufio"
	"bytes"
	"strings"
)

const (
	// ManifestExt is the playlist file extension
	ManifestExt = ".m3u8"

	// SegmentExt is the media segment file extension
	SegmentExt = ".ts"
)

// IsManifestURL reports whether the URL points at an HLS playlist
func IsManifestURL(rawURL string) bool {
	return strings.HasSuffix(rawURL, ManifestExt)
}

// NestedManifest scans a playlist for a reference to another playlist (the
// master → media playlist indirection). When several are listed, the last one
// wins: for this origin that is the highest resolution. Returns false when the
// playlist references no nested manifest.
func NestedManifest(manifest []byte) (string, bool) {
	var ref string
	for _, line := range lines(manifest) {
		if strings.HasSuffix(line, ManifestExt) {
			ref = line
		}
	}
	return ref, ref != ""
}

// SegmentURLs returns every media segment referenced by the playlist, in the
// order the lines appear. That order is the playback order and must be
// preserved when concatenating segment bodies.
func SegmentURLs(manifest []byte) []string {
	var segments []string
	for _, line := range lines(manifest) {
		if strings.HasSuffix(line, SegmentExt) {
			segments = append(segments, line)
		}
	}
	return segments
}

// Resolve prefixes a playlist reference with the origin's data-path base when
// it is not already an absolute URL.
func Resolve(ref, base string) string {
	if strings.HasPrefix(ref, "http") {
		return ref
	}
	return base + ref
}

// lines splits a playlist into trimmed, non-empty lines
func lines(manifest []byte) []string {
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(manifest))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
