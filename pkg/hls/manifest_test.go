package hls

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsManifestURL(t *testing.T) {
	assert.True(t, IsManifestURL("https://host/_data/video/abc.m3u8"))
	assert.False(t, IsManifestURL("https://host/_data/img/abc.jpg"))
	assert.False(t, IsManifestURL("https://host/_data/video/abc.m3u8?x=1"))
}

func TestNestedManifest(t *testing.T) {
	t.Run("last reference wins", func(t *testing.T) {
		manifest := []byte(`#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=400000,RESOLUTION=426x240
/video/abc/240.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=1200000,RESOLUTION=1280x720
/video/abc/720.m3u8
`)
		ref, ok := NestedManifest(manifest)
		assert.True(t, ok)
		assert.Equal(t, "/video/abc/720.m3u8", ref)
	})

	t.Run("no nested reference", func(t *testing.T) {
		manifest := []byte(`#EXTM3U
#EXTINF:4.0,
seg0.ts
#EXT-X-ENDLIST
`)
		_, ok := NestedManifest(manifest)
		assert.False(t, ok)
	})
}

func TestSegmentURLs(t *testing.T) {
	manifest := []byte(`#EXTM3U
#EXT-X-TARGETDURATION:4
#EXTINF:4.0,
/video/abc/seg0.ts
#EXTINF:4.0,
/video/abc/seg1.ts
#EXTINF:2.5,
/video/abc/seg2.ts
#EXT-X-ENDLIST
`)
	segments := SegmentURLs(manifest)
	assert.Equal(t, []string{
		"/video/abc/seg0.ts",
		"/video/abc/seg1.ts",
		"/video/abc/seg2.ts",
	}, segments)
}

func TestSegmentURLsEmpty(t *testing.T) {
	assert.Empty(t, SegmentURLs([]byte("#EXTM3U\n")))
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "https://cdn/seg0.ts", Resolve("https://cdn/seg0.ts", "https://www.klass.ly/_data"))
	assert.Equal(t, "http://cdn/seg0.ts", Resolve("http://cdn/seg0.ts", "https://www.klass.ly/_data"))
	assert.Equal(t, "https://www.klass.ly/_data/video/abc/seg0.ts",
		Resolve("/video/abc/seg0.ts", "https://www.klass.ly/_data"))
}
