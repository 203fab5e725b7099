// Package downloader writes a post's attachments to local storage, one at a
// time. Plain assets are fetched directly (with an origin rewrite for the
// legacy image host); HLS videos are reconstructed from their segment list.
package downloader

import (
	"bytes"
	"fmt"
	"path/filepath"

	"klassdump/pkg/hls"
	"klassdump/pkg/klassroom"
	"klassdump/pkg/logger"
	"klassdump/pkg/storage"
)

// Downloader resolves the retrieval strategy per attachment and writes bytes
// to deterministic destination paths
type Downloader struct {
	client *klassroom.Client
	store  *storage.Manager
	webURL string
	logger logger.Logger
}

// New creates a Downloader using the session's transport client, so downloads
// carry the same cookies as API calls
func New(client *klassroom.Client, store *storage.Manager, webURL string, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{
		client: client,
		store:  store,
		webURL: webURL,
		logger: log,
	}
}

// Download fetches one attachment of a post into the class's directory.
// When the destination file already exists the attachment is skipped without
// any network request, making re-runs idempotent. A failure affects only this
// attachment; the caller logs and moves on.
func (d *Downloader) Download(klass *klassroom.Class, post *klassroom.Post, att *klassroom.Attachment) error {
	classDir, err := d.store.ClassDir(klass.Name())
	if err != nil {
		return err
	}
	dest := d.store.AttachmentPath(classDir, post.Time(), att.Name)

	if d.store.Exists(dest) {
		d.logger.InfoWithFields("skip existing", map[string]interface{}{
			"file": filepath.Base(dest),
		})
		return nil
	}

	if att.IsStream() {
		err = d.downloadStream(att, dest)
	} else {
		err = d.downloadPlain(att, dest)
	}
	if err != nil {
		d.logger.ErrorWithFields("attachment failed", map[string]interface{}{
			"name":      att.Name,
			"url":       att.URL,
			"post":      post.ID,
			"post_text": post.Text,
			"error":     err.Error(),
		})
		return err
	}

	if err := d.store.SetTimes(dest, post.Time()); err != nil {
		d.logger.WarnWithFields("failed to stamp file time", map[string]interface{}{
			"file":  filepath.Base(dest),
			"error": err.Error(),
		})
	}

	d.logger.InfoWithFields("downloaded", map[string]interface{}{
		"file": filepath.Base(dest),
	})
	return nil
}

// downloadStream reconstructs a single contiguous video file from an HLS
// playlist: resolve the nested media playlist if the URL points at a master
// playlist, then append every segment's bytes in listed order.
func (d *Downloader) downloadStream(att *klassroom.Attachment, dest string) error {
	manifest, err := d.client.GetBody(att.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch manifest: %w", err)
	}

	if nested, ok := hls.NestedManifest(manifest); ok {
		nestedURL := hls.Resolve(nested, d.webURL+"/_data")
		d.logger.DebugWithFields("following nested manifest", map[string]interface{}{
			"url": nestedURL,
		})
		manifest, err = d.client.GetBody(nestedURL)
		if err != nil {
			return fmt.Errorf("failed to fetch nested manifest: %w", err)
		}
	}

	segments := hls.SegmentURLs(manifest)
	if len(segments) == 0 {
		return fmt.Errorf("manifest lists no segments")
	}

	w, err := d.store.CreateTemp(dest)
	if err != nil {
		return err
	}

	for _, segment := range segments {
		segmentURL := hls.Resolve(segment, d.webURL+"/_data")
		d.logger.DebugWithFields("fetching segment", map[string]interface{}{
			"url": segmentURL,
		})
		data, err := d.client.GetBody(segmentURL)
		if err != nil {
			w.Abort()
			return fmt.Errorf("failed to fetch segment %s: %w", segment, err)
		}
		if _, err := w.Write(data); err != nil {
			w.Abort()
			return fmt.Errorf("failed to write segment: %w", err)
		}
	}

	return w.Commit()
}

// downloadPlain fetches a non-stream asset. URLs on the legacy image host are
// rewritten onto the front end's data path and fetched with the browser-like
// headers that origin requires.
func (d *Downloader) downloadPlain(att *klassroom.Attachment, dest string) error {
	fetchURL := att.URL
	var headers map[string]string

	if rewritten, ok := klassroom.RewriteImageURL(att.URL, d.webURL); ok {
		fetchURL = rewritten
		headers = klassroom.ImageHeaders(d.webURL)
	}

	data, err := d.client.GetBodyWithHeaders(fetchURL, headers)
	if err != nil {
		return err
	}

	return d.store.SaveFile(dest, bytes.NewReader(data))
}
