// Package archive orchestrates a full export run: session login, directory
// snapshot, per-class history pagination, attachment downloads, and the
// summary index page.
package archive

import (
	"fmt"
	"sort"

	"klassdump/internal/downloader"
	"klassdump/pkg/config"
	"klassdump/pkg/klassroom"
	"klassdump/pkg/logger"
	"klassdump/pkg/report"
	"klassdump/pkg/storage"
)

// Archiver wires the session, storage, and downloader into one sequential run
type Archiver struct {
	cfg     *config.Config
	session *klassroom.Session
	store   *storage.Manager
	logger  logger.Logger
}

// New creates an Archiver from the loaded configuration
func New(cfg *config.Config, log logger.Logger) (*Archiver, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	store, err := storage.NewManager(cfg.Output.BaseDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	return &Archiver{
		cfg:     cfg,
		session: klassroom.NewSession(cfg.Klassroom, cfg.Download.Timeout, log),
		store:   store,
		logger:  log,
	}, nil
}

// Session exposes the underlying API session
func (a *Archiver) Session() *klassroom.Session {
	return a.session
}

// Run performs the whole export: authenticate, walk every class's history,
// download every attachment, and write the index page. Bootstrap and
// authentication failures abort the run; everything later is per-item.
func (a *Archiver) Run(phone, password string) error {
	if err := a.session.Login(phone, password); err != nil {
		return err
	}

	dl := downloader.New(a.session.Client(), a.store, a.session.WebURL(), a.logger)

	classes := a.sortedClasses()
	a.logger.InfoWithFields("starting export", map[string]interface{}{
		"klasses": len(classes),
		"output":  a.store.BaseDir(),
	})

	var entries []report.ClassEntry
	for _, klass := range classes {
		a.logger.Info(klass.Describe(a.session.LookupUser))

		a.session.FetchHistory(klass)
		a.downloadClass(dl, klass)

		entries = append(entries, report.ClassEntry{
			Name:        klass.Name(),
			School:      klass.School.Name,
			Level:       klass.Level,
			Key:         klass.Key,
			Dir:         storage.SanitizeName(klass.Name()),
			Posts:       len(klass.Posts),
			Attachments: klass.AttachmentCount(),
		})
	}

	if a.cfg.Output.WriteIndex {
		if err := report.Write(a.store.BaseDir(), entries); err != nil {
			a.logger.WithError(err).Warn("failed to write index page")
		} else {
			a.logger.Info("index page written")
		}
	}

	a.logger.Info("export complete")
	return nil
}

// downloadClass walks the class's accumulated posts and downloads every
// attachment. Faults are logged per attachment and never end the run.
func (a *Archiver) downloadClass(dl *downloader.Downloader, klass *klassroom.Class) {
	for _, post := range sortedPosts(klass) {
		ids := make([]string, 0, len(post.Attachments))
		for id := range post.Attachments {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			att := post.Attachments[id]
			if att.URL == "" {
				continue
			}
			// Faults are already logged with attachment and post context
			_ = dl.Download(klass, post, att)
		}
	}
}

// sortedClasses returns the snapshot's classes in name order for stable output
func (a *Archiver) sortedClasses() []*klassroom.Class {
	classes := make([]*klassroom.Class, 0, len(a.session.Klasses))
	for _, klass := range a.session.Klasses {
		classes = append(classes, klass)
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Name() != classes[j].Name() {
			return classes[i].Name() < classes[j].Name()
		}
		return classes[i].ID < classes[j].ID
	})
	return classes
}

// sortedPosts returns a class's posts oldest first
func sortedPosts(klass *klassroom.Class) []*klassroom.Post {
	posts := make([]*klassroom.Post, 0, len(klass.Posts))
	for _, post := range klass.Posts {
		posts = append(posts, post)
	}
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].Date != posts[j].Date {
			return posts[i].Date < posts[j].Date
		}
		return posts[i].ID < posts[j].ID
	})
	return posts
}
