package klassroom

import (
	"strconv"
)

// initialCursor means "no upper bound": the first page returns the newest posts
const initialCursor = "0"

// FetchHistory pages backward through a class's post history until a page
// yields no posts, merging every page into the class's post mapping. The API
// has no "has more" flag; termination is inferred from an empty or malformed
// result. Transport errors on a page end pagination for this class only and
// are not fatal to the run. Returns the number of posts accumulated.
func (s *Session) FetchHistory(klass *Class) int {
	log := s.logger.WithFields(map[string]interface{}{
		"klass": klass.Name(),
		"id":    klass.ID,
	})
	log.Info("fetching post history")

	cursor := initialCursor
	for {
		form := s.metadata()
		form.Set("id", klass.ID)
		form.Set("filter", "all")
		form.Set("type", "post")
		form.Set("from", cursor)

		var page historyResponse
		if err := s.client.PostFormJSON(s.apiURL(HistoryEndpoint), form, &page); err != nil {
			log.WarnWithFields("history page failed, stopping pagination", map[string]interface{}{
				"cursor": cursor,
				"error":  err.Error(),
			})
			break
		}

		if len(page.Posts) == 0 {
			break
		}

		klass.addPosts(page.Posts)
		cursor = nextCursor(page.Posts)
		log.DebugWithFields("history page merged", map[string]interface{}{
			"page_posts": len(page.Posts),
			"total":      len(klass.Posts),
			"cursor":     cursor,
		})
	}

	log.InfoWithFields("post history complete", map[string]interface{}{
		"posts": len(klass.Posts),
	})
	return len(klass.Posts)
}

// nextCursor computes the upper-bound timestamp for the next older page: one
// millisecond before the oldest post of the current page, so that post is
// excluded and the walk moves strictly backward.
func nextCursor(posts map[string]*Post) string {
	first := true
	var min int64
	for _, post := range posts {
		if first || post.Date < min {
			min = post.Date
			first = false
		}
	}
	return strconv.FormatInt(min-1, 10)
}
