package klassroom

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// User is an account visible in the directory snapshot (a parent or teacher)
type User struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	MainImageURL  string `json:"main_image_url"`
	ThumbImageURL string `json:"thumb_image_url"`
}

// School carries the school block nested in a class record
type School struct {
	Name string `json:"name"`
}

// Student is one roster entry of a class. Members maps user ids to the
// relationship label (mother, father, ...); the users themselves live on the
// session and are resolved through a lookup, not copied.
type Student struct {
	FirstName     string            `json:"first_name"`
	LastName      string            `json:"last_name"`
	Gender        string            `json:"gender"`
	DOB           string            `json:"dob"`
	MainImageURL  string            `json:"main_image_url"`
	ThumbImageURL string            `json:"thumb_image_url"`
	Members       map[string]string `json:"members"`
}

// Name returns the student's display name
func (s *Student) Name() string {
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	return name
}

// FamilyLink pairs a relationship label with the linked user
type FamilyLink struct {
	Relationship string
	User         *User
}

// UserLookup resolves a user id against the session's user mapping
type UserLookup func(id string) (*User, bool)

// Family resolves the student's member links through the given lookup.
// Links whose user id is unknown to the snapshot are dropped. The result is
// sorted by relationship label for stable output.
func (s *Student) Family(lookup UserLookup) []FamilyLink {
	links := make([]FamilyLink, 0, len(s.Members))
	for id, relationship := range s.Members {
		user, ok := lookup(id)
		if !ok {
			continue
		}
		links = append(links, FamilyLink{Relationship: relationship, User: user})
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].Relationship != links[j].Relationship {
			return links[i].Relationship < links[j].Relationship
		}
		return links[i].User.ID < links[j].User.ID
	})
	return links
}

// Attachment is a single downloadable asset of a post
type Attachment struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	ThumbURL string `json:"thumb_url"`
	Type     string `json:"type"`
}

// IsImage reports whether the API classified the attachment as an image
func (a *Attachment) IsImage() bool {
	return a.Type == "image"
}

// IsStream reports whether the attachment is an HLS video. The API gives no
// better signal than the URL suffix.
func (a *Attachment) IsStream() bool {
	return strings.HasSuffix(a.URL, ".m3u8")
}

// Post is one history entry of a class
type Post struct {
	ID          string                 `json:"id"`
	Text        string                 `json:"text"`
	Date        int64                  `json:"date"`
	Attachments map[string]*Attachment `json:"attachments"`
}

// Time converts the post's millisecond epoch timestamp to a time.Time
func (p *Post) Time() time.Time {
	return time.UnixMilli(p.Date)
}

// Class is one class visible to the account. Students come from the snapshot;
// Posts accumulate across history pages, keyed by post id.
type Class struct {
	ID           string              `json:"id"`
	Key          string              `json:"key"`
	NaturalName  string              `json:"natural_name"`
	Level        string              `json:"level"`
	Organization string              `json:"organization"`
	CreatedAt    int64               `json:"created_at"`
	School       School              `json:"school"`
	Students     map[string]*Student `json:"students"`

	Posts map[string]*Post `json:"-"`
}

// Name returns the class's natural name
func (c *Class) Name() string {
	return c.NaturalName
}

// addPosts merges one history page into the accumulated post mapping.
// Duplicate ids overwrite, so feeding the same page twice is idempotent.
func (c *Class) addPosts(posts map[string]*Post) {
	if c.Posts == nil {
		c.Posts = make(map[string]*Post, len(posts))
	}
	for id, post := range posts {
		if post == nil {
			continue
		}
		if post.ID == "" {
			post.ID = id
		}
		c.Posts[id] = post
	}
}

// AttachmentCount returns the number of attachments across all fetched posts
func (c *Class) AttachmentCount() int {
	count := 0
	for _, post := range c.Posts {
		count += len(post.Attachments)
	}
	return count
}

// Describe renders the class roster as text: class header plus one line per
// student with resolved family links.
func (c *Class) Describe(lookup UserLookup) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s (%s)", c.NaturalName, c.School.Name, c.Level)

	names := make([]string, 0, len(c.Students))
	byName := make(map[string]*Student, len(c.Students))
	for _, student := range c.Students {
		name := student.Name()
		names = append(names, name)
		byName[name] = student
	}
	sort.Strings(names)

	for _, name := range names {
		student := byName[name]
		var family []string
		for _, link := range student.Family(lookup) {
			family = append(family, fmt.Sprintf("%s: %s", link.Relationship, link.User.Name))
		}
		fmt.Fprintf(&b, "\n%s (%s)", name, strings.Join(family, ", "))
	}
	return b.String()
}

// connectResponse is the wire shape of the app.connect snapshot. Missing keys
// decode to nil maps and are treated as empty.
type connectResponse struct {
	Users   map[string]*User  `json:"users"`
	Klasses map[string]*Class `json:"klasses"`
}

// authResponse is the wire shape of the auth.basic response
type authResponse struct {
	AuthToken string `json:"auth_token"`
}

// historyResponse is the wire shape of one klass.history page
type historyResponse struct {
	Posts map[string]*Post `json:"posts"`
}
