package models

import (
	"encoding/json"
	"slices"
	"strings"
	"time"
)

// Identity is the authenticated actor performing an operation.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Comment is an immutable reply attached to a post.
type Comment struct {
	ID     string `json:"id"`
	Author string `json:"author"`
	Text   string `json:"text"`
}

// IDSet is an unordered set of string ids, encoded as a sorted JSON array.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids, dropping duplicates.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Add(id string)    { s[id] = struct{}{} }
func (s IDSet) Remove(id string) { delete(s, id) }

// Clone returns an independent copy; cloning nil yields an empty set.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Slice returns the ids in sorted order.
func (s IDSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}

// Post is a unit of shared content in the feed.
type Post struct {
	ID          string      `json:"id"`
	Content     string      `json:"content"`
	Author      string      `json:"author"`
	AuthorID    string      `json:"author_id,omitempty"`
	Mood        Mood        `json:"mood"`
	ContentType ContentType `json:"content_type"`
	Background  Background  `json:"background"`
	Likes       int         `json:"likes"`
	Comments    []Comment   `json:"comments"`
	Reports     int         `json:"reports"`
	ReportedBy  IDSet       `json:"reported_by"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Clone returns a deep copy of the post.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	out := *p
	out.Comments = slices.Clone(p.Comments)
	if out.Comments == nil {
		out.Comments = []Comment{}
	}
	out.ReportedBy = p.ReportedBy.Clone()
	return &out
}

// PostDraft is the author-supplied part of a new post.
type PostDraft struct {
	Content     string      `json:"content"`
	Mood        Mood        `json:"mood"`
	ContentType ContentType `json:"content_type"`
	Background  Background  `json:"background"`
}

// Validate checks the draft fields an author controls.
func (d PostDraft) Validate() error {
	if strings.TrimSpace(d.Content) == "" {
		return NewValidationError("Content cannot be empty")
	}
	if !d.Mood.Valid() {
		return NewValidationError("Unknown mood: " + string(d.Mood))
	}
	if !d.ContentType.Valid() {
		return NewValidationError("Unknown content type: " + string(d.ContentType))
	}
	if err := d.Background.Validate(); err != nil {
		return NewValidationError(err.Error())
	}
	return nil
}
