// Package store holds the in-memory post collection and enforces its moderation rules.
package store

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"soulspark/internal/models"
	"soulspark/internal/observability"

	"github.com/google/uuid"
)

const (
	// DefaultDailyLimit is the number of posts an identity may create per UTC day.
	DefaultDailyLimit = 10
	// DefaultReportThreshold is the report count at which a post is removed.
	DefaultReportThreshold = 15

	dateLayout = "2006-01-02"
)

// Options configures a ContentStore. Zero values fall back to defaults.
type Options struct {
	Quota           Quota
	DailyLimit      int
	ReportThreshold int
	Now             func() time.Time
	NewID           func() string
	Logger          *slog.Logger
}

// ContentStore is the authoritative, process-lifetime collection of posts.
// Posts are kept newest-first. All methods are safe for concurrent use.
type ContentStore struct {
	mu    sync.RWMutex
	posts []*models.Post
	byID  map[string]*models.Post

	quota     Quota
	limit     int
	threshold int
	now       func() time.Time
	newID     func() string
	logger    *slog.Logger
}

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	Mood        models.Mood
	ContentType models.ContentType
	AuthorID    string
}

func (f Filter) match(p *models.Post) bool {
	if f.Mood != "" && p.Mood != f.Mood {
		return false
	}
	if f.ContentType != "" && p.ContentType != f.ContentType {
		return false
	}
	if f.AuthorID != "" && p.AuthorID != f.AuthorID {
		return false
	}
	return true
}

// ReportResult describes the outcome of a report.
type ReportResult struct {
	Post      *models.Post
	Removed   bool
	Duplicate bool
}

// LikeResult describes the outcome of a like toggle.
type LikeResult struct {
	Likes int
	Liked bool
	Set   models.IDSet
	Found bool
}

// NewContentStore creates an empty store.
func NewContentStore(opts Options) *ContentStore {
	s := &ContentStore{
		byID:      make(map[string]*models.Post),
		quota:     opts.Quota,
		limit:     opts.DailyLimit,
		threshold: opts.ReportThreshold,
		now:       opts.Now,
		newID:     opts.NewID,
		logger:    opts.Logger,
	}
	if s.quota == nil {
		s.quota = NewMemoryQuota()
	}
	if s.limit <= 0 {
		s.limit = DefaultDailyLimit
	}
	if s.threshold <= 0 {
		s.threshold = DefaultReportThreshold
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.Must(uuid.NewV7()).String() }
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// DailyLimit returns the configured per-identity daily post limit.
func (s *ContentStore) DailyLimit() int { return s.limit }

// ReportThreshold returns the report count that removes a post.
func (s *ContentStore) ReportThreshold() int { return s.threshold }

// today returns the current UTC calendar date as the quota key.
func (s *ContentStore) today() string {
	return s.now().UTC().Format(dateLayout)
}

// Create validates draft, charges the identity's daily quota and inserts the
// new post at the head of the collection.
func (s *ContentStore) Create(ctx context.Context, draft models.PostDraft, identity *models.Identity) (*models.Post, error) {
	if identity == nil {
		return nil, models.NewUnauthenticatedError("You must be logged in to post.")
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	// Reservation and insert happen under the same lock.
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.quota.Reserve(ctx, identity.ID, s.today(), s.limit)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if !ok {
		observability.QuotaRejections.Inc()
		s.logger.InfoContext(ctx, "daily post limit reached",
			slog.String("identity", identity.ID), slog.Int("limit", s.limit))
		return nil, models.NewRateLimitError(dailyLimitMessage(s.limit))
	}

	post := &models.Post{
		ID:          s.newID(),
		Content:     strings.TrimSpace(draft.Content),
		Author:      identity.DisplayName,
		AuthorID:    identity.ID,
		Mood:        draft.Mood,
		ContentType: draft.ContentType,
		Background:  draft.Background,
		Comments:    []models.Comment{},
		ReportedBy:  models.IDSet{},
		CreatedAt:   s.now(),
	}
	s.posts = append([]*models.Post{post}, s.posts...)
	s.byID[post.ID] = post

	observability.PostsCreated.WithLabelValues(string(post.Mood)).Inc()
	s.logger.InfoContext(ctx, "post created",
		slog.String("post_id", post.ID), slog.String("mood", string(post.Mood)))
	return post.Clone(), nil
}

// ToggleLike flips postID in the viewer's liked set and adjusts the aggregate
// count by exactly one. An unknown post leaves everything unchanged.
func (s *ContentStore) ToggleLike(postID string, liked models.IDSet) LikeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.byID[postID]
	if !ok {
		return LikeResult{Set: liked, Found: false}
	}

	next := liked.Clone()
	if next.Has(postID) {
		next.Remove(postID)
		if post.Likes > 0 {
			post.Likes--
		}
	} else {
		next.Add(postID)
		post.Likes++
	}
	return LikeResult{Likes: post.Likes, Liked: next.Has(postID), Set: next, Found: true}
}

// AddComment appends a comment authored by identity to the post.
func (s *ContentStore) AddComment(ctx context.Context, postID, text string, identity *models.Identity) (*models.Post, error) {
	if identity == nil {
		return nil, models.NewUnauthenticatedError("You must be logged in to comment.")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("Comment cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.byID[postID]
	if !ok {
		return nil, models.NewNotFoundError("Post", postID)
	}
	post.Comments = append(post.Comments, models.Comment{
		ID:     s.newID(),
		Author: identity.DisplayName,
		Text:   text,
	})
	s.logger.DebugContext(ctx, "comment added", slog.String("post_id", postID))
	return post.Clone(), nil
}

// ReportPost records identity's report against the post. Repeat reports by the
// same identity are no-ops. Reaching the threshold removes the post for good.
func (s *ContentStore) ReportPost(ctx context.Context, postID string, identity *models.Identity) (ReportResult, error) {
	if identity == nil {
		return ReportResult{}, models.NewUnauthenticatedError("You must be logged in to report.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.byID[postID]
	if !ok {
		return ReportResult{}, models.NewNotFoundError("Post", postID)
	}
	if post.ReportedBy.Has(identity.ID) {
		return ReportResult{Post: post.Clone(), Duplicate: true}, nil
	}

	post.ReportedBy.Add(identity.ID)
	post.Reports = len(post.ReportedBy)
	observability.ReportsFiled.Inc()

	if post.Reports < s.threshold {
		return ReportResult{Post: post.Clone()}, nil
	}

	s.removeLocked(postID)
	observability.PostsRemoved.Inc()
	s.logger.WarnContext(ctx, "post removed after reports",
		slog.String("post_id", postID), slog.Int("reports", post.Reports))
	return ReportResult{Post: post.Clone(), Removed: true}, nil
}

func (s *ContentStore) removeLocked(postID string) {
	delete(s.byID, postID)
	s.posts = slices.DeleteFunc(s.posts, func(p *models.Post) bool { return p.ID == postID })
}

// Get returns a copy of the post with the given id.
func (s *ContentStore) Get(postID string) (*models.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.byID[postID]
	if !ok {
		return nil, false
	}
	return post.Clone(), true
}

// List returns copies of the posts matching f, newest first.
func (s *ContentStore) List(f Filter) []*models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if f.match(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Len returns the number of live posts.
func (s *ContentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}

// Seed appends preloaded posts after the existing ones, in the given order.
// Posts with duplicate ids or at or above the report threshold are skipped.
func (s *ContentStore) Seed(posts ...*models.Post) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for _, p := range posts {
		if p == nil || p.ID == "" {
			continue
		}
		if _, exists := s.byID[p.ID]; exists {
			continue
		}
		post := p.Clone()
		if post.ReportedBy == nil {
			post.ReportedBy = models.IDSet{}
		}
		post.Reports = len(post.ReportedBy)
		if post.Reports >= s.threshold {
			continue
		}
		if post.CreatedAt.IsZero() {
			post.CreatedAt = s.now()
		}
		s.posts = append(s.posts, post)
		s.byID[post.ID] = post
		added++
	}
	return added
}

func dailyLimitMessage(limit int) string {
	return "You have reached your daily post limit of " + strconv.Itoa(limit) + " posts."
}
