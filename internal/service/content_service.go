package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"

	"soulspark/internal/generative"
	"soulspark/internal/media"
	"soulspark/internal/models"
	"soulspark/internal/notifications"
	"soulspark/internal/repository"
	"soulspark/internal/store"

	"github.com/google/uuid"
)

const likeLockStripes = 64

// TextGenerator produces short mood-matched content.
type TextGenerator interface {
	GenerateText(ctx context.Context, mood models.Mood, request string) string
}

// ImageGenerator renders background images.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, mood models.Mood, content string) (generative.Image, error)
}

// ContentService coordinates post operations with the viewer's liked set,
// generated backgrounds and feed events.
type ContentService struct {
	store    *store.ContentStore
	liked    repository.LikedPostsRepository
	text     TextGenerator
	images   ImageGenerator
	media    media.Store
	notifier *notifications.Notifier
	logger   *slog.Logger

	likeLocks [likeLockStripes]sync.Mutex
}

// ContentDeps are the collaborators of a ContentService. Text, Images, Media
// and Notifier may be nil.
type ContentDeps struct {
	Store    *store.ContentStore
	Liked    repository.LikedPostsRepository
	Text     TextGenerator
	Images   ImageGenerator
	Media    media.Store
	Notifier *notifications.Notifier
	Logger   *slog.Logger
}

func NewContentService(deps ContentDeps) *ContentService {
	s := &ContentService{
		store:    deps.Store,
		liked:    deps.Liked,
		text:     deps.Text,
		images:   deps.Images,
		media:    deps.Media,
		notifier: deps.Notifier,
		logger:   deps.Logger,
	}
	if s.liked == nil {
		s.liked = repository.NewMemoryLikedPosts()
	}
	if s.media == nil {
		s.media = media.DataURLStore{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Store exposes the underlying content store.
func (s *ContentService) Store() *store.ContentStore { return s.store }

// CreatePostInput is the client's post submission. Background, when set,
// wins over Template; with neither, the mood's default template is used.
type CreatePostInput struct {
	Content     string             `json:"content"`
	Mood        string             `json:"mood"`
	ContentType string             `json:"content_type"`
	Template    string             `json:"template,omitempty"`
	Background  *models.Background `json:"background,omitempty"`
}

// PostView is a post annotated for one viewer.
type PostView struct {
	*models.Post
	Liked    bool `json:"liked"`
	Reported bool `json:"reported"`
	Own      bool `json:"own"`
}

// LikeOutcome is the viewer-facing result of a like toggle.
type LikeOutcome struct {
	PostID string `json:"post_id"`
	Likes  int    `json:"likes"`
	Liked  bool   `json:"liked"`
}

// ResolveDraft turns client input into a validated draft.
func ResolveDraft(in CreatePostInput) (models.PostDraft, error) {
	if strings.TrimSpace(in.Content) == "" {
		return models.PostDraft{}, models.NewValidationError("Please write something to post.")
	}
	mood, ok := models.ParseMood(in.Mood)
	if !ok {
		return models.PostDraft{}, models.NewValidationError("Unknown mood: " + in.Mood)
	}
	contentType, ok := models.ParseContentType(in.ContentType)
	if !ok {
		return models.PostDraft{}, models.NewValidationError("Unknown content type: " + in.ContentType)
	}

	draft := models.PostDraft{Content: in.Content, Mood: mood, ContentType: contentType}
	switch {
	case in.Background != nil && !in.Background.IsZero():
		draft.Background = *in.Background
	case in.Template != "":
		tmpl, found := models.FindTemplate(in.Template)
		if !found {
			return models.PostDraft{}, models.NewValidationError("Unknown background template: " + in.Template)
		}
		draft.Background = models.ImageBackground(tmpl.ImageURL)
	default:
		draft.Background = models.ImageBackground(models.DefaultTemplate(mood).ImageURL)
	}
	return draft, draft.Validate()
}

// CreatePost publishes a post for identity.
func (s *ContentService) CreatePost(ctx context.Context, in CreatePostInput, identity *models.Identity) (*models.Post, error) {
	if identity == nil {
		return nil, models.NewUnauthenticatedError("You must be logged in to post.")
	}
	draft, err := ResolveDraft(in)
	if err != nil {
		return nil, err
	}
	post, err := s.store.Create(ctx, draft, identity)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, notifications.EventPostCreated, map[string]any{
		"post_id": post.ID,
		"mood":    string(post.Mood),
		"author":  post.Author,
	})
	return post, nil
}

// ToggleLike flips the viewer's like on postID. Toggles by the same viewer are serialized.
func (s *ContentService) ToggleLike(ctx context.Context, viewerID, postID string) (LikeOutcome, error) {
	lock := s.likeLock(viewerID)
	lock.Lock()
	defer lock.Unlock()

	liked, err := s.liked.Get(ctx, viewerID)
	if err != nil {
		return LikeOutcome{}, models.NewInternalError(err)
	}

	res := s.store.ToggleLike(postID, liked)
	if !res.Found {
		return LikeOutcome{}, models.NewNotFoundError("Post", postID)
	}
	if err := s.liked.Save(ctx, viewerID, res.Set); err != nil {
		// Undo the count change so it stays consistent with the stored set.
		s.store.ToggleLike(postID, res.Set)
		return LikeOutcome{}, models.NewInternalError(err)
	}

	s.publish(ctx, notifications.EventPostReactionUpdated, map[string]any{
		"post_id": postID,
		"likes":   res.Likes,
	})
	return LikeOutcome{PostID: postID, Likes: res.Likes, Liked: res.Liked}, nil
}

// AddComment appends a comment by identity.
func (s *ContentService) AddComment(ctx context.Context, postID, text string, identity *models.Identity) (*models.Post, error) {
	post, err := s.store.AddComment(ctx, postID, text, identity)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, notifications.EventCommentCreated, map[string]any{
		"post_id":  post.ID,
		"comments": len(post.Comments),
	})
	return post, nil
}

// ReportPost files a report by identity. Authors cannot report their own posts.
func (s *ContentService) ReportPost(ctx context.Context, postID string, identity *models.Identity) (store.ReportResult, error) {
	if identity == nil {
		return store.ReportResult{}, models.NewUnauthenticatedError("You must be logged in to report.")
	}
	if post, ok := s.store.Get(postID); ok && post.AuthorID != "" && post.AuthorID == identity.ID {
		return store.ReportResult{}, models.NewForbiddenError("You cannot report your own post.")
	}

	res, err := s.store.ReportPost(ctx, postID, identity)
	if err != nil {
		return res, err
	}
	if res.Duplicate {
		return res, nil
	}

	s.publish(ctx, notifications.EventPostReported, map[string]any{
		"post_id": postID,
		"reports": res.Post.Reports,
	})
	if res.Removed {
		s.publish(ctx, notifications.EventPostRemoved, map[string]any{"post_id": postID})
	}
	return res, nil
}

// Feed lists posts matching filter, annotated for the viewer.
func (s *ContentService) Feed(ctx context.Context, viewerID string, identity *models.Identity, filter store.Filter) ([]PostView, error) {
	liked, err := s.likedSet(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	posts := s.store.List(filter)
	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, annotate(p, liked, identity))
	}
	return views, nil
}

// View annotates a single post for the viewer.
func (s *ContentService) View(ctx context.Context, viewerID string, identity *models.Identity, post *models.Post) (PostView, error) {
	liked, err := s.likedSet(ctx, viewerID)
	if err != nil {
		return PostView{}, err
	}
	return annotate(post, liked, identity), nil
}

func (s *ContentService) likedSet(ctx context.Context, viewerID string) (models.IDSet, error) {
	if viewerID == "" {
		return models.NewIDSet(), nil
	}
	liked, err := s.liked.Get(ctx, viewerID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return liked, nil
}

func annotate(p *models.Post, liked models.IDSet, identity *models.Identity) PostView {
	v := PostView{Post: p, Liked: liked.Has(p.ID)}
	if identity != nil {
		v.Reported = p.ReportedBy.Has(identity.ID)
		v.Own = p.AuthorID != "" && p.AuthorID == identity.ID
	}
	return v
}

// Assist drafts content for a mood and content type.
func (s *ContentService) Assist(ctx context.Context, mood, contentType string) (string, error) {
	m, ok := models.ParseMood(mood)
	if !ok {
		return "", models.NewValidationError("Unknown mood: " + mood)
	}
	ct, ok := models.ParseContentType(contentType)
	if !ok {
		return "", models.NewValidationError("Unknown content type: " + contentType)
	}
	if s.text == nil {
		return generative.TextFallback, nil
	}
	return s.text.GenerateText(ctx, m, generative.AssistPrompt(m, ct)), nil
}

// GenerateBackground renders an AI background for content and stores it,
// returning a reference usable as an image background.
func (s *ContentService) GenerateBackground(ctx context.Context, content, mood string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", models.NewValidationError("Please write something first to generate a background.")
	}
	m, ok := models.ParseMood(mood)
	if !ok {
		return "", models.NewValidationError("Unknown mood: " + mood)
	}
	if s.images == nil {
		return "", models.NewProviderError(generative.ImageFailureMessage, nil)
	}

	img, err := s.images.GenerateImage(ctx, m, content)
	if err != nil {
		return "", err
	}
	ext := "png"
	if img.MIMEType == "image/jpeg" {
		ext = "jpeg"
	}
	name := fmt.Sprintf("generated/%s.%s", uuid.NewString(), ext)
	ref, err := s.media.Put(ctx, name, img.Data, img.MIMEType)
	if err != nil {
		return "", models.NewProviderError(generative.ImageFailureMessage, err)
	}
	return ref, nil
}

// UploadBackground stores an already-normalized image.
func (s *ContentService) UploadBackground(ctx context.Context, img media.Processed) (string, error) {
	ref, err := s.media.Put(ctx, img.ObjectName(), img.Data, img.ContentType)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return ref, nil
}

func (s *ContentService) likeLock(viewerID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(viewerID))
	return &s.likeLocks[h.Sum32()%likeLockStripes]
}

func (s *ContentService) publish(ctx context.Context, eventType string, payload map[string]any) {
	if err := s.notifier.Publish(ctx, eventType, payload); err != nil {
		s.logger.WarnContext(ctx, "failed to publish feed event",
			slog.String("event", eventType), slog.String("error", err.Error()))
	}
}
