package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"

	"soulspark/internal/generative"
	"soulspark/internal/models"
	"soulspark/internal/repository"
	"soulspark/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type textStub struct {
	mood    models.Mood
	request string
	reply   string
}

func (s *textStub) GenerateText(_ context.Context, mood models.Mood, request string) string {
	s.mood, s.request = mood, request
	return s.reply
}

type imageStub struct {
	img generative.Image
	err error
}

func (s *imageStub) GenerateImage(context.Context, models.Mood, string) (generative.Image, error) {
	return s.img, s.err
}

// likedRepoStub fails Save when saveErr is set.
type likedRepoStub struct {
	repository.LikedPostsRepository
	saveErr error
}

func (s *likedRepoStub) Save(ctx context.Context, viewerID string, liked models.IDSet) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.LikedPostsRepository.Save(ctx, viewerID, liked)
}

func newContentService(t *testing.T, deps ContentDeps) *ContentService {
	t.Helper()
	if deps.Store == nil {
		seq := 0
		var mu sync.Mutex
		deps.Store = store.NewContentStore(store.Options{
			ReportThreshold: 3,
			NewID: func() string {
				mu.Lock()
				defer mu.Unlock()
				seq++
				return "p" + strconv.Itoa(seq)
			},
		})
	}
	return NewContentService(deps)
}

func author(id string) *models.Identity {
	return &models.Identity{ID: id, DisplayName: "user" + id}
}

func TestResolveDraft(t *testing.T) {
	t.Parallel()

	draft, err := ResolveDraft(CreatePostInput{Content: "hi", Mood: "joyful", ContentType: "haiku"})
	require.NoError(t, err)
	assert.Equal(t, models.MoodJoyful, draft.Mood)
	assert.Equal(t, models.ContentHaiku, draft.ContentType)
	assert.Equal(t, models.ImageBackground(models.DefaultTemplate(models.MoodJoyful).ImageURL), draft.Background)

	draft, err = ResolveDraft(CreatePostInput{Content: "hi", Mood: "Joyful", ContentType: "Quote", Template: "peaceful"})
	require.NoError(t, err)
	peaceful, _ := models.FindTemplate("Peaceful")
	assert.Equal(t, peaceful.ImageURL, draft.Background.Value())

	custom := models.ImageBackground("data:image/png;base64,AAAA")
	draft, err = ResolveDraft(CreatePostInput{Content: "hi", Mood: "Joyful", ContentType: "Quote", Template: "Peaceful", Background: &custom})
	require.NoError(t, err)
	assert.Equal(t, custom, draft.Background, "an uploaded or generated image replaces the template")

	tests := []CreatePostInput{
		{Content: "  ", Mood: "Joyful", ContentType: "Quote"},
		{Content: "hi", Mood: "Bored", ContentType: "Quote"},
		{Content: "hi", Mood: "Joyful", ContentType: "Limerick"},
		{Content: "hi", Mood: "Joyful", ContentType: "Quote", Template: "Nope"},
	}
	for _, in := range tests {
		_, err := ResolveDraft(in)
		assertCode(t, err, models.CodeValidation)
	}
}

func TestContentService_CreatePost(t *testing.T) {
	t.Parallel()
	svc := newContentService(t, ContentDeps{})
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, CreatePostInput{Content: "hi", Mood: "Joyful", ContentType: "Quote"}, nil)
	assertCode(t, err, models.CodeUnauthenticated)

	post, err := svc.CreatePost(ctx, CreatePostInput{Content: "hi", Mood: "Joyful", ContentType: "Quote"}, author("1"))
	require.NoError(t, err)
	assert.Equal(t, "user1", post.Author)
	assert.Equal(t, 1, svc.Store().Len())
}

func TestContentService_ToggleLike(t *testing.T) {
	t.Parallel()
	svc := newContentService(t, ContentDeps{})
	ctx := context.Background()
	post, err := svc.CreatePost(ctx, CreatePostInput{Content: "hi", Mood: "Joyful", ContentType: "Quote"}, author("1"))
	require.NoError(t, err)

	out, err := svc.ToggleLike(ctx, "viewer-a", post.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeOutcome{PostID: post.ID, Likes: 1, Liked: true}, out)

	out, err = svc.ToggleLike(ctx, "viewer-b", post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Likes)

	out, err = svc.ToggleLike(ctx, "viewer-a", post.ID)
	require.NoError(t, err)
	assert.Equal(t, LikeOutcome{PostID: post.ID, Likes: 1, Liked: false}, out)

	_, err = svc.ToggleLike(ctx, "viewer-a", "missing")
	assertCode(t, err, models.CodeNotFound)
}

func TestContentService_ToggleLikeConcurrentSameViewer(t *testing.T) {
	t.Parallel()
	svc := newContentService(t, ContentDeps{})
	ctx := context.Background()
	post, err := svc.CreatePost(ctx, CreatePostInput{Content: "hi", Mood: "Joyful", ContentType: "Quote"}, author("1"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.ToggleLike(ctx, "viewer-a", post.ID)
		}()
	}
	wg.Wait()

	got, _ := svc.Store().Get(post.ID)
	assert.Equal(t, 0, got.Likes, "an even number of toggles by one viewer nets to zero")
}

func TestContentService_ToggleLikeRollsBackOnSaveFailure(t *testing.T) {
	t.Parallel()
	liked := &likedRepoStub{LikedPostsRepository: repository.NewMemoryLikedPosts(), saveErr: errors.New("redis down")}
	svc := newContentService(t, ContentDeps{Liked: liked})
	ctx := context.Background()
	post, err := svc.CreatePost(ctx, CreatePostInput{Content: "hi", Mood: "Joyful", ContentType: "Quote"}, author("1"))
	require.NoError(t, err)

	_, err = svc.ToggleLike(ctx, "viewer-a", post.ID)
	assertCode(t, err, models.CodeInternal)

	got, _ := svc.Store().Get(post.ID)
	assert.Equal(t, 0, got.Likes)
}

func TestContentService_ReportPost(t *testing.T) {
	t.Parallel()
	svc := newContentService(t, ContentDeps{})
	ctx := context.Background()
	post, err := svc.CreatePost(ctx, CreatePostInput{Content: "hi", Mood: "Lonely", ContentType: "Story"}, author("1"))
	require.NoError(t, err)

	_, err = svc.ReportPost(ctx, post.ID, author("1"))
	assertCode(t, err, models.CodeForbidden)

	_, err = svc.ReportPost(ctx, post.ID, nil)
	assertCode(t, err, models.CodeUnauthenticated)

	res, err := svc.ReportPost(ctx, post.ID, author("2"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Post.Reports)

	res, err = svc.ReportPost(ctx, post.ID, author("2"))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, 1, res.Post.Reports)

	_, err = svc.ReportPost(ctx, post.ID, author("3"))
	require.NoError(t, err)
	res, err = svc.ReportPost(ctx, post.ID, author("4"))
	require.NoError(t, err)
	assert.True(t, res.Removed)

	_, err = svc.ReportPost(ctx, post.ID, author("5"))
	assertCode(t, err, models.CodeNotFound)
}

func TestContentService_FeedAnnotations(t *testing.T) {
	t.Parallel()
	svc := newContentService(t, ContentDeps{})
	ctx := context.Background()

	mine, err := svc.CreatePost(ctx, CreatePostInput{Content: "mine", Mood: "Joyful", ContentType: "Quote"}, author("1"))
	require.NoError(t, err)
	theirs, err := svc.CreatePost(ctx, CreatePostInput{Content: "theirs", Mood: "Lonely", ContentType: "Story"}, author("2"))
	require.NoError(t, err)

	_, err = svc.ToggleLike(ctx, "user:1", theirs.ID)
	require.NoError(t, err)
	_, err = svc.ReportPost(ctx, theirs.ID, author("1"))
	require.NoError(t, err)

	views, err := svc.Feed(ctx, "user:1", author("1"), store.Filter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, theirs.ID, views[0].ID)
	assert.True(t, views[0].Liked)
	assert.True(t, views[0].Reported)
	assert.False(t, views[0].Own)
	assert.Equal(t, mine.ID, views[1].ID)
	assert.True(t, views[1].Own)

	stories, err := svc.Feed(ctx, "", nil, store.Filter{ContentType: models.ContentStory})
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.False(t, stories[0].Liked)
}

func TestContentService_Assist(t *testing.T) {
	t.Parallel()
	text := &textStub{reply: "The sun paints the sky."}
	svc := newContentService(t, ContentDeps{Text: text})

	got, err := svc.Assist(context.Background(), "joyful", "haiku")
	require.NoError(t, err)
	assert.Equal(t, "The sun paints the sky.", got)
	assert.Equal(t, models.MoodJoyful, text.mood)
	assert.Equal(t, "a haiku about feeling joyful", text.request)

	_, err = svc.Assist(context.Background(), "bored", "haiku")
	assertCode(t, err, models.CodeValidation)
}

func TestContentService_GenerateBackground(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	svc := newContentService(t, ContentDeps{Images: &imageStub{img: generative.Image{Data: []byte("png"), MIMEType: "image/png"}}})
	ref, err := svc.GenerateBackground(ctx, "A quiet harbor", "Lonely")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "data:image/png;base64,"))

	_, err = svc.GenerateBackground(ctx, "   ", "Lonely")
	assertCode(t, err, models.CodeValidation)

	failing := newContentService(t, ContentDeps{Images: &imageStub{err: models.NewProviderError(generative.ImageFailureMessage, errors.New("boom"))}})
	_, err = failing.GenerateBackground(ctx, "A quiet harbor", "Lonely")
	assertCode(t, err, models.CodeProviderFailure)

	none := newContentService(t, ContentDeps{})
	_, err = none.GenerateBackground(ctx, "A quiet harbor", "Lonely")
	assertCode(t, err, models.CodeProviderFailure)
}
