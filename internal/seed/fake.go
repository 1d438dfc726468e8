package seed

import (
	"fmt"
	"log/slog"
	"time"

	"soulspark/internal/models"
	"soulspark/internal/store"

	"github.com/brianvoe/gofakeit/v6"
)

// FakePosts builds n synthetic posts. The same seed yields the same posts.
func FakePosts(n int, seed int64, now time.Time) []*models.Post {
	faker := gofakeit.New(seed)
	out := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		mood := models.Moods[faker.Number(0, len(models.Moods)-1)]
		contentType := models.ContentTypes[faker.Number(0, len(models.ContentTypes)-1)]
		tmpl := models.BackgroundTemplates[faker.Number(0, len(models.BackgroundTemplates)-1)]

		bg := models.ImageBackground(tmpl.ImageURL)
		if faker.Bool() {
			bg = models.StyleBackground(tmpl.Style)
		}

		comments := make([]models.Comment, 0, 2)
		for j := faker.Number(0, 2); j > 0; j-- {
			comments = append(comments, models.Comment{
				ID:     faker.UUID(),
				Author: faker.FirstName(),
				Text:   faker.Sentence(6),
			})
		}

		out = append(out, &models.Post{
			ID:          fmt.Sprintf("fake-%s", faker.UUID()),
			Content:     fakeContent(faker, contentType),
			Author:      faker.FirstName(),
			Mood:        mood,
			ContentType: contentType,
			Background:  bg,
			Likes:       faker.Number(0, 500),
			Comments:    comments,
			ReportedBy:  models.NewIDSet(),
			CreatedAt:   now.Add(-time.Duration(faker.Number(1, 72*60)) * time.Minute),
		})
	}
	return out
}

func fakeContent(faker *gofakeit.Faker, contentType models.ContentType) string {
	switch contentType {
	case models.ContentStory, models.ContentConfession:
		return faker.Paragraph(1, 4, 12, " ")
	case models.ContentHaiku:
		return faker.Sentence(5) + " " + faker.Sentence(7) + " " + faker.Sentence(5)
	case models.ContentQuote:
		return faker.Quote()
	default:
		return faker.Sentence(12)
	}
}

// Options selects which content Populate loads.
type Options struct {
	Demo     bool
	Fake     int
	FakeSeed int64
	Now      func() time.Time
	Logger   *slog.Logger
}

// Populate seeds s and returns how many posts were loaded.
func Populate(s *store.ContentStore, opts Options) int {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var posts []*models.Post
	if opts.Demo {
		posts = append(posts, DemoPosts(now())...)
	}
	if opts.Fake > 0 {
		seed := opts.FakeSeed
		if seed == 0 {
			seed = now().UnixNano()
		}
		posts = append(posts, FakePosts(opts.Fake, seed, now())...)
	}
	if len(posts) == 0 {
		return 0
	}

	n := s.Seed(posts...)
	logger.Info("seeded content store", slog.Int("posts", n), slog.Bool("demo", opts.Demo), slog.Int("fake", opts.Fake))
	return n
}
