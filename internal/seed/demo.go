// Package seed loads demo content into the content store.
package seed

import (
	"strconv"
	"time"

	"soulspark/internal/models"
)

type demoPost struct {
	content     string
	author      string
	mood        models.Mood
	contentType models.ContentType
	style       string
	likes       int
	comments    []models.Comment
}

var demoPosts = []demoPost{
	{
		content:     "The only way to do great work is to love what you do.",
		author:      "Steve Jobs",
		mood:        models.MoodMotivated,
		contentType: models.ContentQuote,
		style:       "bg-gradient-to-br from-indigo-500 to-purple-600",
		likes:       132,
	},
	{
		content:     "In the midst of chaos, there is also opportunity.",
		author:      "Sun Tzu",
		mood:        models.MoodInspired,
		contentType: models.ContentLifeLesson,
		likes:       256,
		comments: []models.Comment{
			{ID: "c1", Author: "Jane", Text: "So true!"},
			{ID: "c2", Author: "Alex", Text: "Needed to hear this today."},
		},
	},
	{
		content:     "Are you a magician? Because whenever I look at you, everyone else disappears.",
		author:      "Sparky",
		mood:        models.MoodRomantic,
		contentType: models.ContentFlirtyLine,
		likes:       489,
	},
	{
		content: "It was a cold Tuesday morning when I realized that the greatest lessons aren't learned in classrooms, " +
			"but in the quiet moments of reflection after a failure. Every stumble, every fall, is not a step backward " +
			"but a chance to learn the terrain of your own resilience. I remember sitting by the window, watching the " +
			"rain trace paths on the glass, and it felt like my own journey being mapped out—a series of winding, " +
			"unpredictable lines that somehow, eventually, led to a clearer view. That's the beauty of it, I think. " +
			"We don't just endure the storms; we learn to dance in them, finding a rhythm in the chaos that becomes " +
			"our own unique strength.",
		author:      "Jane Doe",
		mood:        models.MoodCreative,
		contentType: models.ContentStory,
		style:       "bg-gradient-to-br from-sky-500 to-blue-600",
		likes:       88,
	},
	{
		content:     "The sun paints the sky with gold, a new day's story to unfold.",
		author:      "Aura",
		mood:        models.MoodJoyful,
		contentType: models.ContentHaiku,
		likes:       95,
	},
	{
		content:     "I am worthy of peace, joy, and abundance. I release all that does not serve me.",
		author:      "Self",
		mood:        models.MoodGrateful,
		contentType: models.ContentAffirmation,
		likes:       150,
	},
	{
		content: "The weight of the world feels heavy today. I confessed my fears to the moon, and it simply listened, " +
			"bathing me in a soft, silver light. It didn't offer solutions, just presence. And for now, that's enough.",
		author:      "Anonymous",
		mood:        models.MoodAnxious,
		contentType: models.ContentConfession,
		likes:       210,
	},
	{
		content:     "A room full of people, yet an ocean of silence separates my island from the mainland. I hope a friendly ship sails by soon.",
		author:      "Wanderer",
		mood:        models.MoodLonely,
		contentType: models.ContentStory,
		likes:       301,
	},
	{
		content:     "Sometimes strength is not a roar, but the quiet voice at the end of the day that says, 'I will try again tomorrow.'",
		author:      "Hope",
		mood:        models.MoodMotivated,
		contentType: models.ContentLifeLesson,
		likes:       412,
	},
	{
		content:     "I forgive myself for yesterday's mistakes and embrace the clean slate of today.",
		author:      "Me",
		mood:        models.MoodHeartbroken,
		contentType: models.ContentAffirmation,
		likes:       188,
	},
}

// DemoPosts returns the starter feed, newest first, with ids "1" through "10".
// Posts without a style use their mood's template image.
func DemoPosts(now time.Time) []*models.Post {
	out := make([]*models.Post, 0, len(demoPosts))
	for i, d := range demoPosts {
		bg := models.ImageBackground(models.DefaultTemplate(d.mood).ImageURL)
		if d.style != "" {
			bg = models.StyleBackground(d.style)
		}
		comments := append([]models.Comment{}, d.comments...)
		out = append(out, &models.Post{
			ID:          strconv.Itoa(i + 1),
			Content:     d.content,
			Author:      d.author,
			Mood:        d.mood,
			ContentType: d.contentType,
			Background:  bg,
			Likes:       d.likes,
			Comments:    comments,
			ReportedBy:  models.NewIDSet(),
			CreatedAt:   now.Add(-time.Duration(i+1) * time.Hour),
		})
	}
	return out
}
