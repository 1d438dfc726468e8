// Package models contains data structures for the application's domain models.
package models

import "strings"

// Mood is the emotional state a post is tagged with.
type Mood string

const (
	MoodInspired    Mood = "Inspired"
	MoodJoyful      Mood = "Joyful"
	MoodGrateful    Mood = "Grateful"
	MoodRomantic    Mood = "Romantic"
	MoodMotivated   Mood = "Motivated"
	MoodCreative    Mood = "Creative"
	MoodHeartbroken Mood = "Heartbroken"
	MoodAnxious     Mood = "Anxious"
	MoodLonely      Mood = "Lonely"
)

// Moods lists every mood in display order.
var Moods = []Mood{
	MoodInspired, MoodJoyful, MoodGrateful, MoodRomantic, MoodMotivated,
	MoodCreative, MoodHeartbroken, MoodAnxious, MoodLonely,
}

// Valid reports whether m is one of the known moods.
func (m Mood) Valid() bool {
	for _, known := range Moods {
		if m == known {
			return true
		}
	}
	return false
}

// ParseMood matches s case-insensitively against the known moods.
func ParseMood(s string) (Mood, bool) {
	s = strings.TrimSpace(s)
	for _, known := range Moods {
		if strings.EqualFold(s, string(known)) {
			return known, true
		}
	}
	return "", false
}

// ContentType is the literary form of a post.
type ContentType string

const (
	ContentQuote       ContentType = "Quote"
	ContentLifeLesson  ContentType = "Life Lesson"
	ContentStory       ContentType = "Story"
	ContentFlirtyLine  ContentType = "Flirty Line"
	ContentHaiku       ContentType = "Haiku"
	ContentConfession  ContentType = "Confession"
	ContentAffirmation ContentType = "Affirmation"
)

// ContentTypes lists every content type in display order.
var ContentTypes = []ContentType{
	ContentQuote, ContentLifeLesson, ContentStory, ContentFlirtyLine,
	ContentHaiku, ContentConfession, ContentAffirmation,
}

func (t ContentType) Valid() bool {
	for _, known := range ContentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseContentType matches s case-insensitively against the known content types.
func ParseContentType(s string) (ContentType, bool) {
	s = strings.TrimSpace(s)
	for _, known := range ContentTypes {
		if strings.EqualFold(s, string(known)) {
			return known, true
		}
	}
	return "", false
}
