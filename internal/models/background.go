package models

import (
	"encoding/json"
	"errors"
	"strings"
)

// BackgroundKind discriminates the two background variants.
type BackgroundKind string

const (
	BackgroundStyle BackgroundKind = "style"
	BackgroundImage BackgroundKind = "image"
)

// Background is either a named visual style token or an image reference.
// Exactly one of the two is ever set.
type Background struct {
	kind  BackgroundKind
	value string
}

// StyleBackground returns a background rendered from a style token.
func StyleBackground(token string) Background {
	return Background{kind: BackgroundStyle, value: token}
}

// ImageBackground returns a background rendered from an image URL or data URL.
func ImageBackground(ref string) Background {
	return Background{kind: BackgroundImage, value: ref}
}

func (b Background) Kind() BackgroundKind { return b.kind }
func (b Background) Value() string        { return b.value }

// IsZero reports whether no variant has been chosen.
func (b Background) IsZero() bool { return b.kind == "" }

// Validate checks that exactly one non-empty variant is set.
func (b Background) Validate() error {
	switch b.kind {
	case BackgroundStyle, BackgroundImage:
	case "":
		return errors.New("background is required")
	default:
		return errors.New("unknown background kind")
	}
	if strings.TrimSpace(b.value) == "" {
		return errors.New("background value is required")
	}
	return nil
}

type backgroundJSON struct {
	Style string `json:"style,omitempty"`
	Image string `json:"image,omitempty"`
}

func (b Background) MarshalJSON() ([]byte, error) {
	var out backgroundJSON
	switch b.kind {
	case BackgroundStyle:
		out.Style = b.value
	case BackgroundImage:
		out.Image = b.value
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts {"style": "..."} or {"image": "..."}, never both.
func (b *Background) UnmarshalJSON(data []byte) error {
	var in backgroundJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch {
	case in.Style != "" && in.Image != "":
		return errors.New("background must be either a style or an image, not both")
	case in.Style != "":
		*b = StyleBackground(in.Style)
	case in.Image != "":
		*b = ImageBackground(in.Image)
	default:
		*b = Background{}
	}
	return nil
}

// BackgroundTemplate is a predefined background offered to post authors.
type BackgroundTemplate struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
	Style    string `json:"style"`
}

// BackgroundTemplates are the built-in backgrounds, one per mood plus extras.
var BackgroundTemplates = []BackgroundTemplate{
	{Name: "Inspired", ImageURL: "https://images.unsplash.com/photo-1518632902625-4a8a0750c548?q=80&w=2070&auto=format&fit=crop", Style: "bg-gradient-to-br from-indigo-500 to-purple-600"},
	{Name: "Joyful", ImageURL: "https://images.unsplash.com/photo-1490750967868-88aa4486c946?q=80&w=2070&auto=format&fit=crop", Style: "bg-gradient-to-br from-yellow-400 to-orange-500"},
	{Name: "Grateful", ImageURL: "https://images.unsplash.com/photo-1509619192250-93407954e38a?q=80&w=1964&auto=format&fit=crop", Style: "bg-gradient-to-br from-green-500 to-emerald-600"},
	{Name: "Romantic", ImageURL: "https://images.unsplash.com/photo-1518895318357-96e77e2e4344?q=80&w=1974&auto=format&fit=crop", Style: "bg-gradient-to-br from-rose-500 to-pink-600"},
	{Name: "Motivated", ImageURL: "https://images.unsplash.com/photo-1529333166437-77501bd395a1?q=80&w=2070&auto=format&fit=crop", Style: "bg-gradient-to-br from-teal-500 to-cyan-600"},
	{Name: "Creative", ImageURL: "https://images.unsplash.com/photo-1511447333015-45b65e60f6d5?q=80&w=2155&auto=format&fit=crop", Style: "bg-gradient-to-br from-sky-500 to-blue-600"},
	{Name: "Heartbroken", ImageURL: "https://images.unsplash.com/photo-1558020246-5080a9445844?q=80&w=1974&auto=format&fit=crop", Style: "bg-gradient-to-br from-slate-600 to-gray-800"},
	{Name: "Anxious", ImageURL: "https://images.unsplash.com/photo-1524234599378-ce7934e88a5b?q=80&w=2070&auto=format&fit=crop", Style: "bg-gradient-to-br from-orange-600 to-red-700"},
	{Name: "Lonely", ImageURL: "https://images.unsplash.com/photo-1502480229431-7b0b2e3e1173?q=80&w=2069&auto=format&fit=crop", Style: "bg-gradient-to-br from-gray-800 to-black"},
	{Name: "Peaceful", ImageURL: "https://images.unsplash.com/photo-1470770841072-f978cf4d019e?q=80&w=2070&auto=format&fit=crop", Style: "bg-gradient-to-br from-cyan-700 to-blue-800"},
	{Name: "Hopeful", ImageURL: "https://images.unsplash.com/photo-1470252649378-9c29740c9fa8?q=80&w=2070&auto=format&fit=crop", Style: "bg-gradient-to-br from-orange-400 to-yellow-300"},
	{Name: "Mysterious", ImageURL: "https://images.unsplash.com/photo-1506477335327-5a4e4a4a2f5d?q=80&w=1974&auto=format&fit=crop", Style: "bg-gradient-to-br from-gray-900 to-indigo-900"},
	{Name: "Energetic", ImageURL: "https://images.unsplash.com/photo-1555061614-74d31a5c6af6?q=80&w=2070&auto=format&fit=crop", Style: "bg-gradient-to-br from-red-500 to-yellow-500"},
	{Name: "Reflective", ImageURL: "https://images.unsplash.com/photo-1542358899-b75d554a9058?q=80&w=1964&auto=format&fit=crop", Style: "bg-gradient-to-br from-slate-500 to-slate-700"},
}

// FindTemplate looks up a template by name, case-insensitively.
func FindTemplate(name string) (BackgroundTemplate, bool) {
	for _, t := range BackgroundTemplates {
		if strings.EqualFold(t.Name, strings.TrimSpace(name)) {
			return t, true
		}
	}
	return BackgroundTemplate{}, false
}

// DefaultTemplate returns the template matching mood, or the first template.
func DefaultTemplate(mood Mood) BackgroundTemplate {
	if t, ok := FindTemplate(string(mood)); ok {
		return t
	}
	return BackgroundTemplates[0]
}
