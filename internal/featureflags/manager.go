// Package featureflags evaluates runtime feature toggles.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// Known flags.
const (
	// LikesRequireAuth restricts like toggling to signed-in users.
	LikesRequireAuth = "likes_require_auth"
	// AIBackgrounds enables generated post backgrounds.
	AIBackgrounds = "ai_backgrounds"
	// Companion enables the chat companion.
	Companion = "companion_chat"
)

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "ai_backgrounds=on,companion_chat=25%,likes_require_auth=off"
type Manager struct {
	flags map[string]string
}

// NewManager creates a feature-flag manager from a comma-separated config string.
func NewManager(raw string) *Manager {
	out := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}

	return &Manager{flags: out}
}

// Enabled returns whether a flag is enabled for a subject (user or viewer id).
// Supported values:
// - on/true/1
// - off/false/0
// - N% (deterministic rollout by subject, e.g. 25%)
func (m *Manager) Enabled(name, subject string) bool {
	value, ok := m.lookup(name)
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	pctRaw, isPct := strings.CutSuffix(value, "%")
	if !isPct {
		return false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil || pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	if subject == "" {
		return false
	}
	return rolloutBucket(name, subject) < pct
}

// EnabledOr is Enabled, but returns def when the flag is not configured.
func (m *Manager) EnabledOr(name, subject string, def bool) bool {
	if _, ok := m.lookup(name); !ok {
		return def
	}
	return m.Enabled(name, subject)
}

func (m *Manager) lookup(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m.flags[normalize(name)]
	return v, ok
}

// Raw returns a copy of configured flags.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot returns evaluated flag status for one subject.
func (m *Manager) Snapshot(subject string) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, subject)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name, subject string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + subject))
	return int(h.Sum32() % 100)
}
