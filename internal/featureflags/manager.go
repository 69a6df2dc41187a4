// Package featureflags evaluates the FEATURE_FLAGS setting.
package featureflags

import (
	"hash/fnv"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// CommentVotes allows voting on comments. Comment likes are always on.
const CommentVotes = "comment_votes"

// Known lists every flag the application evaluates. Unconfigured known flags
// are off.
var Known = []string{CommentVotes}

// rollout is the share of users (0..100) that see a flag.
type rollout int

// parseRollout accepts on/off/true/false/1/0 and "N%".
func parseRollout(v string) (rollout, bool) {
	switch v {
	case "on", "true", "1":
		return 100, true
	case "off", "false", "0":
		return 0, true
	}
	pct, found := strings.CutSuffix(v, "%")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(pct)
	if err != nil {
		return 0, false
	}
	return rollout(min(max(n, 0), 100)), true
}

// Manager holds the flags parsed from "name=value,name=value".
// Example: "comment_votes=on" or "comment_votes=25%".
type Manager struct {
	raw   map[string]string
	rules map[string]rollout
}

// NewManager parses raw. Malformed pairs are skipped; unparseable values are
// kept in Raw but evaluate off.
func NewManager(raw string) *Manager {
	m := &Manager{raw: map[string]string{}, rules: map[string]rollout{}}
	for _, pair := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(pair, "=")
		name, value = canonical(name), canonical(value)
		if !ok || name == "" || value == "" {
			continue
		}
		m.raw[name] = value
		if r, ok := parseRollout(value); ok {
			m.rules[name] = r
		}
	}
	return m
}

// Enabled evaluates name for userID. Partial rollouts bucket users by a
// stable hash and never include anonymous callers (userID 0).
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[canonical(name)]
	switch {
	case !ok || r == 0:
		return false
	case r == 100:
		return true
	case userID == 0:
		return false
	}
	return bucket(name, userID) < int(r)
}

// Raw returns a copy of the configured values.
func (m *Manager) Raw() map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m.raw)
}

// Snapshot evaluates every known and configured flag for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	names := slices.Clone(Known)
	if m != nil {
		names = append(names, slices.Collect(maps.Keys(m.raw))...)
	}
	out := make(map[string]bool, len(names))
	for _, name := range names {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

// Unknown lists configured flags the application never evaluates, sorted.
// These are usually typos in FEATURE_FLAGS.
func (m *Manager) Unknown() []string {
	if m == nil {
		return nil
	}
	var out []string
	for name := range m.raw {
		if !slices.Contains(Known, name) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func canonical(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func bucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(canonical(name) + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
