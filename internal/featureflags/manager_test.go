package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRollout(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want rollout
		ok   bool
	}{
		{"on", 100, true},
		{"true", 100, true},
		{"1", 100, true},
		{"off", 0, true},
		{"0", 0, true},
		{"25%", 25, true},
		{"250%", 100, true},
		{"-5%", 0, true},
		{"maybe", 0, false},
		{"x%", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseRollout(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestEnabled(t *testing.T) {
	t.Parallel()
	m := NewManager("a=on,b=off,always=100%,never=0%,canary=25%,odd=maybe")

	assert.True(t, m.Enabled("a", 1))
	assert.False(t, m.Enabled("b", 1))
	assert.True(t, m.Enabled("always", 0))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("odd", 1))
	assert.False(t, m.Enabled("missing", 1))
	assert.False(t, m.Enabled("canary", 0), "partial rollout excludes anonymous callers")

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42), "bucketing is stable per user")
	}

	hits := 0
	for id := uint(1); id <= 1000; id++ {
		if m.Enabled("canary", id) {
			hits++
		}
	}
	assert.InDelta(t, 250, hits, 80)
}

func TestNewManager_RawAndSnapshot(t *testing.T) {
	t.Parallel()
	m := NewManager(" bad ,x=on, y = 20% ,z=off,=on,w= ")

	assert.Equal(t, map[string]string{"x": "on", "y": "20%", "z": "off"}, m.Raw())

	snap := m.Snapshot(123)
	require.Len(t, snap, 4)
	assert.True(t, snap["x"])
	assert.False(t, snap[CommentVotes], "unconfigured known flags are off")
	assert.Equal(t, []string{"x", "y", "z"}, m.Unknown())
}

func TestCommentVotesFlag(t *testing.T) {
	t.Parallel()
	assert.False(t, NewManager("").Enabled(CommentVotes, 1))
	assert.True(t, NewManager("Comment_Votes = ON").Enabled(CommentVotes, 1))
	assert.Empty(t, NewManager("comment_votes=on").Unknown())

	var nilManager *Manager
	assert.False(t, nilManager.Enabled(CommentVotes, 1))
	assert.Equal(t, map[string]bool{CommentVotes: false}, nilManager.Snapshot(1))
	assert.Empty(t, nilManager.Raw())
}
