package service

import (
	"context"
	"testing"

	"agora/internal/models"
	"agora/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModerationService_Transitions(t *testing.T) {
	t.Parallel()
	env := newContentEnv(t, "")
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.db, "admin", true)
	author := testutil.CreateUser(t, env.db, "author", false)
	post := testutil.CreatePost(t, env.db, author.ID, "post", false)
	comment := testutil.CreateComment(t, env.db, author.ID, post.ID, nil, false)

	out, err := env.moderation.Transition(ctx, admin.ID, "posts", post.ID, ActionApprove)
	require.NoError(t, err)
	require.NotNil(t, out.Post)
	assert.True(t, out.Post.IsApproved)

	out, err = env.moderation.Transition(ctx, admin.ID, "post", post.ID, ActionFlag)
	require.NoError(t, err)
	assert.True(t, out.Post.IsFlagged)
	assert.True(t, out.Post.IsApproved, "flagging leaves approval alone")

	out, err = env.moderation.Transition(ctx, admin.ID, "posts", post.ID, ActionReject)
	require.NoError(t, err)
	assert.False(t, out.Post.IsApproved)

	out, err = env.moderation.Transition(ctx, admin.ID, "comments", comment.ID, ActionApprove)
	require.NoError(t, err)
	require.NotNil(t, out.Comment)
	assert.True(t, out.Comment.IsApproved)

	out, err = env.moderation.Transition(ctx, admin.ID, "comments", comment.ID, ActionUnflag)
	require.NoError(t, err)
	assert.False(t, out.Comment.IsFlagged)

	_, err = env.moderation.Transition(ctx, admin.ID, "videos", post.ID, ActionApprove)
	assertValidationError(t, err)
	_, err = env.moderation.Transition(ctx, admin.ID, "posts", 9999, ActionApprove)
	assertNotFoundError(t, err)
}

func TestParseModerationAction(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"approve", "reject", "flag", "unflag"} {
		_, ok := ParseModerationAction(raw)
		assert.True(t, ok, raw)
	}
	_, ok := ParseModerationAction("ban")
	assert.False(t, ok)
}

func TestModerationService_Bulk(t *testing.T) {
	t.Parallel()
	env := newContentEnv(t, "")
	ctx := context.Background()
	author := testutil.CreateUser(t, env.db, "author", false)
	p1 := testutil.CreatePost(t, env.db, author.ID, "one", false)
	p2 := testutil.CreatePost(t, env.db, author.ID, "two", false)
	root := testutil.CreateComment(t, env.db, author.ID, p1.ID, nil, true)
	testutil.CreateComment(t, env.db, author.ID, p1.ID, &root.ID, true)

	res, err := env.moderation.BulkApprove(ctx, "posts", []uint{p1.ID, p2.ID, p2.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Requested)
	assert.Equal(t, int64(2), res.Affected)

	res, err = env.moderation.BulkDelete(ctx, "posts", []uint{p1.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Affected)

	var comments int64
	require.NoError(t, env.db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Zero(t, comments, "deleting a post takes its comment tree with it")

	_, err = env.moderation.BulkApprove(ctx, "posts", nil)
	assertValidationError(t, err)
	_, err = env.moderation.BulkDelete(ctx, "posts", make([]uint, MaxBulkIDs+1))
	assertValidationError(t, err)
	_, err = env.moderation.BulkDelete(ctx, "posts", []uint{0})
	assertValidationError(t, err)
	_, err = env.moderation.BulkApprove(ctx, "users", []uint{1})
	assertValidationError(t, err)
}

func TestModerationService_QueueAndStats(t *testing.T) {
	t.Parallel()
	env := newContentEnv(t, "")
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.db, "admin", true)
	author := testutil.CreateUser(t, env.db, "author", false)
	testutil.CreateUser(t, env.db, "lurker", false)
	pending := testutil.CreatePost(t, env.db, author.ID, "pending", false)
	approved := testutil.CreatePost(t, env.db, author.ID, "approved", true)
	require.NoError(t, env.db.Model(approved).Update("is_flagged", true).Error)
	testutil.CreateComment(t, env.db, author.ID, approved.ID, nil, false)

	q, err := env.moderation.Queue(ctx, QueueInput{AdminID: admin.ID})
	require.NoError(t, err)
	require.Len(t, q.Posts, 1)
	assert.Equal(t, pending.ID, q.Posts[0].ID)

	q, err = env.moderation.Queue(ctx, QueueInput{AdminID: admin.ID, Flagged: true})
	require.NoError(t, err)
	require.Len(t, q.Posts, 1)
	assert.Equal(t, approved.ID, q.Posts[0].ID)

	q, err = env.moderation.Queue(ctx, QueueInput{AdminID: admin.ID, Type: "comments"})
	require.NoError(t, err)
	assert.Len(t, q.Comments, 1)
	assert.Nil(t, q.Posts)

	stats, err := env.moderation.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Users)
	assert.Equal(t, int64(2), stats.Posts)
	assert.Equal(t, int64(1), stats.PendingPosts)
	assert.Equal(t, int64(1), stats.FlaggedPosts)
	assert.Equal(t, int64(1), stats.PendingComments)
	assert.Equal(t, int64(1), stats.ActiveAuthors)
	assert.InDelta(t, 1.0/3.0, stats.ParticipationRate, 1e-9)
}

func TestModerationService_UserAdministration(t *testing.T) {
	t.Parallel()
	env := newContentEnv(t, "")
	ctx := context.Background()
	admin := testutil.CreateUser(t, env.db, "admin", true)
	peer := testutil.CreateUser(t, env.db, "peer", true)
	member := testutil.CreateUser(t, env.db, "member", false)
	testutil.CreatePost(t, env.db, member.ID, "post", true)

	_, err := env.moderation.SetUserBlocked(ctx, admin.ID, admin.ID, true)
	assertValidationError(t, err)
	_, err = env.moderation.SetUserBlocked(ctx, admin.ID, peer.ID, true)
	assertForbiddenError(t, err)
	_, err = env.moderation.SetUserBlocked(ctx, admin.ID, 9999, true)
	assertNotFoundError(t, err)

	u, err := env.moderation.SetUserBlocked(ctx, admin.ID, member.ID, true)
	require.NoError(t, err)
	assert.True(t, u.IsBlocked)
	u, err = env.moderation.SetUserBlocked(ctx, admin.ID, member.ID, false)
	require.NoError(t, err)
	assert.False(t, u.IsBlocked)

	assertForbiddenError(t, env.moderation.DeleteUser(ctx, admin.ID, peer.ID))
	assertValidationError(t, env.moderation.DeleteUser(ctx, admin.ID, admin.ID))
	require.NoError(t, env.moderation.DeleteUser(ctx, admin.ID, member.ID))

	var posts int64
	require.NoError(t, env.db.Model(&models.Post{}).Count(&posts).Error)
	assert.Zero(t, posts)
}
