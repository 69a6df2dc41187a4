package server

import (
	"fmt"
	"net/http"
	"testing"

	"agora/internal/models"
	"agora/internal/notifications"
	"agora/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateComment(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice", false)
	bob := testutil.CreateUser(t, env.db, "bob", false)
	post := testutil.CreatePost(t, env.db, alice.ID, "thread", true)
	other := testutil.CreatePost(t, env.db, alice.ID, "elsewhere", true)
	hidden := testutil.CreatePost(t, env.db, alice.ID, "hidden", false)
	foreign := testutil.CreateComment(t, env.db, alice.ID, other.ID, nil, true)
	env.allowEvents()
	path := fmt.Sprintf("/api/posts/%d/comments", post.ID)
	token := env.token(t, bob)

	resp := env.do(t, http.MethodPost, path, token, createCommentRequest{Body: "first!"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	root := decodeJSON[models.Comment](t, resp)
	assert.Equal(t, post.ID, root.PostID)
	assert.Nil(t, root.ParentID)
	assert.False(t, root.IsApproved)

	resp = env.do(t, http.MethodPost, path, token, createCommentRequest{Body: "a reply", ParentID: &root.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	reply := decodeJSON[models.Comment](t, resp)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, root.ID, *reply.ParentID)

	env.events.AssertCalled(t, "Publish", mock.Anything, notifications.EventCommentCreated, mock.MatchedBy(func(p map[string]interface{}) bool {
		return p["comment_id"] == reply.ID && p["post_id"] == post.ID
	}), []uint(nil))

	tests := []struct {
		name       string
		path       string
		body       createCommentRequest
		wantStatus int
		wantError  string
	}{
		{"parent on another post", path, createCommentRequest{Body: "x", ParentID: &foreign.ID}, http.StatusBadRequest, "Parent comment does not belong to this post"},
		{"empty body", path, createCommentRequest{Body: "  "}, http.StatusBadRequest, "comment cannot be empty"},
		{"hidden post", fmt.Sprintf("/api/posts/%d/comments", hidden.ID), createCommentRequest{Body: "x"}, http.StatusNotFound, ""},
		{"missing post", "/api/posts/9999/comments", createCommentRequest{Body: "x"}, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, tt.path, token, tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorMessage(t, resp))
			}
		})
	}
}

func TestGetComments_Tree(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice", false)
	bob := testutil.CreateUser(t, env.db, "bob", false)
	admin := testutil.CreateUser(t, env.db, "root", true)
	post := testutil.CreatePost(t, env.db, alice.ID, "thread", true)

	root := testutil.CreateComment(t, env.db, bob.ID, post.ID, nil, true)
	testutil.CreateComment(t, env.db, alice.ID, post.ID, &root.ID, true)
	pending := testutil.CreateComment(t, env.db, bob.ID, post.ID, nil, false)
	testutil.CreateComment(t, env.db, alice.ID, post.ID, &pending.ID, true)
	path := fmt.Sprintf("/api/posts/%d/comments", post.ID)

	resp := env.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tree := decodeJSON[[]models.Comment](t, resp)
	require.Len(t, tree, 1)
	assert.Equal(t, root.ID, tree[0].ID)
	require.Len(t, tree[0].Replies, 1)
	assert.Equal(t, 1, tree[0].RepliesCount)

	resp = env.do(t, http.MethodGet, path, env.token(t, admin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeJSON[[]models.Comment](t, resp), 2)

	resp = env.do(t, http.MethodGet, "/api/posts/9999/comments", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateComment(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice", false)
	bob := testutil.CreateUser(t, env.db, "bob", false)
	admin := testutil.CreateUser(t, env.db, "root", true)
	post := testutil.CreatePost(t, env.db, alice.ID, "thread", true)
	comment := testutil.CreateComment(t, env.db, bob.ID, post.ID, nil, true)
	path := fmt.Sprintf("/api/comments/%d", comment.ID)

	resp := env.do(t, http.MethodPut, path, env.token(t, alice), map[string]string{"body": "mine now"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "You can only edit your own comments", errorMessage(t, resp))

	resp = env.do(t, http.MethodPut, path, env.token(t, bob), map[string]string{"body": "`edited`"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeJSON[models.Comment](t, resp)
	assert.Equal(t, "`edited`", updated.Body)
	assert.Contains(t, updated.BodyHTML, "<code>edited</code>")

	resp = env.do(t, http.MethodPut, path, env.token(t, admin), map[string]interface{}{"is_approved": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeJSON[models.Comment](t, resp).IsApproved)

	resp = env.do(t, http.MethodPut, path, "", map[string]string{"body": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeleteComment_RemovesReplies(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	alice := testutil.CreateUser(t, env.db, "alice", false)
	bob := testutil.CreateUser(t, env.db, "bob", false)
	post := testutil.CreatePost(t, env.db, alice.ID, "thread", true)
	root := testutil.CreateComment(t, env.db, bob.ID, post.ID, nil, true)
	reply := testutil.CreateComment(t, env.db, alice.ID, post.ID, &root.ID, true)
	testutil.CreateComment(t, env.db, bob.ID, post.ID, &reply.ID, true)
	keep := testutil.CreateComment(t, env.db, alice.ID, post.ID, nil, true)
	testutil.Vote(t, env.db, alice.ID, models.CommentTarget(reply.ID), models.VoteDown)
	testutil.Like(t, env.db, alice.ID, models.CommentTarget(root.ID))

	env.events.On("Publish", mock.Anything, notifications.EventContentDeleted, mock.Anything, []uint{bob.ID}).Return(nil).Once()

	resp := env.do(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", root.ID), env.token(t, alice), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", root.ID), env.token(t, bob), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env.events.AssertExpectations(t)

	var ids []uint
	require.NoError(t, env.db.Model(&models.Comment{}).Pluck("id", &ids).Error)
	assert.Equal(t, []uint{keep.ID}, ids)

	var votes, likes int64
	require.NoError(t, env.db.Model(&models.Vote{}).Count(&votes).Error)
	require.NoError(t, env.db.Model(&models.Like{}).Count(&likes).Error)
	assert.Zero(t, votes)
	assert.Zero(t, likes)
}
