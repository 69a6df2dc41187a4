package repository

import (
	"context"
	"regexp"
	"testing"

	"agora/internal/models"
	"agora/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Title: "Test Post", Body: "Content", UserID: 1}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, post)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_CreateDuplicateTitle(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_posts_user_title"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Post{Title: "Same", Body: "b", UserID: 1})
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.Equal(t, "You already have a post with this title", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByIDAggregates(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "author", false)
	viewer := testutil.CreateUser(t, db, "viewer", false)
	u3 := testutil.CreateUser(t, db, "third", false)

	post := testutil.CreatePost(t, db, author.ID, "Counted", true)
	target := models.PostTarget(post.ID)
	testutil.Vote(t, db, viewer.ID, target, models.VoteDown)
	testutil.Vote(t, db, author.ID, target, models.VoteUp)
	testutil.Vote(t, db, u3.ID, target, models.VoteUp)
	testutil.Like(t, db, viewer.ID, target)

	top := testutil.CreateComment(t, db, viewer.ID, post.ID, nil, true)
	testutil.CreateComment(t, db, viewer.ID, post.ID, nil, false)
	testutil.CreateComment(t, db, u3.ID, post.ID, &top.ID, true)

	got, err := repo.GetByID(ctx, post.ID, viewer.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Upvotes)
	assert.Equal(t, 1, got.Downvotes)
	assert.Equal(t, 3, got.TotalVotes)
	assert.Equal(t, 1, got.Score)
	assert.Equal(t, 1, got.LikesCount)
	assert.Equal(t, 1, got.RepliesCount, "only approved top-level comments count")
	require.NotNil(t, got.UserVote)
	assert.Equal(t, -1, *got.UserVote)
	assert.True(t, got.Liked)
	assert.Equal(t, "author", got.Author.Username)
	assert.Equal(t, author.ID, got.Author.ID)

	anon, err := repo.GetByID(ctx, post.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, anon.UserVote)
	assert.False(t, anon.Liked)
	assert.Equal(t, 1, anon.Score)

	_, err = repo.GetByID(ctx, 9999, 0)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestPostRepository_ListVisibilityAndTags(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice", false)
	bob := testutil.CreateUser(t, db, "bob", false)

	approved := testutil.CreatePost(t, db, alice.ID, "Approved", true)
	pending := testutil.CreatePost(t, db, alice.ID, "Pending", false)
	require.NoError(t, db.Model(approved).Update("tags", "go,web").Error)

	ids := func(posts []*models.Post) []uint {
		out := make([]uint, 0, len(posts))
		for _, p := range posts {
			out = append(out, p.ID)
		}
		return out
	}

	asBob, err := repo.List(ctx, ContentFilter{ViewerID: bob.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{approved.ID}, ids(asBob))

	asAlice, err := repo.List(ctx, ContentFilter{ViewerID: alice.ID})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{approved.ID, pending.ID}, ids(asAlice))

	asAdmin, err := repo.List(ctx, ContentFilter{IncludeHidden: true, PendingOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []uint{pending.ID}, ids(asAdmin))

	tagged, err := repo.List(ctx, ContentFilter{Tag: "WEB"})
	require.NoError(t, err)
	assert.Equal(t, []uint{approved.ID}, ids(tagged))

	none, err := repo.List(ctx, ContentFilter{Tag: "we"})
	require.NoError(t, err)
	assert.Empty(t, none)

	byAuthor, err := repo.List(ctx, ContentFilter{ViewerID: bob.ID, AuthorID: bob.ID})
	require.NoError(t, err)
	assert.Empty(t, byAuthor)
}

func TestPostRepository_UpdateAndDuplicateTitle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "writer", false)
	first := testutil.CreatePost(t, db, u.ID, "First", true)
	testutil.CreatePost(t, db, u.ID, "Second", true)

	first.Title = "Second"
	err := repo.Update(ctx, first)
	assert.True(t, models.IsCode(err, models.CodeConflict))

	first.Title = "Renamed"
	first.IsApproved = false
	require.NoError(t, repo.Update(ctx, first))

	got, err := repo.GetByID(ctx, first.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.False(t, got.IsApproved)

	other := testutil.CreateUser(t, db, "other", false)
	require.NoError(t, repo.Create(ctx, &models.Post{Title: "Renamed", Body: "same title, different owner", UserID: other.ID}))
}

func TestPostRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "poster", false)
	post := testutil.CreatePost(t, db, u.ID, "Doomed", true)
	keep := testutil.CreatePost(t, db, u.ID, "Kept", true)
	root := testutil.CreateComment(t, db, u.ID, post.ID, nil, true)
	child := testutil.CreateComment(t, db, u.ID, post.ID, &root.ID, true)
	grandchild := testutil.CreateComment(t, db, u.ID, post.ID, &child.ID, false)
	testutil.Vote(t, db, u.ID, models.PostTarget(post.ID), models.VoteUp)
	testutil.Vote(t, db, u.ID, models.CommentTarget(grandchild.ID), models.VoteDown)
	testutil.Like(t, db, u.ID, models.CommentTarget(child.ID))
	testutil.Like(t, db, u.ID, models.PostTarget(keep.ID))

	require.NoError(t, repo.Delete(ctx, post.ID))

	var n int64
	db.Model(&models.Comment{}).Count(&n)
	assert.Zero(t, n)
	db.Model(&models.Vote{}).Count(&n)
	assert.Zero(t, n)
	db.Model(&models.Like{}).Count(&n)
	assert.Equal(t, int64(1), n, "likes on other posts survive")

	err := repo.Delete(ctx, post.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}
