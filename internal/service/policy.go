package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/repository"
)

// AdminChecker reports whether a user holds the admin role.
type AdminChecker func(ctx context.Context, userID uint) (bool, error)

// Actor is the caller of a content operation. ID 0 is an anonymous reader.
type Actor struct {
	ID      uint
	IsAdmin bool
}

// CanSee applies the visibility rule: approved content is public, anything
// else is shown only to its owner and to admins.
func (a Actor) CanSee(ownerID uint, approved bool) bool {
	return approved || a.CanModify(ownerID)
}

// CanModify reports whether the actor may update or delete content owned by
// ownerID.
func (a Actor) CanModify(ownerID uint) bool {
	if a.IsAdmin {
		return true
	}
	return a.ID != 0 && a.ID == ownerID
}

func resolveActor(ctx context.Context, isAdmin AdminChecker, userID uint) (Actor, error) {
	if userID == 0 || isAdmin == nil {
		return Actor{ID: userID}, nil
	}
	admin, err := isAdmin(ctx, userID)
	if err != nil {
		return Actor{}, err
	}
	return Actor{ID: userID, IsAdmin: admin}, nil
}

// visibleComment loads a comment the actor may see. A comment under a post
// hidden from the actor is hidden too, and both cases look like a missing
// comment.
func visibleComment(ctx context.Context, actor Actor, comments repository.CommentRepository, posts repository.PostRepository, id uint) (*models.Comment, error) {
	comment, err := comments.GetByID(ctx, id, actor.ID)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(comment.UserID, comment.IsApproved) {
		return nil, models.NewNotFoundError("Comment", id)
	}
	post, err := posts.GetByID(ctx, comment.PostID, actor.ID)
	if models.IsCode(err, models.CodeNotFound) || (err == nil && !actor.CanSee(post.UserID, post.IsApproved)) {
		return nil, models.NewNotFoundError("Comment", id)
	}
	if err != nil {
		return nil, err
	}
	return comment, nil
}
