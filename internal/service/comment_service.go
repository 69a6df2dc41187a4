package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/render"
	"agora/internal/repository"
	"agora/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	isAdmin     AdminChecker
}

type CreateCommentInput struct {
	UserID   uint
	PostID   uint
	ParentID *uint
	Body     string
}

// UpdateCommentInput carries a partial update; nil fields are left unchanged.
type UpdateCommentInput struct {
	UserID     uint
	CommentID  uint
	Body       *string
	IsApproved *bool
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	isAdmin AdminChecker,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		isAdmin:     isAdmin,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	body, err := validation.ValidateCommentBody(in.Body)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	actor, err := resolveActor(ctx, s.isAdmin, in.UserID)
	if err != nil {
		return nil, err
	}
	if _, err := s.visiblePost(ctx, actor, in.PostID); err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		// Visibility first: a hidden parent must look missing whatever post it is on.
		parent, err := s.visibleComment(ctx, actor, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != in.PostID {
			return nil, models.NewValidationError("Parent comment does not belong to this post")
		}
	}

	comment := &models.Comment{
		Body:       body,
		BodyHTML:   render.Markdown(body),
		UserID:     in.UserID,
		PostID:     in.PostID,
		ParentID:   in.ParentID,
		IsApproved: actor.IsAdmin,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID, in.UserID)
}

// GetComment returns the comment as seen by viewerID; hidden comments are
// reported as missing.
func (s *CommentService) GetComment(ctx context.Context, id, viewerID uint) (*models.Comment, error) {
	actor, err := resolveActor(ctx, s.isAdmin, viewerID)
	if err != nil {
		return nil, err
	}
	return s.visibleComment(ctx, actor, id)
}

// ListComments returns the visible reply tree of a post. A reply whose parent
// is hidden from the viewer is hidden with it.
func (s *CommentService) ListComments(ctx context.Context, postID, viewerID uint) ([]*models.Comment, error) {
	actor, err := resolveActor(ctx, s.isAdmin, viewerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.visiblePost(ctx, actor, postID); err != nil {
		return nil, err
	}
	flat, err := s.commentRepo.ListByPost(ctx, postID, repository.ContentFilter{
		ViewerID:      viewerID,
		IncludeHidden: actor.IsAdmin,
	})
	if err != nil {
		return nil, err
	}
	return models.BuildCommentTree(flat), nil
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	actor, err := resolveActor(ctx, s.isAdmin, in.UserID)
	if err != nil {
		return nil, err
	}
	comment, err := s.visibleComment(ctx, actor, in.CommentID)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(comment.UserID) {
		return nil, models.NewForbiddenError("You can only edit your own comments")
	}

	if in.Body != nil {
		body, err := validation.ValidateCommentBody(*in.Body)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if body != comment.Body {
			comment.Body = body
			comment.BodyHTML = render.Markdown(body)
			if !actor.IsAdmin {
				comment.IsApproved = false
			}
		}
	}
	if actor.IsAdmin && in.IsApproved != nil {
		comment.IsApproved = *in.IsApproved
	}

	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, err
	}
	return s.commentRepo.GetByID(ctx, comment.ID, in.UserID)
}

func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, error) {
	actor, err := resolveActor(ctx, s.isAdmin, in.UserID)
	if err != nil {
		return nil, err
	}
	comment, err := s.visibleComment(ctx, actor, in.CommentID)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(comment.UserID) {
		return nil, models.NewForbiddenError("You can only delete your own comments")
	}
	if err := s.commentRepo.Delete(ctx, in.CommentID); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) visiblePost(ctx context.Context, actor Actor, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id, actor.ID)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(post.UserID, post.IsApproved) {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

func (s *CommentService) visibleComment(ctx context.Context, actor Actor, id uint) (*models.Comment, error) {
	return visibleComment(ctx, actor, s.commentRepo, s.postRepo, id)
}
