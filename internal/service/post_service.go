package service

import (
	"context"

	"agora/internal/models"
	"agora/internal/render"
	"agora/internal/repository"
	"agora/internal/validation"
)

type PostService struct {
	postRepo repository.PostRepository
	isAdmin  AdminChecker
}

type CreatePostInput struct {
	UserID uint
	Title  string
	Body   string
	Tags   string
}

type ListPostsInput struct {
	ViewerID uint
	AuthorID uint
	Tag      string
	Limit    int
	Offset   int
}

// UpdatePostInput carries a partial update; nil fields are left unchanged.
type UpdatePostInput struct {
	UserID     uint
	PostID     uint
	Title      *string
	Body       *string
	Tags       *string
	IsApproved *bool
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(postRepo repository.PostRepository, isAdmin AdminChecker) *PostService {
	return &PostService{
		postRepo: postRepo,
		isAdmin:  isAdmin,
	}
}

// CreatePost stores a new post. Admin posts are approved immediately, all
// others wait for moderation.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	title, err := validation.ValidateTitle(in.Title)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	body, err := validation.ValidatePostBody(in.Body)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	tags, err := validation.NormalizeTags(in.Tags)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	actor, err := resolveActor(ctx, s.isAdmin, in.UserID)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:      title,
		Body:       body,
		BodyHTML:   render.Markdown(body),
		Tags:       tags,
		UserID:     in.UserID,
		IsApproved: actor.IsAdmin,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

// GetPost returns the post as seen by viewerID; hidden posts are reported as
// missing.
func (s *PostService) GetPost(ctx context.Context, id, viewerID uint) (*models.Post, error) {
	actor, err := resolveActor(ctx, s.isAdmin, viewerID)
	if err != nil {
		return nil, err
	}
	return s.visiblePost(ctx, actor, id)
}

func (s *PostService) visiblePost(ctx context.Context, actor Actor, id uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id, actor.ID)
	if err != nil {
		return nil, err
	}
	if !actor.CanSee(post.UserID, post.IsApproved) {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

// ListPosts returns newest posts first. Admins see unapproved posts too.
func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	actor, err := resolveActor(ctx, s.isAdmin, in.ViewerID)
	if err != nil {
		return nil, err
	}
	return s.postRepo.List(ctx, repository.ContentFilter{
		ViewerID:      in.ViewerID,
		IncludeHidden: actor.IsAdmin,
		AuthorID:      in.AuthorID,
		Tag:           in.Tag,
		Limit:         in.Limit,
		Offset:        in.Offset,
	})
}

// UpdatePost applies a partial edit. A non-admin changing the body of an
// approved post sends it back to moderation; is_approved is honoured only
// for admins.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	actor, err := resolveActor(ctx, s.isAdmin, in.UserID)
	if err != nil {
		return nil, err
	}
	post, err := s.visiblePost(ctx, actor, in.PostID)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(post.UserID) {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}

	if in.Title != nil {
		title, err := validation.ValidateTitle(*in.Title)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		post.Title = title
	}
	if in.Tags != nil {
		tags, err := validation.NormalizeTags(*in.Tags)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		post.Tags = tags
	}
	if in.Body != nil {
		body, err := validation.ValidatePostBody(*in.Body)
		if err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if body != post.Body {
			post.Body = body
			post.BodyHTML = render.Markdown(body)
			if !actor.IsAdmin {
				post.IsApproved = false
			}
		}
	}
	if actor.IsAdmin && in.IsApproved != nil {
		post.IsApproved = *in.IsApproved
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

// DeletePost removes the post and everything hanging off it. It returns the
// deleted post so callers can report what went away.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) (*models.Post, error) {
	actor, err := resolveActor(ctx, s.isAdmin, in.UserID)
	if err != nil {
		return nil, err
	}
	post, err := s.visiblePost(ctx, actor, in.PostID)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(post.UserID) {
		return nil, models.NewForbiddenError("You can only delete your own posts")
	}
	if err := s.postRepo.Delete(ctx, in.PostID); err != nil {
		return nil, err
	}
	return post, nil
}
