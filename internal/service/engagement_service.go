package service

import (
	"context"

	"agora/internal/featureflags"
	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
)

// EngagementService applies votes and likes and reports the recomputed
// aggregates of the target.
type EngagementService struct {
	ledger      repository.EngagementRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	flags       *featureflags.Manager
	isAdmin     AdminChecker
}

// EngagementResult is returned by every engagement mutation. Exactly one of
// Post and Comment is set.
type EngagementResult struct {
	Action  models.VoteAction `json:"action,omitempty"`
	Liked   *bool             `json:"liked,omitempty"`
	Post    *models.Post      `json:"post,omitempty"`
	Comment *models.Comment   `json:"comment,omitempty"`
}

func NewEngagementService(
	ledger repository.EngagementRepository,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	flags *featureflags.Manager,
	isAdmin AdminChecker,
) *EngagementService {
	return &EngagementService{
		ledger:      ledger,
		postRepo:    postRepo,
		commentRepo: commentRepo,
		flags:       flags,
		isAdmin:     isAdmin,
	}
}

// CastVote creates, removes or flips the caller's vote.
func (s *EngagementService) CastVote(ctx context.Context, userID uint, target models.Target, value int) (*EngagementResult, error) {
	if value != models.VoteUp && value != models.VoteDown {
		return nil, models.NewValidationError("Vote value must be 1 or -1")
	}
	if err := s.checkVotingEnabled(target, userID); err != nil {
		return nil, err
	}
	if err := s.checkTarget(ctx, userID, target); err != nil {
		return nil, err
	}

	action, err := s.ledger.CastVote(ctx, userID, target, value)
	if err != nil {
		return nil, err
	}
	observability.EngagementActions.WithLabelValues(string(target.Type), "vote_"+string(action)).Inc()
	return s.result(ctx, userID, target, &EngagementResult{Action: action})
}

// RemoveVote deletes the caller's vote if there is one.
func (s *EngagementService) RemoveVote(ctx context.Context, userID uint, target models.Target) (*EngagementResult, error) {
	if err := s.checkVotingEnabled(target, userID); err != nil {
		return nil, err
	}
	if err := s.checkTarget(ctx, userID, target); err != nil {
		return nil, err
	}

	removed, err := s.ledger.RemoveVote(ctx, userID, target)
	if err != nil {
		return nil, err
	}
	res := &EngagementResult{}
	if removed {
		res.Action = models.VoteRemoved
		observability.EngagementActions.WithLabelValues(string(target.Type), "vote_removed").Inc()
	}
	return s.result(ctx, userID, target, res)
}

func (s *EngagementService) ToggleLike(ctx context.Context, userID uint, target models.Target) (*EngagementResult, error) {
	if err := s.checkTarget(ctx, userID, target); err != nil {
		return nil, err
	}

	liked, err := s.ledger.ToggleLike(ctx, userID, target)
	if err != nil {
		return nil, err
	}
	likeAction := "unlike"
	if liked {
		likeAction = "like"
	}
	observability.EngagementActions.WithLabelValues(string(target.Type), likeAction).Inc()
	return s.result(ctx, userID, target, &EngagementResult{Liked: &liked})
}

// CommentVotingEnabled reports whether userID may vote on comments.
func (s *EngagementService) CommentVotingEnabled(userID uint) bool {
	return s.flags.Enabled(featureflags.CommentVotes, userID)
}

func (s *EngagementService) checkVotingEnabled(target models.Target, userID uint) error {
	if target.Type == models.ContentComment && !s.CommentVotingEnabled(userID) {
		return models.NewForbiddenError("Comment voting is disabled")
	}
	return nil
}

// checkTarget rejects missing targets and targets the caller cannot see.
func (s *EngagementService) checkTarget(ctx context.Context, userID uint, target models.Target) error {
	actor, err := resolveActor(ctx, s.isAdmin, userID)
	if err != nil {
		return err
	}

	if target.Type == models.ContentComment {
		_, err := visibleComment(ctx, actor, s.commentRepo, s.postRepo, target.ID)
		return err
	}

	post, err := s.postRepo.GetByID(ctx, target.ID, userID)
	if err != nil {
		return err
	}
	if !actor.CanSee(post.UserID, post.IsApproved) {
		return models.NewNotFoundError("Post", target.ID)
	}
	return nil
}

func (s *EngagementService) result(ctx context.Context, userID uint, target models.Target, res *EngagementResult) (*EngagementResult, error) {
	if target.Type == models.ContentComment {
		comment, err := s.commentRepo.GetByID(ctx, target.ID, userID)
		if err != nil {
			return nil, err
		}
		res.Comment = comment
		return res, nil
	}

	post, err := s.postRepo.GetByID(ctx, target.ID, userID)
	if err != nil {
		return nil, err
	}
	res.Post = post
	return res, nil
}
