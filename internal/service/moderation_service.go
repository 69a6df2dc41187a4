package service

import (
	"context"
	"fmt"

	"agora/internal/models"
	"agora/internal/observability"
	"agora/internal/repository"
)

// MaxBulkIDs bounds the id list of bulk moderation calls.
const MaxBulkIDs = 500

// ModerationAction is one of the single-item state transitions.
type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionReject  ModerationAction = "reject"
	ActionFlag    ModerationAction = "flag"
	ActionUnflag  ModerationAction = "unflag"
)

// ParseModerationAction accepts the route segment of a transition.
func ParseModerationAction(raw string) (ModerationAction, bool) {
	switch a := ModerationAction(raw); a {
	case ActionApprove, ActionReject, ActionFlag, ActionUnflag:
		return a, true
	}
	return "", false
}

// ModeratedContent is the item a moderation call acted on, re-read after the
// change. Exactly one of Post and Comment is set.
type ModeratedContent struct {
	Type    models.ContentType `json:"type"`
	Post    *models.Post       `json:"post,omitempty"`
	Comment *models.Comment    `json:"comment,omitempty"`
}

// ModerationQueue lists content awaiting review.
type ModerationQueue struct {
	Type     models.ContentType `json:"type"`
	Flagged  bool               `json:"flagged"`
	Posts    []*models.Post     `json:"posts,omitempty"`
	Comments []*models.Comment  `json:"comments,omitempty"`
}

type QueueInput struct {
	AdminID uint
	Type    string
	Flagged bool
	Limit   int
	Offset  int
}

// ModerationService provides admin moderation and reporting logic. Callers
// are expected to have passed the admin gate already.
type ModerationService struct {
	modRepo     repository.ModerationRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
}

func NewModerationService(
	modRepo repository.ModerationRepository,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
) *ModerationService {
	return &ModerationService{
		modRepo:     modRepo,
		postRepo:    postRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
	}
}

func parseType(raw string) (models.ContentType, error) {
	ctype, ok := models.ParseContentType(raw)
	if !ok {
		return "", models.NewValidationError("Invalid content type. Must be 'posts' or 'comments'")
	}
	return ctype, nil
}

// Transition applies approve, reject, flag or unflag to one item.
func (s *ModerationService) Transition(ctx context.Context, adminID uint, rawType string, id uint, action ModerationAction) (*ModeratedContent, error) {
	ctype, err := parseType(rawType)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionApprove:
		err = s.modRepo.SetApproved(ctx, ctype, id, true)
	case ActionReject:
		err = s.modRepo.SetApproved(ctx, ctype, id, false)
	case ActionFlag:
		err = s.modRepo.SetFlagged(ctx, ctype, id, true)
	case ActionUnflag:
		err = s.modRepo.SetFlagged(ctx, ctype, id, false)
	default:
		return nil, models.NewValidationError(fmt.Sprintf("Unknown moderation action %q", action))
	}
	if err != nil {
		return nil, err
	}
	observability.ModerationActions.WithLabelValues(string(ctype), string(action)).Inc()

	out := &ModeratedContent{Type: ctype}
	if ctype == models.ContentComment {
		out.Comment, err = s.commentRepo.GetByID(ctx, id, adminID)
	} else {
		out.Post, err = s.postRepo.GetByID(ctx, id, adminID)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// validateIDs checks the bulk id list and drops duplicates.
func validateIDs(ids []uint) ([]uint, error) {
	if len(ids) == 0 || len(ids) > MaxBulkIDs {
		return nil, models.NewValidationError(fmt.Sprintf("ids must contain between 1 and %d entries", MaxBulkIDs))
	}
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			return nil, models.NewValidationError("ids must be positive integers")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// BulkApprove approves every listed item that exists.
func (s *ModerationService) BulkApprove(ctx context.Context, rawType string, ids []uint) (_ *models.BulkResult, err error) {
	ctx, span := observability.TraceServiceCall(ctx, "moderation", "BulkApprove")
	defer func() { observability.EndSpan(span, err) }()

	ctype, err := parseType(rawType)
	if err != nil {
		return nil, err
	}
	unique, err := validateIDs(ids)
	if err != nil {
		return nil, err
	}
	affected, err := s.modRepo.BulkApprove(ctx, ctype, unique)
	if err != nil {
		return nil, err
	}
	observability.ModerationActions.WithLabelValues(string(ctype), "bulk_approve").Add(float64(affected))
	return &models.BulkResult{Type: ctype, Requested: len(ids), Affected: affected}, nil
}

// BulkDelete deletes every listed item that exists, with dependents, in one
// transaction.
func (s *ModerationService) BulkDelete(ctx context.Context, rawType string, ids []uint) (_ *models.BulkResult, err error) {
	ctx, span := observability.TraceServiceCall(ctx, "moderation", "BulkDelete")
	defer func() { observability.EndSpan(span, err) }()

	ctype, err := parseType(rawType)
	if err != nil {
		return nil, err
	}
	unique, err := validateIDs(ids)
	if err != nil {
		return nil, err
	}
	affected, err := s.modRepo.BulkDelete(ctx, ctype, unique)
	if err != nil {
		return nil, err
	}
	observability.ModerationActions.WithLabelValues(string(ctype), "bulk_delete").Add(float64(affected))
	return &models.BulkResult{Type: ctype, Requested: len(ids), Affected: affected}, nil
}

// Queue lists pending content, or flagged content when in.Flagged is set.
// The type defaults to posts.
func (s *ModerationService) Queue(ctx context.Context, in QueueInput) (*ModerationQueue, error) {
	raw := in.Type
	if raw == "" {
		raw = string(models.ContentPost)
	}
	ctype, err := parseType(raw)
	if err != nil {
		return nil, err
	}

	filter := repository.ContentFilter{
		ViewerID:      in.AdminID,
		IncludeHidden: true,
		PendingOnly:   !in.Flagged,
		FlaggedOnly:   in.Flagged,
		Limit:         in.Limit,
		Offset:        in.Offset,
	}
	out := &ModerationQueue{Type: ctype, Flagged: in.Flagged}
	if ctype == models.ContentComment {
		out.Comments, err = s.commentRepo.List(ctx, filter)
		if out.Comments == nil {
			out.Comments = []*models.Comment{}
		}
	} else {
		out.Posts, err = s.postRepo.List(ctx, filter)
		if out.Posts == nil {
			out.Posts = []*models.Post{}
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *ModerationService) Stats(ctx context.Context) (*models.PlatformStats, error) {
	return s.modRepo.Stats(ctx)
}

// SetUserBlocked blocks or unblocks a user. Admins cannot block themselves or
// other admins; unblocking has no such restriction.
func (s *ModerationService) SetUserBlocked(ctx context.Context, adminID, userID uint, blocked bool) (*models.User, error) {
	target, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if blocked {
		if target.ID == adminID {
			return nil, models.NewValidationError("You cannot block yourself")
		}
		if target.IsAdmin {
			return nil, models.NewForbiddenError("Cannot block another admin")
		}
	}
	if err := s.userRepo.SetBlocked(ctx, userID, blocked); err != nil {
		return nil, err
	}
	target.IsBlocked = blocked
	return target, nil
}

// DeleteUser removes a user and everything they own.
func (s *ModerationService) DeleteUser(ctx context.Context, adminID, userID uint) error {
	target, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if target.ID == adminID {
		return models.NewValidationError("You cannot delete your own account here")
	}
	if target.IsAdmin {
		return models.NewForbiddenError("Cannot delete another admin")
	}
	return s.userRepo.Delete(ctx, userID)
}
