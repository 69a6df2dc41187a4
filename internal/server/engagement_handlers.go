package server

import (
	"agora/internal/models"
	"agora/internal/notifications"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

type voteRequest struct {
	Value int `json:"value"`
}

// VotePost handles POST /api/posts/:id/vote
// @Summary Vote on post
// @Description Same value again removes the vote, the opposite value flips it
// @Tags engagement
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Param request body voteRequest true "1 or -1"
// @Success 200 {object} service.EngagementResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/vote [post]
func (s *Server) VotePost(c *fiber.Ctx) error {
	return s.vote(c, "post", models.PostTarget)
}

// RemovePostVote handles DELETE /api/posts/:id/vote
// @Summary Remove post vote
// @Tags engagement
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} service.EngagementResult
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/vote [delete]
func (s *Server) RemovePostVote(c *fiber.Ctx) error {
	return s.removeVote(c, "post", models.PostTarget)
}

// LikePost handles POST /api/posts/:id/like
// @Summary Toggle post like
// @Tags engagement
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 200 {object} service.EngagementResult
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [post]
func (s *Server) LikePost(c *fiber.Ctx) error {
	return s.like(c, "post", models.PostTarget)
}

// VoteComment handles POST /api/comments/:id/vote
// @Summary Vote on comment
// @Description Only while the comment_votes flag is on for the caller
// @Tags engagement
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Param request body voteRequest true "1 or -1"
// @Success 200 {object} service.EngagementResult
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id}/vote [post]
func (s *Server) VoteComment(c *fiber.Ctx) error {
	return s.vote(c, "comment", models.CommentTarget)
}

// RemoveCommentVote handles DELETE /api/comments/:id/vote
// @Summary Remove comment vote
// @Tags engagement
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} service.EngagementResult
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id}/vote [delete]
func (s *Server) RemoveCommentVote(c *fiber.Ctx) error {
	return s.removeVote(c, "comment", models.CommentTarget)
}

// LikeComment handles POST /api/comments/:id/like
// @Summary Toggle comment like
// @Tags engagement
// @Produce json
// @Security BearerAuth
// @Param id path int true "Comment ID"
// @Success 200 {object} service.EngagementResult
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{id}/like [post]
func (s *Server) LikeComment(c *fiber.Ctx) error {
	return s.like(c, "comment", models.CommentTarget)
}

func (s *Server) vote(c *fiber.Ctx, resource string, target func(uint) models.Target) error {
	id, err := parseID(c, resource)
	if err != nil {
		return nil
	}
	var req voteRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.engagementService.CastVote(c.UserContext(), currentUserID(c), target(id), req.Value)
	if err != nil {
		return respondError(c, err)
	}
	s.publishEngagement(c, notifications.EventVoteChanged, target(id), res)
	return c.JSON(res)
}

func (s *Server) removeVote(c *fiber.Ctx, resource string, target func(uint) models.Target) error {
	id, err := parseID(c, resource)
	if err != nil {
		return nil
	}

	res, err := s.engagementService.RemoveVote(c.UserContext(), currentUserID(c), target(id))
	if err != nil {
		return respondError(c, err)
	}
	if res.Action == models.VoteRemoved {
		s.publishEngagement(c, notifications.EventVoteChanged, target(id), res)
	}
	return c.JSON(res)
}

func (s *Server) like(c *fiber.Ctx, resource string, target func(uint) models.Target) error {
	id, err := parseID(c, resource)
	if err != nil {
		return nil
	}

	res, err := s.engagementService.ToggleLike(c.UserContext(), currentUserID(c), target(id))
	if err != nil {
		return respondError(c, err)
	}
	s.publishEngagement(c, notifications.EventLikeToggled, target(id), res)
	return c.JSON(res)
}

// publishEngagement notifies the content owner with the recomputed score.
func (s *Server) publishEngagement(c *fiber.Ctx, eventType string, target models.Target, res *service.EngagementResult) {
	payload := map[string]interface{}{
		"type":    target.Type,
		"id":      target.ID,
		"user_id": currentUserID(c),
	}
	if res.Action != "" {
		payload["action"] = res.Action
	}
	if res.Liked != nil {
		payload["liked"] = *res.Liked
	}

	var owner uint
	switch {
	case res.Post != nil:
		owner = res.Post.UserID
		payload["score"] = res.Post.Score
		payload["likes_count"] = res.Post.LikesCount
	case res.Comment != nil:
		owner = res.Comment.UserID
		payload["score"] = res.Comment.Score
		payload["likes_count"] = res.Comment.LikesCount
	}
	s.publish(c.UserContext(), eventType, payload, owner)
}
