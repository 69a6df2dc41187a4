package server

import (
	"fmt"

	"agora/internal/models"
	"agora/internal/notifications"
	"agora/internal/service"

	"github.com/gofiber/fiber/v2"
)

type bulkRequest struct {
	IDs []uint `json:"ids"`
}

// GetModerationQueue handles GET /api/admin/queue
// @Summary Moderation queue
// @Description Pending content, or flagged content with flagged=true
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param type query string false "posts or comments" default(posts)
// @Param flagged query bool false "List flagged instead of pending"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} service.ModerationQueue
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/queue [get]
func (s *Server) GetModerationQueue(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	queue, err := s.moderationService.Queue(c.UserContext(), service.QueueInput{
		AdminID: currentUserID(c),
		Type:    c.Query("type"),
		Flagged: c.QueryBool("flagged", false),
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(queue)
}

// GetPlatformStats handles GET /api/admin/stats
// @Summary Platform statistics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.PlatformStats
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/stats [get]
func (s *Server) GetPlatformStats(c *fiber.Ctx) error {
	stats, err := s.moderationService.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// ModerateContent handles POST /api/admin/:type/:id/:action
// @Summary Moderate one item
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param type path string true "posts or comments"
// @Param id path int true "Content ID"
// @Param action path string true "approve, reject, flag or unflag"
// @Success 200 {object} service.ModeratedContent
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/{type}/{id}/{action} [post]
func (s *Server) ModerateContent(c *fiber.Ctx) error {
	id, err := parseID(c, "content")
	if err != nil {
		return nil
	}
	action, ok := service.ParseModerationAction(c.Params("action"))
	if !ok {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError(fmt.Sprintf("Unknown moderation action %q", c.Params("action"))))
	}

	res, err := s.moderationService.Transition(c.UserContext(), currentUserID(c), c.Params("type"), id, action)
	if err != nil {
		return respondError(c, err)
	}

	if action == service.ActionApprove && res.Post != nil {
		s.publish(c.UserContext(), notifications.EventPostApproved, map[string]interface{}{
			"post_id":   res.Post.ID,
			"author_id": res.Post.UserID,
		}, res.Post.UserID)
	}
	return c.JSON(res)
}

// BulkApprove handles POST /api/admin/:type/bulk-approve
// @Summary Approve many items
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "posts or comments"
// @Param request body bulkRequest true "Between 1 and 500 ids"
// @Success 200 {object} models.BulkResult
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/{type}/bulk-approve [post]
func (s *Server) BulkApprove(c *fiber.Ctx) error {
	var req bulkRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.moderationService.BulkApprove(c.UserContext(), c.Params("type"), req.IDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// BulkDelete handles POST /api/admin/:type/bulk-delete
// @Summary Delete many items
// @Description Dependent comments, votes and likes are removed too
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param type path string true "posts or comments"
// @Param request body bulkRequest true "Between 1 and 500 ids"
// @Success 200 {object} models.BulkResult
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/{type}/bulk-delete [post]
func (s *Server) BulkDelete(c *fiber.Ctx) error {
	var req bulkRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.moderationService.BulkDelete(c.UserContext(), c.Params("type"), req.IDs)
	if err != nil {
		return respondError(c, err)
	}
	if res.Affected > 0 {
		s.publish(c.UserContext(), notifications.EventContentDeleted, map[string]interface{}{
			"type":       res.Type,
			"ids":        req.IDs,
			"affected":   res.Affected,
			"deleted_by": currentUserID(c),
		})
	}
	return c.JSON(res)
}

// BlockUser handles POST /api/admin/users/:id/block
// @Summary Block user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/block [post]
func (s *Server) BlockUser(c *fiber.Ctx) error {
	return s.setBlocked(c, true)
}

// UnblockUser handles POST /api/admin/users/:id/unblock
// @Summary Unblock user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id}/unblock [post]
func (s *Server) UnblockUser(c *fiber.Ctx) error {
	return s.setBlocked(c, false)
}

func (s *Server) setBlocked(c *fiber.Ctx, blocked bool) error {
	id, err := parseID(c, "user")
	if err != nil {
		return nil
	}

	user, err := s.moderationService.SetUserBlocked(c.UserContext(), currentUserID(c), id, blocked)
	if err != nil {
		return respondError(c, err)
	}

	s.publish(c.UserContext(), notifications.EventUserBlocked, map[string]interface{}{
		"user_id":    user.ID,
		"blocked":    blocked,
		"changed_by": currentUserID(c),
	}, user.ID)
	return c.JSON(user)
}

// DeleteUser handles DELETE /api/admin/users/:id
// @Summary Delete user
// @Description Removes the account with its posts, comments, votes and likes
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/users/{id} [delete]
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	id, err := parseID(c, "user")
	if err != nil {
		return nil
	}

	if err := s.moderationService.DeleteUser(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User deleted"})
}
