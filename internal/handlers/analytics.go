package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/memora/backend/internal/util"
)

// GetPostAnalytics returns the trailing-week summary for one post.
// Only the author or an admin may view it.
// GET /api/v1/posts/:id/analytics
func (h *Handlers) GetPostAnalytics(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	post, err := h.engagement.GetPost(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if post.AuthorID != user.ID && !user.IsAdmin {
		util.RespondForbidden(c, "analytics are only visible to the author")
		return
	}

	result, err := h.analytics.ForPost(post.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetMyAnalytics returns the caller's trailing-month author summary
// GET /api/v1/users/me/analytics
func (h *Handlers) GetMyAnalytics(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	result, err := h.analytics.ForUser(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
