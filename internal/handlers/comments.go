package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/memora/backend/internal/metrics"
	"github.com/memora/backend/internal/util"
)

// CreateComment adds a comment to a post
// POST /api/v1/posts/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return
	}

	comment, err := h.engagement.AddComment(user, c.Param("id"), req.Content)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	metrics.Get().CommentsAddedTotal.Inc()
	c.JSON(http.StatusCreated, comment)
}

// GetComments returns a post's comments in posting order
// GET /api/v1/posts/:id/comments
func (h *Handlers) GetComments(c *gin.Context) {
	comments, err := h.engagement.ListComments(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": comments,
		"count":    len(comments),
	})
}

// DeleteComment removes a comment
// DELETE /api/v1/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	if err := h.engagement.DeleteComment(user, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
