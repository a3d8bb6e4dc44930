package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/memora/backend/internal/engagement"
	"github.com/memora/backend/internal/metrics"
	"github.com/memora/backend/internal/util"
)

// CreatePost creates a new post
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var input engagement.PostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return
	}

	post, err := h.engagement.CreatePost(user, input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	metrics.Get().PostsCreatedTotal.Inc()
	c.JSON(http.StatusCreated, post)
}

// GetPost returns a single post
// GET /api/v1/posts/:id
func (h *Handlers) GetPost(c *gin.Context) {
	post, err := h.engagement.GetPost(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// UpdatePost applies a partial edit to the caller's post
// PUT /api/v1/posts/:id
func (h *Handlers) UpdatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var update engagement.PostUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return
	}

	post, err := h.engagement.UpdatePost(userID, c.Param("id"), update)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost removes a post and reports what the cascade reaped
// DELETE /api/v1/posts/:id
func (h *Handlers) DeletePost(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	counts, err := h.engagement.DeletePost(user, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	metrics.Get().PostsDeletedTotal.Inc()
	c.JSON(http.StatusOK, gin.H{
		"status": "deleted",
		"reaped": counts,
	})
}

// ListPosts returns the global feed, newest first
// GET /api/v1/posts?limit=20&offset=0
func (h *Handlers) ListPosts(c *gin.Context) {
	limit := util.ParseInt(c.DefaultQuery("limit", "20"), 20)
	offset := util.ParseInt(c.DefaultQuery("offset", "0"), 0)

	posts, err := h.engagement.ListPosts(limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"meta": gin.H{
			"limit":  limit,
			"offset": offset,
			"count":  len(posts),
		},
	})
}

// ListTrendingPosts returns the most-liked posts
// GET /api/v1/posts/trending?limit=20
func (h *Handlers) ListTrendingPosts(c *gin.Context) {
	limit := util.ParseInt(c.DefaultQuery("limit", "20"), 20)

	posts, err := h.engagement.ListTrendingPosts(c.Request.Context(), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// SearchPosts matches posts against a free-text query
// GET /api/v1/posts/search?q=...
func (h *Handlers) SearchPosts(c *gin.Context) {
	limit := util.ParseInt(c.DefaultQuery("limit", "20"), 20)

	posts, err := h.engagement.SearchPosts(c.Query("q"), limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// ListPostsByHashtag returns posts carrying a hashtag
// GET /api/v1/posts/hashtag/:tag
func (h *Handlers) ListPostsByHashtag(c *gin.Context) {
	limit := util.ParseInt(c.DefaultQuery("limit", "20"), 20)
	offset := util.ParseInt(c.DefaultQuery("offset", "0"), 0)

	posts, err := h.engagement.ListPostsByHashtag(c.Param("tag"), limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// ToggleLike flips the caller's like on a post
// POST /api/v1/posts/:id/like
func (h *Handlers) ToggleLike(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	liked, err := h.engagement.ToggleLike(user, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	state := "unliked"
	if liked {
		state = "liked"
	}
	metrics.Get().LikesToggledTotal.WithLabelValues(state).Inc()
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

// CheckLiked reports whether the caller has liked a post
// GET /api/v1/posts/:id/liked
func (h *Handlers) CheckLiked(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	liked, err := h.engagement.CheckLiked(c.Param("id"), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

// RecordView appends a view record. Anonymous views are allowed; the
// optional auth middleware attaches the viewer when a token is given.
// POST /api/v1/posts/:id/view
func (h *Handlers) RecordView(c *gin.Context) {
	var viewerID *string
	if id, exists := c.Get("user_id"); exists {
		if idStr, ok := id.(string); ok {
			viewerID = &idStr
		}
	}

	if err := h.engagement.RecordView(c.Param("id"), viewerID); err != nil {
		respondServiceError(c, err)
		return
	}

	metrics.Get().ViewsRecordedTotal.Inc()
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}
