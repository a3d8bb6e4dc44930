package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/memora/backend/internal/metrics"
	"github.com/memora/backend/internal/util"
)

// FollowUser creates a follow edge to the target user
// POST /api/v1/users/:id/follow
func (h *Handlers) FollowUser(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	created, err := h.social.Follow(user, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if !created {
		c.JSON(http.StatusOK, gin.H{
			"following": user.ID != c.Param("id"),
			"created":   false,
			"message":   "already following",
		})
		return
	}

	metrics.Get().FollowsChangedTotal.WithLabelValues("follow").Inc()
	c.JSON(http.StatusOK, gin.H{"following": true, "created": true})
}

// UnfollowUser removes the follow edge to the target user
// DELETE /api/v1/users/:id/follow
func (h *Handlers) UnfollowUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.social.Unfollow(userID, c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}

	metrics.Get().FollowsChangedTotal.WithLabelValues("unfollow").Inc()
	c.JSON(http.StatusOK, gin.H{"following": false})
}

// GetFollowStatus reports whether the caller follows the target user
// GET /api/v1/users/:id/follow
func (h *Handlers) GetFollowStatus(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	following, err := h.social.IsFollowing(userID, c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}

// GetFollowers lists the users following the target user
// GET /api/v1/users/:id/followers
func (h *Handlers) GetFollowers(c *gin.Context) {
	users, err := h.social.Followers(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// GetFollowing lists the users the target user follows
// GET /api/v1/users/:id/following
func (h *Handlers) GetFollowing(c *gin.Context) {
	users, err := h.social.Following(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// GetUserStats returns the denormalized follow counters for a user
// GET /api/v1/users/:id/stats
func (h *Handlers) GetUserStats(c *gin.Context) {
	followers, following, err := h.social.Stats(c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"followers_count": followers,
		"following_count": following,
	})
}

// GetUserPosts returns one user's posts, newest first
// GET /api/v1/users/:id/posts
func (h *Handlers) GetUserPosts(c *gin.Context) {
	limit := util.ParseInt(c.DefaultQuery("limit", "20"), 20)
	offset := util.ParseInt(c.DefaultQuery("offset", "0"), 0)

	posts, err := h.engagement.ListPostsByAuthor(c.Param("id"), limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"count": len(posts),
	})
}
