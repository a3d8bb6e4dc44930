package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/memora/backend/internal/database"
	"github.com/memora/backend/internal/models"
	"github.com/memora/backend/internal/util"
)

// GetUserProfile returns a user's public profile
// GET /api/v1/users/:id/profile
func (h *Handlers) GetUserProfile(c *gin.Context) {
	var user models.User
	err := database.DB.First(&user, "id = ?", c.Param("id")).Error
	if util.HandleDBError(c, err, "user") {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":              user.ID,
		"name":            user.DisplayName,
		"image":           user.AvatarURL,
		"bio":             user.Bio,
		"location":        user.Location,
		"followers_count": user.FollowersCount,
		"following_count": user.FollowingCount,
		"created_at":      user.CreatedAt,
	})
}

// UpdateProfile edits the caller's own display fields
// PUT /api/v1/users/me
func (h *Handlers) UpdateProfile(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		DisplayName *string `json:"name"`
		Bio         *string `json:"bio"`
		Location    *string `json:"location"`
		AvatarURL   *string `json:"image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "invalid request body")
		return
	}

	changes := map[string]interface{}{}
	if req.DisplayName != nil {
		if *req.DisplayName == "" {
			util.RespondValidationError(c, "name", "display name cannot be empty")
			return
		}
		changes["display_name"] = *req.DisplayName
	}
	if req.Bio != nil {
		changes["bio"] = *req.Bio
	}
	if req.Location != nil {
		changes["location"] = *req.Location
	}
	if req.AvatarURL != nil {
		changes["avatar_url"] = *req.AvatarURL
	}

	if len(changes) > 0 {
		if err := database.DB.Model(user).Updates(changes).Error; err != nil {
			util.RespondInternalError(c, err.Error())
			return
		}
	}

	c.JSON(http.StatusOK, user)
}

// GetAdminStats returns platform-wide row counts for the admin panel
// GET /api/v1/admin/stats
func (h *Handlers) GetAdminStats(c *gin.Context) {
	var users, posts, comments, likes int64
	database.DB.Model(&models.User{}).Count(&users)
	database.DB.Model(&models.Post{}).Count(&posts)
	database.DB.Model(&models.Comment{}).Count(&comments)
	database.DB.Model(&models.Like{}).Count(&likes)

	c.JSON(http.StatusOK, gin.H{
		"users":    users,
		"posts":    posts,
		"comments": comments,
		"likes":    likes,
	})
}
