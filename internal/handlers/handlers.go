// Package handlers wires the HTTP surface to the domain services.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/memora/backend/internal/analytics"
	"github.com/memora/backend/internal/auth"
	"github.com/memora/backend/internal/engagement"
	"github.com/memora/backend/internal/errors"
	"github.com/memora/backend/internal/notifications"
	"github.com/memora/backend/internal/social"
	"github.com/memora/backend/internal/storage"
	"github.com/memora/backend/internal/util"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	auth          *auth.Service
	engagement    *engagement.Service
	social        *social.Store
	notifications *notifications.Service
	analytics     *analytics.Service
	uploader      storage.ImageUploader
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	authService *auth.Service,
	engagementService *engagement.Service,
	socialStore *social.Store,
	notificationService *notifications.Service,
	analyticsService *analytics.Service,
) *Handlers {
	return &Handlers{
		auth:          authService,
		engagement:    engagementService,
		social:        socialStore,
		notifications: notificationService,
		analytics:     analyticsService,
	}
}

// SetUploader sets the image uploader used by the upload endpoint
func (h *Handlers) SetUploader(uploader storage.ImageUploader) {
	h.uploader = uploader
}

// respondServiceError maps service-layer errors onto HTTP responses
func respondServiceError(c *gin.Context, err error) {
	if apiErr, ok := err.(*errors.APIError); ok {
		util.RespondWithAPIError(c, apiErr)
		return
	}
	util.RespondInternalError(c, err.Error())
}
