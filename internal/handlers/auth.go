package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/memora/backend/internal/logger"
	"github.com/memora/backend/internal/util"
)

// GoogleOAuth redirects the browser to Google's consent screen
// GET /api/v1/auth/google
func (h *Handlers) GoogleOAuth(c *gin.Context) {
	state := uuid.New().String()

	// State round-trips through a short-lived cookie to stop CSRF on
	// the callback
	c.SetCookie("oauth_state", state, 600, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, h.auth.GetGoogleOAuthURL(state))
}

// GoogleCallback completes the OAuth flow and returns a session token
// GET /api/v1/auth/google/callback
func (h *Handlers) GoogleCallback(c *gin.Context) {
	state := c.Query("state")
	cookieState, err := c.Cookie("oauth_state")
	if err != nil || state == "" || state != cookieState {
		util.RespondBadRequest(c, "oauth state mismatch")
		return
	}

	code := c.Query("code")
	if code == "" {
		util.RespondBadRequest(c, "missing authorization code")
		return
	}

	resp, err := h.auth.HandleGoogleCallback(c.Request.Context(), code)
	if err != nil {
		logger.ErrorWithFields("google oauth callback failed", err)
		util.RespondUnauthorized(c, "authentication failed")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me returns the authenticated user's own account
// GET /api/v1/auth/me
func (h *Handlers) Me(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, user)
}
