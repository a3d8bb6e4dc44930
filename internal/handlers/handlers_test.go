package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/memora/backend/internal/analytics"
	"github.com/memora/backend/internal/database"
	"github.com/memora/backend/internal/engagement"
	"github.com/memora/backend/internal/logger"
	"github.com/memora/backend/internal/middleware"
	"github.com/memora/backend/internal/models"
	"github.com/memora/backend/internal/notifications"
	"github.com/memora/backend/internal/social"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// HandlersTestSuite exercises the HTTP surface against an in-memory
// database with a header-based stand-in for the auth middleware
type HandlersTestSuite struct {
	suite.Suite

	db       *gorm.DB
	router   *gin.Engine
	handlers *Handlers

	author models.User
	viewer models.User
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (suite *HandlersTestSuite) SetupSuite() {
	require.NoError(suite.T(), logger.Initialize("error", filepath.Join(os.TempDir(), "memora-test.log")))
	gin.SetMode(gin.TestMode)
}

func (suite *HandlersTestSuite) SetupTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(suite.T(), err)

	sqlDB, err := db.DB()
	require.NoError(suite.T(), err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(suite.T(), db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.Follow{},
		&models.Notification{},
		&models.PostView{},
	))

	suite.db = db
	database.DB = db

	notifier := notifications.NewService(db)
	suite.handlers = NewHandlers(
		nil, // no OAuth flow in handler tests
		engagement.NewService(db, notifier, nil),
		social.NewStore(db, notifier),
		notifier,
		analytics.NewService(db),
	)

	suite.author = models.User{ID: "author", Email: "author@example.com", DisplayName: "Author"}
	suite.viewer = models.User{ID: "viewer", Email: "viewer@example.com", DisplayName: "Viewer"}
	require.NoError(suite.T(), db.Create(&suite.author).Error)
	require.NoError(suite.T(), db.Create(&suite.viewer).Error)

	suite.router = gin.New()
	suite.setupRoutes()
}

// setupRoutes configures the test router with a header-based auth
// middleware that mirrors what the JWT middleware stores
func (suite *HandlersTestSuite) setupRoutes() {
	authMiddleware := func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var user models.User
		if err := suite.db.First(&user, "id = ?", userID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not_authenticated"})
			return
		}
		c.Set("user", &user)
		c.Set("user_id", user.ID)
		c.Next()
	}

	optionalAuth := func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			var user models.User
			if err := suite.db.First(&user, "id = ?", userID).Error; err == nil {
				c.Set("user", &user)
				c.Set("user_id", user.ID)
			}
		}
		c.Next()
	}

	api := suite.router.Group("/api/v1")

	// Public reads
	api.GET("/posts", suite.handlers.ListPosts)
	api.GET("/posts/trending", suite.handlers.ListTrendingPosts)
	api.GET("/posts/search", suite.handlers.SearchPosts)
	api.GET("/posts/hashtag/:tag", suite.handlers.ListPostsByHashtag)
	api.GET("/posts/:id", suite.handlers.GetPost)
	api.GET("/posts/:id/comments", suite.handlers.GetComments)
	api.GET("/users/:id/profile", suite.handlers.GetUserProfile)
	api.GET("/users/:id/stats", suite.handlers.GetUserStats)
	api.GET("/users/:id/posts", suite.handlers.GetUserPosts)
	api.GET("/users/:id/followers", suite.handlers.GetFollowers)
	api.GET("/users/:id/following", suite.handlers.GetFollowing)
	api.POST("/posts/:id/view", optionalAuth, suite.handlers.RecordView)

	// Authenticated routes
	authed := api.Group("")
	authed.Use(authMiddleware)
	authed.POST("/posts", suite.handlers.CreatePost)
	authed.PUT("/posts/:id", suite.handlers.UpdatePost)
	authed.DELETE("/posts/:id", suite.handlers.DeletePost)
	authed.POST("/posts/:id/like", suite.handlers.ToggleLike)
	authed.GET("/posts/:id/liked", suite.handlers.CheckLiked)
	authed.POST("/posts/:id/comments", suite.handlers.CreateComment)
	authed.GET("/posts/:id/analytics", suite.handlers.GetPostAnalytics)
	authed.DELETE("/comments/:id", suite.handlers.DeleteComment)
	authed.POST("/users/:id/follow", suite.handlers.FollowUser)
	authed.DELETE("/users/:id/follow", suite.handlers.UnfollowUser)
	authed.GET("/users/:id/follow", suite.handlers.GetFollowStatus)
	authed.PUT("/users/me", suite.handlers.UpdateProfile)
	authed.GET("/users/me/analytics", suite.handlers.GetMyAnalytics)
	authed.GET("/notifications", suite.handlers.GetNotifications)
	authed.GET("/notifications/unread-count", suite.handlers.GetUnreadCount)
	authed.POST("/notifications/read-all", suite.handlers.MarkAllNotificationsRead)
	authed.POST("/notifications/:id/read", suite.handlers.MarkNotificationRead)
	authed.DELETE("/notifications/:id", suite.handlers.RemoveNotification)
	authed.DELETE("/notifications", suite.handlers.RemoveAllNotifications)

	admin := api.Group("/admin")
	admin.Use(authMiddleware, middleware.RequireAdmin())
	admin.GET("/stats", suite.handlers.GetAdminStats)
}

// request performs an HTTP request as the given user ("" = anonymous)
func (suite *HandlersTestSuite) request(method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(suite.T(), err)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlersTestSuite) decode(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func (suite *HandlersTestSuite) createPost(title string) string {
	w := suite.request("POST", "/api/v1/posts", suite.author.ID, map[string]interface{}{
		"title":    title,
		"content":  "content of " + title,
		"hashtags": []string{"test"},
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	return suite.decode(w)["id"].(string)
}

// =============================================================================
// POST TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestCreatePostRequiresAuth() {
	w := suite.request("POST", "/api/v1/posts", "", map[string]interface{}{
		"title": "x", "content": "y",
	})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) TestCreatePostValidation() {
	w := suite.request("POST", "/api/v1/posts", suite.author.ID, map[string]interface{}{
		"title": "no content",
	})
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, w.Code)

	// Title is optional
	w = suite.request("POST", "/api/v1/posts", suite.author.ID, map[string]interface{}{
		"content": "no title",
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	assert.Equal(suite.T(), "", suite.decode(w)["title"])
}

func (suite *HandlersTestSuite) TestCreateAndGetPost() {
	postID := suite.createPost("hello")

	w := suite.request("GET", "/api/v1/posts/"+postID, "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	body := suite.decode(w)
	assert.Equal(suite.T(), "hello", body["title"])
	assert.Equal(suite.T(), suite.author.DisplayName, body["author_name"])
}

func (suite *HandlersTestSuite) TestGetPostNotFound() {
	w := suite.request("GET", "/api/v1/posts/nope", "", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestDeletePostForbiddenForNonAuthor() {
	postID := suite.createPost("protected")

	w := suite.request("DELETE", "/api/v1/posts/"+postID, suite.viewer.ID, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *HandlersTestSuite) TestDeletePostReportsReapCounts() {
	postID := suite.createPost("doomed")
	suite.request("POST", "/api/v1/posts/"+postID+"/like", suite.viewer.ID, nil)
	suite.request("POST", "/api/v1/posts/"+postID+"/comments", suite.viewer.ID,
		map[string]interface{}{"content": "hi"})

	w := suite.request("DELETE", "/api/v1/posts/"+postID, suite.author.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	reaped := suite.decode(w)["reaped"].(map[string]interface{})
	assert.Equal(suite.T(), float64(1), reaped["likes"])
	assert.Equal(suite.T(), float64(1), reaped["comments"])
}

func (suite *HandlersTestSuite) TestSearchAndHashtag() {
	suite.createPost("Mountain Sunrise")

	w := suite.request("GET", "/api/v1/posts/search?q=mountain", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), suite.decode(w)["posts"], 1)

	w = suite.request("GET", "/api/v1/posts/hashtag/test", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Len(suite.T(), suite.decode(w)["posts"], 1)
}

// =============================================================================
// LIKE AND COMMENT TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestLikeToggleRoundTrip() {
	postID := suite.createPost("likeable")

	w := suite.request("POST", "/api/v1/posts/"+postID+"/like", suite.viewer.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), true, suite.decode(w)["liked"])

	w = suite.request("GET", "/api/v1/posts/"+postID+"/liked", suite.viewer.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), true, suite.decode(w)["liked"])

	w = suite.request("POST", "/api/v1/posts/"+postID+"/like", suite.viewer.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), false, suite.decode(w)["liked"])
}

func (suite *HandlersTestSuite) TestCommentFlow() {
	postID := suite.createPost("commented")

	w := suite.request("POST", "/api/v1/posts/"+postID+"/comments", suite.viewer.ID,
		map[string]interface{}{"content": "nice one"})
	require.Equal(suite.T(), http.StatusCreated, w.Code)
	commentID := suite.decode(w)["id"].(string)

	w = suite.request("GET", "/api/v1/posts/"+postID+"/comments", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), float64(1), suite.decode(w)["count"])

	w = suite.request("DELETE", "/api/v1/comments/"+commentID, suite.viewer.ID, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

// =============================================================================
// VIEW TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestAnonymousViewRecording() {
	postID := suite.createPost("viewed")

	w := suite.request("POST", "/api/v1/posts/"+postID+"/view", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var view models.PostView
	require.NoError(suite.T(), suite.db.First(&view).Error)
	assert.Nil(suite.T(), view.ViewerID)
}

func (suite *HandlersTestSuite) TestAuthenticatedViewRecording() {
	postID := suite.createPost("viewed")

	w := suite.request("POST", "/api/v1/posts/"+postID+"/view", suite.viewer.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var view models.PostView
	require.NoError(suite.T(), suite.db.First(&view).Error)
	require.NotNil(suite.T(), view.ViewerID)
	assert.Equal(suite.T(), suite.viewer.ID, *view.ViewerID)
}

// =============================================================================
// SOCIAL TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestFollowFlow() {
	w := suite.request("POST", "/api/v1/users/"+suite.author.ID+"/follow", suite.viewer.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), true, suite.decode(w)["created"])

	// The repeat is a no-op that reports the existing edge
	w = suite.request("POST", "/api/v1/users/"+suite.author.ID+"/follow", suite.viewer.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	body := suite.decode(w)
	assert.Equal(suite.T(), false, body["created"])
	assert.Equal(suite.T(), "already following", body["message"])

	w = suite.request("GET", "/api/v1/users/"+suite.author.ID+"/follow", suite.viewer.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), true, suite.decode(w)["following"])

	w = suite.request("GET", "/api/v1/users/"+suite.author.ID+"/followers", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), float64(1), suite.decode(w)["count"])

	w = suite.request("DELETE", "/api/v1/users/"+suite.author.ID+"/follow", suite.viewer.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), false, suite.decode(w)["following"])
}

func (suite *HandlersTestSuite) TestUserStats() {
	suite.request("POST", "/api/v1/users/"+suite.author.ID+"/follow", suite.viewer.ID, nil)

	w := suite.request("GET", "/api/v1/users/"+suite.author.ID+"/stats", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	body := suite.decode(w)
	assert.Equal(suite.T(), float64(1), body["followers_count"])
	assert.Equal(suite.T(), float64(0), body["following_count"])

	// Unknown users report zeroed stats rather than an error
	w = suite.request("GET", "/api/v1/users/nobody/stats", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), float64(0), suite.decode(w)["followers_count"])
}

func (suite *HandlersTestSuite) TestSelfFollowIsNoOp() {
	w := suite.request("POST", "/api/v1/users/"+suite.viewer.ID+"/follow", suite.viewer.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	body := suite.decode(w)
	assert.Equal(suite.T(), false, body["created"])
	assert.Equal(suite.T(), false, body["following"])

	w = suite.request("GET", "/api/v1/users/"+suite.viewer.ID+"/stats", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), float64(0), suite.decode(w)["followers_count"])
}

func (suite *HandlersTestSuite) TestFollowUnknownUser() {
	w := suite.request("POST", "/api/v1/users/nobody/follow", suite.viewer.ID, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// =============================================================================
// NOTIFICATION TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestNotificationInboxFlow() {
	postID := suite.createPost("noisy")
	suite.request("POST", "/api/v1/posts/"+postID+"/like", suite.viewer.ID, nil)
	suite.request("POST", "/api/v1/posts/"+postID+"/comments", suite.viewer.ID,
		map[string]interface{}{"content": "hello there"})

	w := suite.request("GET", "/api/v1/notifications", suite.author.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	body := suite.decode(w)
	assert.Equal(suite.T(), float64(2), body["count"])
	assert.Equal(suite.T(), float64(2), body["unread"])

	w = suite.request("POST", "/api/v1/notifications/read-all", suite.author.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.request("GET", "/api/v1/notifications/unread-count", suite.author.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), float64(0), suite.decode(w)["unread"])

	w = suite.request("DELETE", "/api/v1/notifications", suite.author.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), float64(2), suite.decode(w)["removed"])
}

func (suite *HandlersTestSuite) TestNotificationOwnershipEnforced() {
	postID := suite.createPost("private")
	suite.request("POST", "/api/v1/posts/"+postID+"/like", suite.viewer.ID, nil)

	var note models.Notification
	require.NoError(suite.T(), suite.db.First(&note).Error)

	// The sender can't mark the recipient's notification
	w := suite.request("POST", "/api/v1/notifications/"+note.ID+"/read", suite.viewer.ID, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// =============================================================================
// ANALYTICS TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestPostAnalyticsAuthorOnly() {
	postID := suite.createPost("measured")

	w := suite.request("GET", "/api/v1/posts/"+postID+"/analytics", suite.viewer.ID, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request("GET", "/api/v1/posts/"+postID+"/analytics", suite.author.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	body := suite.decode(w)
	assert.Len(suite.T(), body["daily_views"], 7)
}

func (suite *HandlersTestSuite) TestMyAnalytics() {
	suite.createPost("mine")

	w := suite.request("GET", "/api/v1/users/me/analytics", suite.author.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	body := suite.decode(w)
	assert.Equal(suite.T(), float64(1), body["post_count"])
	assert.Len(suite.T(), body["interactions_by_day"], 30)
}

// =============================================================================
// PROFILE AND ADMIN TESTS
// =============================================================================

func (suite *HandlersTestSuite) TestUpdateProfile() {
	w := suite.request("PUT", "/api/v1/users/me", suite.author.ID, map[string]interface{}{
		"bio":      "writing things",
		"location": "Lisbon",
	})
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var user models.User
	require.NoError(suite.T(), suite.db.First(&user, "id = ?", suite.author.ID).Error)
	assert.Equal(suite.T(), "writing things", user.Bio)
	assert.Equal(suite.T(), "Lisbon", user.Location)
}

func (suite *HandlersTestSuite) TestAdminStatsRequiresAdmin() {
	w := suite.request("GET", "/api/v1/admin/stats", suite.viewer.ID, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	admin := models.User{ID: "admin", DisplayName: "Admin", IsAdmin: true}
	require.NoError(suite.T(), suite.db.Create(&admin).Error)

	w = suite.request("GET", "/api/v1/admin/stats", admin.ID, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	body := suite.decode(w)
	assert.Equal(suite.T(), float64(3), body["users"])
}
