package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/memora/backend/internal/analytics"
	"github.com/memora/backend/internal/auth"
	"github.com/memora/backend/internal/cache"
	"github.com/memora/backend/internal/config"
	"github.com/memora/backend/internal/database"
	"github.com/memora/backend/internal/engagement"
	"github.com/memora/backend/internal/handlers"
	"github.com/memora/backend/internal/logger"
	"github.com/memora/backend/internal/metrics"
	"github.com/memora/backend/internal/middleware"
	"github.com/memora/backend/internal/notifications"
	"github.com/memora/backend/internal/social"
	"github.com/memora/backend/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	if err := logger.Initialize(logLevel, "server.log"); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("=== Memora server starting ===")

	metrics.Initialize()

	// Initialize database
	if err := database.Initialize(); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Redis is optional. Trending falls back to the database when the
	// cache is absent.
	var redisClient *cache.RedisClient
	if os.Getenv("REDIS_HOST") != "" {
		var err error
		redisClient, err = cache.NewRedisClient(
			os.Getenv("REDIS_HOST"),
			os.Getenv("REDIS_PORT"),
			os.Getenv("REDIS_PASSWORD"),
		)
		if err != nil {
			logger.Log.Warn("Redis unavailable, continuing without cache", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	// Initialize auth service
	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtSecret) == 0 {
		logger.Log.Fatal("JWT_SECRET environment variable is required")
	}

	oauthConfig, err := config.LoadOAuthConfig()
	if err != nil {
		logger.Log.Fatal("Failed to load OAuth config", zap.Error(err))
	}

	authService := auth.NewService(database.DB, jwtSecret, oauthConfig.GoogleConfig)

	// Domain services
	notificationService := notifications.NewService(database.DB)
	engagementService := engagement.NewService(database.DB, notificationService, redisClient)
	socialStore := social.NewStore(database.DB, notificationService)
	analyticsService := analytics.NewService(database.DB)

	h := handlers.NewHandlers(
		authService,
		engagementService,
		socialStore,
		notificationService,
		analyticsService,
	)

	// S3 is optional. Uploads return 503 until a bucket is configured.
	if os.Getenv("AWS_BUCKET") != "" {
		s3Uploader, err := storage.NewS3Uploader(
			os.Getenv("AWS_REGION"),
			os.Getenv("AWS_BUCKET"),
			os.Getenv("CDN_BASE_URL"),
		)
		if err != nil {
			logger.Log.Warn("S3 uploader init failed, continuing without uploads", zap.Error(err))
		} else {
			if err := s3Uploader.CheckBucketAccess(context.Background()); err != nil {
				logger.Log.Warn("S3 bucket access check failed", zap.Error(err))
			}
			h.SetUploader(s3Uploader)
		}
	} else {
		logger.Log.Warn("AWS_BUCKET not set, image uploads disabled")
	}

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	// promhttp negotiates its own compression
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"} // Configure properly for production
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		status := "ok"
		code := http.StatusOK
		if err := database.Health(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC(),
			"service":   "memora-backend",
		})
	})

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMW := authService.Middleware()

	// API routes
	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
	{
		// Authentication routes
		authGroup := api.Group("/auth")
		{
			authGroup.GET("/google", h.GoogleOAuth)
			authGroup.GET("/google/callback", h.GoogleCallback)
			authGroup.GET("/me", authMW, h.Me)
		}

		// Post routes
		posts := api.Group("/posts")
		{
			// Public reads
			posts.GET("", h.ListPosts)
			posts.GET("/trending", h.ListTrendingPosts)
			posts.GET("/search", h.SearchPosts)
			posts.GET("/hashtag/:tag", h.ListPostsByHashtag)
			posts.GET("/:id", h.GetPost)
			posts.GET("/:id/comments", h.GetComments)

			// Views accept anonymous traffic
			posts.POST("/:id/view", authService.OptionalMiddleware(), h.RecordView)

			// Authenticated writes
			posts.POST("", authMW, h.CreatePost)
			posts.PUT("/:id", authMW, h.UpdatePost)
			posts.DELETE("/:id", authMW, h.DeletePost)
			posts.POST("/:id/like", authMW, h.ToggleLike)
			posts.GET("/:id/liked", authMW, h.CheckLiked)
			posts.POST("/:id/comments", authMW, h.CreateComment)
			posts.GET("/:id/analytics", authMW, h.GetPostAnalytics)
		}

		// Comment routes
		comments := api.Group("/comments")
		{
			comments.Use(authMW)
			comments.DELETE("/:id", h.DeleteComment)
		}

		// User routes
		users := api.Group("/users")
		{
			users.GET("/:id/profile", h.GetUserProfile)
			users.GET("/:id/stats", h.GetUserStats)
			users.GET("/:id/posts", h.GetUserPosts)
			users.GET("/:id/followers", h.GetFollowers)
			users.GET("/:id/following", h.GetFollowing)

			users.PUT("/me", authMW, h.UpdateProfile)
			users.GET("/me/analytics", authMW, h.GetMyAnalytics)
			users.POST("/:id/follow", authMW, h.FollowUser)
			users.DELETE("/:id/follow", authMW, h.UnfollowUser)
			users.GET("/:id/follow", authMW, h.GetFollowStatus)
		}

		// Notification routes
		notificationsGroup := api.Group("/notifications")
		{
			notificationsGroup.Use(authMW)
			notificationsGroup.GET("", h.GetNotifications)
			notificationsGroup.GET("/unread-count", h.GetUnreadCount)
			notificationsGroup.GET("/subscribe", h.SubscribeNotifications)
			notificationsGroup.POST("/read-all", h.MarkAllNotificationsRead)
			notificationsGroup.POST("/:id/read", h.MarkNotificationRead)
			notificationsGroup.DELETE("/:id", h.RemoveNotification)
			notificationsGroup.DELETE("", h.RemoveAllNotifications)
		}

		// Upload route
		api.POST("/upload", middleware.RateLimit(middleware.UploadRateLimitConfig()), authMW, h.UploadImage)

		// Admin routes
		admin := api.Group("/admin")
		{
			admin.Use(authMW, middleware.RequireAdmin())
			admin.GET("/stats", h.GetAdminStats)
		}
	}

	// Server configuration
	port := os.Getenv("PORT")
	if port == "" {
		port = "8787"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("Memora backend listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}
