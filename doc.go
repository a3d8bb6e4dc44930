// Package backend provides the Memora API server.

// This package contains the main application entry point. The actual API
// documentation is organized into subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/models: Data models and database schemas
// - internal/auth: Authentication and authorization services
// - internal/engagement: Posts, likes, comments, and views
// - internal/social: Follow graph and follower counters
// - internal/notifications: Notification inbox and live delivery
// - internal/analytics: Post and author engagement summaries
// - internal/storage: File storage (S3) operations
// - internal/database: Database connection and migrations
// - internal/cache: Redis connection and helpers
// - internal/middleware: HTTP middleware (rate limiting, metrics, etc.)

// See the individual package documentation for detailed API reference.
package backend
