// Package engagement owns posts and the engagement ledgers around
// them: likes, comments, and views, plus the denormalized counters
// on the post row.
package engagement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/memora/backend/internal/cache"
	"github.com/memora/backend/internal/errors"
	"github.com/memora/backend/internal/logger"
	"github.com/memora/backend/internal/metrics"
	"github.com/memora/backend/internal/models"
	"github.com/memora/backend/internal/notifications"
	"github.com/memora/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	trendingTTL = 5 * time.Minute
)

// Service manages posts and their engagement ledgers
type Service struct {
	db       *gorm.DB
	notifier *notifications.Service
	redis    *cache.RedisClient
}

// NewService creates an engagement service. redis may be nil, in
// which case trending reads skip the cache.
func NewService(db *gorm.DB, notifier *notifications.Service, redis *cache.RedisClient) *Service {
	return &Service{db: db, notifier: notifier, redis: redis}
}

// PostInput carries the caller-supplied fields of a post
type PostInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	ImageURL string   `json:"image"`
	Hashtags []string `json:"hashtags"`
}

// PostUpdate carries a partial update; nil fields are left untouched
type PostUpdate struct {
	Title    *string   `json:"title"`
	Content  *string   `json:"content"`
	ImageURL *string   `json:"image"`
	Hashtags *[]string `json:"hashtags"`
}

// CreatePost persists a new post. Content is required; the title is
// optional. Author display fields are copied onto the row so feed
// reads never join. Hashtags are normalized to lowercase without
// the '#'.
func (s *Service) CreatePost(author *models.User, input PostInput) (*models.Post, error) {
	if input.Content == "" {
		return nil, errors.ValidationError("content", "content is required")
	}

	post := &models.Post{
		AuthorID:     author.ID,
		AuthorName:   author.DisplayName,
		AuthorAvatar: author.AvatarURL,
		Title:        input.Title,
		Content:      input.Content,
		ImageURL:     input.ImageURL,
		Hashtags:     util.NormalizeHashtags(input.Hashtags),
	}
	if err := s.db.Create(post).Error; err != nil {
		return nil, err
	}

	logger.Log.Info("post created",
		logger.WithPostID(post.ID),
		logger.WithUserID(author.ID),
	)
	return post, nil
}

// GetPost loads a single post by ID
func (s *Service) GetPost(postID string) (*models.Post, error) {
	var post models.Post
	if err := s.db.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("post")
		}
		return nil, err
	}
	return &post, nil
}

// UpdatePost applies a partial update. Only the author may edit.
func (s *Service) UpdatePost(userID, postID string, update PostUpdate) (*models.Post, error) {
	post, err := s.GetPost(postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, errors.Forbidden("only the author can edit this post")
	}

	changes := map[string]interface{}{}
	if update.Title != nil {
		// Titles are optional, so clearing one is a valid edit
		changes["title"] = *update.Title
	}
	if update.Content != nil {
		if *update.Content == "" {
			return nil, errors.ValidationError("content", "content cannot be empty")
		}
		changes["content"] = *update.Content
	}
	if update.ImageURL != nil {
		changes["image_url"] = *update.ImageURL
	}
	if update.Hashtags != nil {
		changes["hashtags"] = models.StringArray(util.NormalizeHashtags(*update.Hashtags))
	}
	if len(changes) == 0 {
		return post, nil
	}

	if err := s.db.Model(post).Updates(changes).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// ReapCounts reports how many dependent rows a post deletion removed
type ReapCounts struct {
	Likes         int64 `json:"likes"`
	Comments      int64 `json:"comments"`
	Views         int64 `json:"views"`
	Notifications int64 `json:"notifications"`
}

// DeletePost removes a post and reaps its dependent ledgers: likes,
// comments, views, and notifications that reference it. The author or
// an admin may delete. The reap is best-effort and not transactional;
// a failed sweep leaves orphans that the reconcile pass cleans up.
func (s *Service) DeletePost(actor *models.User, postID string) (*ReapCounts, error) {
	post, err := s.GetPost(postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actor.ID && !actor.IsAdmin {
		return nil, errors.Forbidden("only the author or an admin can delete this post")
	}

	if err := s.db.Delete(&models.Post{}, "id = ?", postID).Error; err != nil {
		return nil, err
	}

	counts := &ReapCounts{}
	counts.Likes = s.reap(postID, "likes", &models.Like{})
	counts.Comments = s.reap(postID, "comments", &models.Comment{})
	counts.Views = s.reap(postID, "views", &models.PostView{})
	counts.Notifications = s.reap(postID, "notifications", &models.Notification{})

	logger.Log.Info("post deleted",
		logger.WithPostID(postID),
		logger.WithUserID(actor.ID),
		zap.Int64("reaped_likes", counts.Likes),
		zap.Int64("reaped_comments", counts.Comments),
		zap.Int64("reaped_views", counts.Views),
		zap.Int64("reaped_notifications", counts.Notifications),
	)
	return counts, nil
}

// reap deletes dependent rows for a post and returns the count.
// Failures are logged and reported as zero.
func (s *Service) reap(postID, name string, model interface{}) int64 {
	result := s.db.Where("post_id = ?", postID).Delete(model)
	if result.Error != nil {
		logger.Log.Error("failed to reap "+name+" for deleted post",
			logger.WithPostID(postID),
			zap.Error(result.Error),
		)
		return 0
	}
	return result.RowsAffected
}

// ListPosts returns the global feed, newest first
func (s *Service) ListPosts(limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.Order("created_at DESC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

// ListPostsByAuthor returns one author's posts, newest first
func (s *Service) ListPostsByAuthor(authorID string, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.Where("author_id = ?", authorID).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

// ListPostsByHashtag returns posts carrying the given hashtag, newest
// first. The tag is matched against the normalized form.
func (s *Service) ListPostsByHashtag(tag string, limit, offset int) ([]models.Post, error) {
	normalized := util.NormalizeHashtags([]string{tag})
	if len(normalized) == 0 {
		return nil, errors.ValidationError("hashtag", "hashtag is required")
	}
	tag = normalized[0]

	// Hashtags are stored as "{a,b,c}"; match the element at any of
	// the four positions it can occupy
	var posts []models.Post
	err := s.db.Where(
		"hashtags = ? OR hashtags LIKE ? OR hashtags LIKE ? OR hashtags LIKE ?",
		"{"+tag+"}", "{"+tag+",%", "%,"+tag+",%", "%,"+tag+"}",
	).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

// SearchPosts matches the query case-insensitively against title,
// content, and hashtags, newest first
func (s *Service) SearchPosts(query string, limit int) ([]models.Post, error) {
	if query == "" {
		return nil, errors.ValidationError("q", "search query is required")
	}

	pattern := "%" + query + "%"
	var posts []models.Post
	err := s.db.Where(
		"LOWER(title) LIKE LOWER(?) OR LOWER(content) LIKE LOWER(?) OR LOWER(hashtags) LIKE LOWER(?)",
		pattern, pattern, pattern,
	).
		Order("created_at DESC").
		Limit(clampLimit(limit)).
		Find(&posts).Error
	return posts, err
}

// ListTrendingPosts returns the most-liked posts. Results are cached
// in Redis for a few minutes; cache misses and cache errors fall
// through to the database.
func (s *Service) ListTrendingPosts(ctx context.Context, limit int) ([]models.Post, error) {
	limit = clampLimit(limit)
	key := fmt.Sprintf("trending:posts:%d", limit)

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, key); err == nil {
			var posts []models.Post
			if err := json.Unmarshal([]byte(cached), &posts); err == nil {
				metrics.Get().CacheHitsTotal.WithLabelValues("trending").Inc()
				return posts, nil
			}
			logger.WarnWithFields("discarding malformed trending cache entry", err)
			_ = s.redis.Del(ctx, key)
		}
		metrics.Get().CacheMissesTotal.WithLabelValues("trending").Inc()
	}

	var posts []models.Post
	err := s.db.Order("likes DESC, created_at DESC").
		Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(posts); err == nil {
			if err := s.redis.SetEx(ctx, key, string(data), trendingTTL); err != nil {
				logger.WarnWithFields("failed to cache trending posts", err)
			}
		}
	}
	return posts, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
