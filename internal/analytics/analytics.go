// Package analytics computes engagement summaries for posts and
// authors. All date bucketing is done in UTC so a view lands in the
// same bucket no matter where the server runs.
package analytics

import (
	"time"

	"github.com/memora/backend/internal/errors"
	"github.com/memora/backend/internal/models"
	"gorm.io/gorm"
)

const (
	postWindowDays = 7
	userWindowDays = 30

	recentEngagementLimit = 10
	recentPostsLimit      = 5
)

const dateLayout = "2006-01-02"

// Service computes analytics from the engagement ledgers
type Service struct {
	db *gorm.DB
}

// NewService creates an analytics service backed by db
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// DailyViews is one day's view count within a post's window
type DailyViews struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
}

// PostAnalytics summarizes one post's engagement
type PostAnalytics struct {
	PostID        string `json:"post_id"`
	Title         string `json:"title"`
	TotalViews    int    `json:"total_views"`
	TotalLikes    int    `json:"total_likes"`
	TotalComments int    `json:"total_comments"`

	// DailyViews covers the trailing week, oldest day first, with a
	// bucket for every day even when it is zero
	DailyViews []DailyViews `json:"daily_views"`

	RecentLikes    []models.Like    `json:"recent_likes"`
	RecentComments []models.Comment `json:"recent_comments"`
}

// DayInteractions is one day's like and comment activity across an
// author's posts. Views are tracked per post, not per author, so the
// field stays zero in the by-day series.
type DayInteractions struct {
	Date     string `json:"date"`
	Likes    int    `json:"likes"`
	Comments int    `json:"comments"`
	Views    int    `json:"views"`
}

// UserAnalytics summarizes an author's footprint across their posts
type UserAnalytics struct {
	UserID        string `json:"user_id"`
	PostCount     int    `json:"post_count"`
	TotalLikes    int    `json:"total_likes"`
	TotalComments int    `json:"total_comments"`
	TotalViews    int    `json:"total_views"`

	MostPopularPost *models.Post  `json:"most_popular_post,omitempty"`
	RecentPosts     []models.Post `json:"recent_posts"`

	// InteractionsByDay covers the trailing month, oldest day first
	InteractionsByDay []DayInteractions `json:"interactions_by_day"`
}

// ForPost computes the trailing-week analytics for one post
func (s *Service) ForPost(postID string) (*PostAnalytics, error) {
	var post models.Post
	if err := s.db.First(&post, "id = ?", postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.NotFound("post")
		}
		return nil, err
	}

	result := &PostAnalytics{
		PostID:         post.ID,
		Title:          post.Title,
		TotalViews:     post.Views,
		TotalLikes:     post.Likes,
		TotalComments:  post.CommentCount,
		RecentLikes:    []models.Like{},
		RecentComments: []models.Comment{},
	}

	windowStart := dayStart(time.Now().UTC()).AddDate(0, 0, -(postWindowDays - 1))

	var views []models.PostView
	err := s.db.Where("post_id = ? AND created_at >= ?", postID, windowStart).
		Find(&views).Error
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]int)
	for _, v := range views {
		byDay[v.CreatedAt.UTC().Format(dateLayout)]++
	}
	result.DailyViews = make([]DailyViews, 0, postWindowDays)
	for i := 0; i < postWindowDays; i++ {
		day := windowStart.AddDate(0, 0, i).Format(dateLayout)
		result.DailyViews = append(result.DailyViews, DailyViews{
			Date:  day,
			Views: byDay[day],
		})
	}

	err = s.db.Where("post_id = ?", postID).
		Order("created_at DESC").
		Limit(recentEngagementLimit).
		Find(&result.RecentLikes).Error
	if err != nil {
		return nil, err
	}

	err = s.db.Where("post_id = ?", postID).
		Order("created_at DESC").
		Limit(recentEngagementLimit).
		Find(&result.RecentComments).Error
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ForUser computes the trailing-month analytics across all of one
// author's posts. Totals come from the denormalized post counters.
func (s *Service) ForUser(userID string) (*UserAnalytics, error) {
	var posts []models.Post
	err := s.db.Where("author_id = ?", userID).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	result := &UserAnalytics{
		UserID:      userID,
		PostCount:   len(posts),
		RecentPosts: []models.Post{},
	}

	postIDs := make([]string, 0, len(posts))
	for i := range posts {
		post := &posts[i]
		postIDs = append(postIDs, post.ID)
		result.TotalLikes += post.Likes
		result.TotalComments += post.CommentCount
		result.TotalViews += post.Views

		// Strictly-greater comparison keeps the first post seen on a
		// tie, with comment count breaking equal like counts
		if result.MostPopularPost == nil ||
			post.Likes > result.MostPopularPost.Likes ||
			(post.Likes == result.MostPopularPost.Likes &&
				post.CommentCount > result.MostPopularPost.CommentCount) {
			result.MostPopularPost = post
		}
	}

	if len(posts) > recentPostsLimit {
		result.RecentPosts = posts[:recentPostsLimit]
	} else {
		result.RecentPosts = posts
	}

	windowStart := dayStart(time.Now().UTC()).AddDate(0, 0, -(userWindowDays - 1))
	likesByDay := make(map[string]int)
	commentsByDay := make(map[string]int)

	if len(postIDs) > 0 {
		var likes []models.Like
		err = s.db.Where("post_id IN ? AND created_at >= ?", postIDs, windowStart).
			Find(&likes).Error
		if err != nil {
			return nil, err
		}
		for _, l := range likes {
			likesByDay[l.CreatedAt.UTC().Format(dateLayout)]++
		}

		var comments []models.Comment
		err = s.db.Where("post_id IN ? AND created_at >= ?", postIDs, windowStart).
			Find(&comments).Error
		if err != nil {
			return nil, err
		}
		for _, c := range comments {
			commentsByDay[c.CreatedAt.UTC().Format(dateLayout)]++
		}
	}

	result.InteractionsByDay = make([]DayInteractions, 0, userWindowDays)
	for i := 0; i < userWindowDays; i++ {
		day := windowStart.AddDate(0, 0, i).Format(dateLayout)
		result.InteractionsByDay = append(result.InteractionsByDay, DayInteractions{
			Date:     day,
			Likes:    likesByDay[day],
			Comments: commentsByDay[day],
		})
	}

	return result, nil
}

// dayStart truncates t to UTC midnight
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
