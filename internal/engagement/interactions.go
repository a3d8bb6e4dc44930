package engagement

import (
	"github.com/memora/backend/internal/errors"
	"github.com/memora/backend/internal/logger"
	"github.com/memora/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ToggleLike flips the caller's like on a post and returns the new
// state. The like ledger row has a deterministic ID per (post, user),
// so concurrent toggles resolve at insert time: whoever lands the row
// owns the increment.
func (s *Service) ToggleLike(user *models.User, postID string) (liked bool, err error) {
	post, err := s.GetPost(postID)
	if err != nil {
		return false, err
	}

	entry := models.Like{PostID: postID, UserID: user.ID}
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
	if result.Error != nil {
		return false, result.Error
	}

	if result.RowsAffected > 0 {
		// Fresh like
		s.db.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("likes", gorm.Expr("likes + 1"))
		s.notifier.NotifyLike(post, user)
		return true, nil
	}

	// Already liked: remove the ledger row and walk the counter back.
	// The guard keeps a drifted counter from going negative.
	unlike := s.db.Where("id = ?", models.LikeID(postID, user.ID)).Delete(&models.Like{})
	if unlike.Error != nil {
		return true, unlike.Error
	}
	if unlike.RowsAffected > 0 {
		s.db.Model(&models.Post{}).Where("id = ? AND likes > 0", postID).
			UpdateColumn("likes", gorm.Expr("likes - 1"))
	}
	return false, nil
}

// CheckLiked reports whether the user has liked the post
func (s *Service) CheckLiked(postID, userID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Like{}).
		Where("id = ?", models.LikeID(postID, userID)).
		Count(&count).Error
	return count > 0, err
}

// AddComment appends a comment to a post, bumps the post's comment
// counter, and notifies the author with a short excerpt
func (s *Service) AddComment(user *models.User, postID, content string) (*models.Comment, error) {
	if content == "" {
		return nil, errors.ValidationError("content", "comment content is required")
	}

	post, err := s.GetPost(postID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:     postID,
		UserID:     user.ID,
		UserName:   user.DisplayName,
		UserAvatar: user.AvatarURL,
		Content:    content,
	}
	if err := s.db.Create(comment).Error; err != nil {
		return nil, err
	}

	s.db.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("comment_count", gorm.Expr("comment_count + 1"))

	logger.Log.Info("comment added",
		logger.WithPostID(postID),
		logger.WithUserID(user.ID),
	)

	s.notifier.NotifyComment(post, user, content)
	return comment, nil
}

// ListComments returns a post's comments in posting order
func (s *Service) ListComments(postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

// DeleteComment removes a comment and walks the post counter back.
// The comment author, the post author, or an admin may delete.
func (s *Service) DeleteComment(actor *models.User, commentID string) error {
	var comment models.Comment
	if err := s.db.First(&comment, "id = ?", commentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return errors.NotFound("comment")
		}
		return err
	}

	if comment.UserID != actor.ID && !actor.IsAdmin {
		post, err := s.GetPost(comment.PostID)
		if err != nil || post.AuthorID != actor.ID {
			return errors.Forbidden("not allowed to delete this comment")
		}
	}

	result := s.db.Delete(&models.Comment{}, "id = ?", commentID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		s.db.Model(&models.Post{}).
			Where("id = ? AND comment_count > 0", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1"))
	}
	return nil
}

// RecordView appends a view record and bumps the post's view counter.
// viewerID is nil for anonymous views. Repeat views all count. Fails
// closed on a missing post so the ledger never holds orphaned views.
func (s *Service) RecordView(postID string, viewerID *string) error {
	if _, err := s.GetPost(postID); err != nil {
		return err
	}

	view := &models.PostView{PostID: postID, ViewerID: viewerID}
	if err := s.db.Create(view).Error; err != nil {
		return err
	}

	return s.db.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
}

// ReconcilePosts recomputes every post's denormalized counters from
// the ledgers and overwrites drifted values. Returns how many posts
// were corrected.
func (s *Service) ReconcilePosts() (int64, error) {
	var posts []models.Post
	if err := s.db.Find(&posts).Error; err != nil {
		return 0, err
	}

	var corrected int64
	for i := range posts {
		post := &posts[i]

		var likes, comments, views int64
		s.db.Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&likes)
		s.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments)
		s.db.Model(&models.PostView{}).Where("post_id = ?", post.ID).Count(&views)

		if int(likes) == post.Likes && int(comments) == post.CommentCount && int(views) == post.Views {
			continue
		}

		err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumns(map[string]interface{}{
				"likes":         likes,
				"comment_count": comments,
				"views":         views,
			}).Error
		if err != nil {
			return corrected, err
		}

		logger.Log.Info("reconciled post counters",
			logger.WithPostID(post.ID),
			zap.Int64("likes", likes),
			zap.Int64("comments", comments),
			zap.Int64("views", views),
		)
		corrected++
	}
	return corrected, nil
}
