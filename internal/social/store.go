// Package social maintains the follow graph and the denormalized
// follower counters on user rows.
package social

import (
	"github.com/memora/backend/internal/errors"
	"github.com/memora/backend/internal/logger"
	"github.com/memora/backend/internal/models"
	"github.com/memora/backend/internal/notifications"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store manages follow edges between users
type Store struct {
	db       *gorm.DB
	notifier *notifications.Service
}

// NewStore creates a social store backed by db
func NewStore(db *gorm.DB, notifier *notifications.Service) *Store {
	return &Store{db: db, notifier: notifier}
}

// Follow creates a follow edge from follower to followee, bumps both
// users' counters, and notifies the followee. Returns whether a new
// edge was created: following someone you already follow, or
// yourself, is a no-op reported as created == false.
func (s *Store) Follow(follower *models.User, followeeID string) (created bool, err error) {
	if follower.ID == followeeID {
		return false, nil
	}

	var followee models.User
	if err := s.db.First(&followee, "id = ?", followeeID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, errors.NotFound("user")
		}
		return false, err
	}

	// The deterministic edge ID plus ON CONFLICT DO NOTHING makes this
	// an atomic create-if-absent: zero rows affected means the edge
	// already existed and the counters must not move.
	edge := models.Follow{FollowerID: follower.ID, FolloweeID: followeeID}
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	s.db.Model(&models.User{}).Where("id = ?", follower.ID).
		UpdateColumn("following_count", gorm.Expr("following_count + 1"))
	s.db.Model(&models.User{}).Where("id = ?", followeeID).
		UpdateColumn("followers_count", gorm.Expr("followers_count + 1"))

	logger.Log.Info("follow created",
		logger.WithUserID(follower.ID),
		zap.String("followee_id", followeeID),
	)

	s.notifier.NotifyFollow(followeeID, follower)
	return true, nil
}

// Unfollow removes the follow edge and decrements both counters.
// Unfollowing someone you don't follow is a no-op. Counters never go
// below zero even if they have drifted from the edge ledger.
func (s *Store) Unfollow(followerID, followeeID string) error {
	result := s.db.Where("id = ?", models.FollowID(followerID, followeeID)).
		Delete(&models.Follow{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return nil
	}

	s.db.Model(&models.User{}).
		Where("id = ? AND following_count > 0", followerID).
		UpdateColumn("following_count", gorm.Expr("following_count - 1"))
	s.db.Model(&models.User{}).
		Where("id = ? AND followers_count > 0", followeeID).
		UpdateColumn("followers_count", gorm.Expr("followers_count - 1"))

	logger.Log.Info("follow removed",
		logger.WithUserID(followerID),
		zap.String("followee_id", followeeID),
	)
	return nil
}

// IsFollowing reports whether follower currently follows followee
func (s *Store) IsFollowing(followerID, followeeID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.Follow{}).
		Where("id = ?", models.FollowID(followerID, followeeID)).
		Count(&count).Error
	return count > 0, err
}

// Stats returns the denormalized follower and following counts from
// the user row, or zeros when the user row is absent. The follows
// table is the source of truth; use Reconcile to repair drift.
func (s *Store) Stats(userID string) (followers int, following int, err error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	return user.FollowersCount, user.FollowingCount, nil
}

// Followers lists the users following userID, newest edge first
func (s *Store) Followers(userID string) ([]models.User, error) {
	var users []models.User
	err := s.db.
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followee_id = ?", userID).
		Order("follows.created_at DESC").
		Find(&users).Error
	return users, err
}

// Following lists the users that userID follows, newest edge first
func (s *Store) Following(userID string) ([]models.User, error) {
	var users []models.User
	err := s.db.
		Joins("JOIN follows ON follows.followee_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("follows.created_at DESC").
		Find(&users).Error
	return users, err
}

// Reconcile recomputes one user's follower counters from the follows
// ledger and overwrites the denormalized columns. Returns the
// corrected values.
func (s *Store) Reconcile(userID string) (followers int64, following int64, err error) {
	if err = s.db.Model(&models.Follow{}).
		Where("followee_id = ?", userID).Count(&followers).Error; err != nil {
		return 0, 0, err
	}
	if err = s.db.Model(&models.Follow{}).
		Where("follower_id = ?", userID).Count(&following).Error; err != nil {
		return 0, 0, err
	}

	err = s.db.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"followers_count": followers,
			"following_count": following,
		}).Error
	return followers, following, err
}
