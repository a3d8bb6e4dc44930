package notifications

import (
	"sort"

	"github.com/memora/backend/internal/errors"
	"github.com/memora/backend/internal/logger"
	"github.com/memora/backend/internal/metrics"
	"github.com/memora/backend/internal/models"
	"github.com/memora/backend/internal/util"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// snapshotLimit caps every inbox snapshot at the newest entries
	snapshotLimit = 50

	// fallbackScan is how many rows the unordered fallback query pulls
	// before sorting client-side
	fallbackScan = 100
)

// Service records notifications and fans snapshots out to subscribers.
// Dispatch methods never fail the calling operation: a notification
// that cannot be written is logged and dropped.
type Service struct {
	db     *gorm.DB
	broker *Broker
}

// NewService creates a notification service backed by db
func NewService(db *gorm.DB) *Service {
	return &Service{
		db:     db,
		broker: NewBroker(),
	}
}

// Broker exposes the underlying subscription broker
func (s *Service) Broker() *Broker {
	return s.broker
}

// Subscribe opens a live inbox subscription and primes it with the
// current snapshot so the subscriber renders immediately.
func (s *Service) Subscribe(userID string) *Subscription {
	sub := s.broker.Subscribe(userID)
	s.broker.Publish(userID, s.Snapshot(userID))
	return sub
}

// Snapshot loads the recipient's inbox, newest first, capped at the
// snapshot limit. If the ordered query fails (a missing index on a
// fresh deployment), it falls back to an unordered scan sorted in
// memory; callers see the same shape either way.
func (s *Service) Snapshot(userID string) []models.Notification {
	items := make([]models.Notification, 0, snapshotLimit)
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(snapshotLimit).
		Find(&items).Error
	if err == nil {
		return items
	}

	logger.WarnWithFields("ordered notification query failed, using fallback", err)

	items = items[:0]
	if err := s.db.Where("user_id = ?", userID).Limit(fallbackScan).Find(&items).Error; err != nil {
		logger.ErrorWithFields("fallback notification query failed", err)
		return []models.Notification{}
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if len(items) > snapshotLimit {
		items = items[:snapshotLimit]
	}
	return items
}

// UnreadCount returns the number of unread notifications for a user
func (s *Service) UnreadCount(userID string) (int64, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead marks one notification as read. Only the recipient can
// mark their own notifications.
func (s *Service) MarkRead(userID, notificationID string) error {
	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.NotFound("notification")
	}
	s.publish(userID)
	return nil
}

// MarkAllRead marks every unread notification for the user as read in
// a single statement. Returns the number of rows touched.
func (s *Service) MarkAllRead(userID string) (int64, error) {
	result := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	if result.Error != nil {
		return 0, result.Error
	}
	s.publish(userID)
	return result.RowsAffected, nil
}

// Remove deletes one notification belonging to the recipient
func (s *Service) Remove(userID, notificationID string) error {
	result := s.db.Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.NotFound("notification")
	}
	s.publish(userID)
	return nil
}

// RemoveAll clears the user's inbox in a single statement
func (s *Service) RemoveAll(userID string) (int64, error) {
	result := s.db.Where("user_id = ?", userID).Delete(&models.Notification{})
	if result.Error != nil {
		return 0, result.Error
	}
	s.publish(userID)
	return result.RowsAffected, nil
}

// NotifyLike records a like notification for the post author.
// Liking your own post produces nothing.
func (s *Service) NotifyLike(post *models.Post, from *models.User) {
	if post.AuthorID == from.ID {
		return
	}
	s.dispatch(&models.Notification{
		UserID:         post.AuthorID,
		FromUserID:     from.ID,
		FromUserName:   from.DisplayName,
		FromUserAvatar: from.AvatarURL,
		Kind:           models.NotificationLike,
		PostID:         &post.ID,
		Content:        "liked your post",
	})
}

// NotifyComment records a comment notification for the post author,
// carrying a short excerpt of the comment. Commenting on your own
// post produces nothing.
func (s *Service) NotifyComment(post *models.Post, from *models.User, commentContent string) {
	if post.AuthorID == from.ID {
		return
	}
	s.dispatch(&models.Notification{
		UserID:         post.AuthorID,
		FromUserID:     from.ID,
		FromUserName:   from.DisplayName,
		FromUserAvatar: from.AvatarURL,
		Kind:           models.NotificationComment,
		PostID:         &post.ID,
		Content:        `commented: "` + util.CommentPreview(commentContent) + `"`,
	})
}

// NotifyFollow records a follow notification for the followee
func (s *Service) NotifyFollow(followeeID string, from *models.User) {
	if followeeID == from.ID {
		return
	}
	s.dispatch(&models.Notification{
		UserID:         followeeID,
		FromUserID:     from.ID,
		FromUserName:   from.DisplayName,
		FromUserAvatar: from.AvatarURL,
		Kind:           models.NotificationFollow,
		Content:        "started following you",
	})
}

// dispatch persists the notification and pushes a fresh snapshot to
// live subscribers. Failures are logged, never surfaced.
func (s *Service) dispatch(n *models.Notification) {
	if err := s.db.Create(n).Error; err != nil {
		logger.Log.Error("failed to record notification",
			zap.String("kind", string(n.Kind)),
			logger.WithUserID(n.UserID),
			zap.Error(err),
		)
		return
	}

	metrics.Get().NotificationsDispatched.WithLabelValues(string(n.Kind)).Inc()
	logger.Log.Debug("notification recorded",
		zap.String("kind", string(n.Kind)),
		logger.WithUserID(n.UserID),
		zap.String("from_user_id", n.FromUserID),
	)
	s.publish(n.UserID)
}

// publish pushes the recipient's current snapshot to the broker
func (s *Service) publish(userID string) {
	if s.broker.SubscriberCount(userID) == 0 {
		return
	}
	s.broker.Publish(userID, s.Snapshot(userID))
}
