package notifications

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/memora/backend/internal/errors"
	"github.com/memora/backend/internal/logger"
	"github.com/memora/backend/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Notification{},
	))
	return db
}

type NotificationsSuite struct {
	suite.Suite

	db  *gorm.DB
	svc *Service

	author models.User
	fan    models.User
	post   models.Post
}

func TestNotificationsSuite(t *testing.T) {
	suite.Run(t, new(NotificationsSuite))
}

func (s *NotificationsSuite) SetupSuite() {
	require.NoError(s.T(), logger.Initialize("error", filepath.Join(os.TempDir(), "memora-test.log")))
}

func (s *NotificationsSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.svc = NewService(s.db)

	s.author = models.User{ID: "author", DisplayName: "Author"}
	s.fan = models.User{ID: "fan", DisplayName: "Fan", AvatarURL: "https://img.example/fan.png"}
	require.NoError(s.T(), s.db.Create(&s.author).Error)
	require.NoError(s.T(), s.db.Create(&s.fan).Error)

	s.post = models.Post{AuthorID: s.author.ID, Title: "a post", Content: "body"}
	require.NoError(s.T(), s.db.Create(&s.post).Error)
}

// receive pulls the next snapshot or fails the test after a timeout
func (s *NotificationsSuite) receive(sub *Subscription) []models.Notification {
	select {
	case snapshot, ok := <-sub.Updates():
		s.Require().True(ok, "subscription channel closed unexpectedly")
		return snapshot
	case <-time.After(time.Second):
		s.Require().FailNow("timed out waiting for snapshot")
		return nil
	}
}

func (s *NotificationsSuite) TestNotifyLikePersistsSenderFields() {
	s.svc.NotifyLike(&s.post, &s.fan)

	var note models.Notification
	s.Require().NoError(s.db.Where("user_id = ?", s.author.ID).First(&note).Error)
	s.Equal(models.NotificationLike, note.Kind)
	s.Equal(s.fan.ID, note.FromUserID)
	s.Equal(s.fan.DisplayName, note.FromUserName)
	s.Equal(s.fan.AvatarURL, note.FromUserAvatar)
	s.Require().NotNil(note.PostID)
	s.Equal(s.post.ID, *note.PostID)
	s.Equal("liked your post", note.Content)
	s.False(note.Read)
}

func (s *NotificationsSuite) TestNotifyFollowPersistsContent() {
	s.svc.NotifyFollow(s.author.ID, &s.fan)

	var note models.Notification
	s.Require().NoError(s.db.Where("user_id = ?", s.author.ID).First(&note).Error)
	s.Equal(models.NotificationFollow, note.Kind)
	s.Equal("started following you", note.Content)
}

func (s *NotificationsSuite) TestSelfEngagementProducesNothing() {
	s.svc.NotifyLike(&s.post, &s.author)
	s.svc.NotifyComment(&s.post, &s.author, "talking to myself")
	s.svc.NotifyFollow(s.author.ID, &s.author)

	var count int64
	s.Require().NoError(s.db.Model(&models.Notification{}).Count(&count).Error)
	s.Zero(count)
}

func (s *NotificationsSuite) TestCommentNotificationTruncatesPreview() {
	long := "this comment is definitely longer than thirty characters"
	s.svc.NotifyComment(&s.post, &s.fan, long)

	var note models.Notification
	s.Require().NoError(s.db.First(&note).Error)
	s.Equal(`commented: "`+long[:30]+`..."`, note.Content)
}

func (s *NotificationsSuite) TestCommentNotificationKeepsValidUTF8() {
	multibyte := "ab" + strings.Repeat("€", 40)
	s.svc.NotifyComment(&s.post, &s.fan, multibyte)

	var note models.Notification
	s.Require().NoError(s.db.First(&note).Error)
	s.True(utf8.ValidString(note.Content))
	s.Equal(`commented: "ab`+strings.Repeat("€", 28)+`..."`, note.Content)
}

func (s *NotificationsSuite) TestSubscribePrimesWithCurrentSnapshot() {
	s.svc.NotifyLike(&s.post, &s.fan)

	sub := s.svc.Subscribe(s.author.ID)
	defer sub.Cancel()

	snapshot := s.receive(sub)
	s.Require().Len(snapshot, 1)
	s.Equal(models.NotificationLike, snapshot[0].Kind)
}

func (s *NotificationsSuite) TestDispatchPushesToSubscriber() {
	sub := s.svc.Subscribe(s.author.ID)
	defer sub.Cancel()
	s.receive(sub) // initial empty snapshot

	s.svc.NotifyFollow(s.author.ID, &s.fan)

	snapshot := s.receive(sub)
	s.Require().Len(snapshot, 1)
	s.Equal(models.NotificationFollow, snapshot[0].Kind)
}

func (s *NotificationsSuite) TestCancelClosesChannel() {
	sub := s.svc.Subscribe(s.author.ID)
	sub.Cancel()
	sub.Cancel() // safe to repeat

	// Drain until close
	for {
		_, ok := <-sub.Updates()
		if !ok {
			break
		}
	}
	s.Zero(s.svc.Broker().SubscriberCount(s.author.ID))
}

func (s *NotificationsSuite) TestSnapshotCapsAtNewestFifty() {
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 60; i++ {
		note := models.Notification{
			UserID:     s.author.ID,
			FromUserID: s.fan.ID,
			Kind:       models.NotificationFollow,
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
			Content:    fmt.Sprintf("n%d", i),
		}
		s.Require().NoError(s.db.Create(&note).Error)
	}

	snapshot := s.svc.Snapshot(s.author.ID)
	s.Require().Len(snapshot, 50)
	// Newest first: the last created entry leads
	s.Equal("n59", snapshot[0].Content)
	s.Equal("n10", snapshot[49].Content)
}

func (s *NotificationsSuite) TestMarkReadScopedToRecipient() {
	s.svc.NotifyLike(&s.post, &s.fan)
	var note models.Notification
	s.Require().NoError(s.db.First(&note).Error)

	// Someone else can't mark it
	err := s.svc.MarkRead(s.fan.ID, note.ID)
	s.Require().Error(err)
	apiErr, ok := err.(*errors.APIError)
	s.Require().True(ok)
	s.Equal(errors.ErrNotFound, apiErr.Code)

	s.Require().NoError(s.svc.MarkRead(s.author.ID, note.ID))

	unread, err := s.svc.UnreadCount(s.author.ID)
	s.Require().NoError(err)
	s.Zero(unread)
}

func (s *NotificationsSuite) TestMarkAllReadAndRemoveAll() {
	s.svc.NotifyLike(&s.post, &s.fan)
	s.svc.NotifyComment(&s.post, &s.fan, "hey")
	s.svc.NotifyFollow(s.author.ID, &s.fan)

	touched, err := s.svc.MarkAllRead(s.author.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), touched)

	unread, err := s.svc.UnreadCount(s.author.ID)
	s.Require().NoError(err)
	s.Zero(unread)

	removed, err := s.svc.RemoveAll(s.author.ID)
	s.Require().NoError(err)
	s.Equal(int64(3), removed)

	s.Empty(s.svc.Snapshot(s.author.ID))
}

func (s *NotificationsSuite) TestRemoveSingle() {
	s.svc.NotifyLike(&s.post, &s.fan)
	var note models.Notification
	s.Require().NoError(s.db.First(&note).Error)

	s.Require().NoError(s.svc.Remove(s.author.ID, note.ID))
	s.Require().Error(s.svc.Remove(s.author.ID, note.ID))
}
