package social

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/memora/backend/internal/errors"
	"github.com/memora/backend/internal/logger"
	"github.com/memora/backend/internal/models"
	"github.com/memora/backend/internal/notifications"
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
		&models.Follow{},
		&models.Notification{},
	))
	return db
}

type SocialSuite struct {
	suite.Suite

	db    *gorm.DB
	store *Store

	alice models.User
	bob   models.User
}

func TestSocialSuite(t *testing.T) {
	suite.Run(t, new(SocialSuite))
}

func (s *SocialSuite) SetupSuite() {
	require.NoError(s.T(), logger.Initialize("error", filepath.Join(os.TempDir(), "memora-test.log")))
}

func (s *SocialSuite) SetupTest() {
	s.db = newTestDB(s.T())
	s.store = NewStore(s.db, notifications.NewService(s.db))

	s.alice = models.User{ID: "alice", Email: "alice@example.com", DisplayName: "Alice"}
	s.bob = models.User{ID: "bob", Email: "bob@example.com", DisplayName: "Bob"}
	require.NoError(s.T(), s.db.Create(&s.alice).Error)
	require.NoError(s.T(), s.db.Create(&s.bob).Error)
}

func (s *SocialSuite) mustFollow(follower *models.User, followeeID string) {
	created, err := s.store.Follow(follower, followeeID)
	s.Require().NoError(err)
	s.Require().True(created)
}

func (s *SocialSuite) TestFollowUpdatesCountersAndNotifies() {
	created, err := s.store.Follow(&s.alice, s.bob.ID)
	s.Require().NoError(err)
	s.True(created)

	following, err := s.store.IsFollowing(s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.True(following)

	followers, _, err := s.store.Stats(s.bob.ID)
	s.Require().NoError(err)
	s.Equal(1, followers)

	_, aliceFollowing, err := s.store.Stats(s.alice.ID)
	s.Require().NoError(err)
	s.Equal(1, aliceFollowing)

	var note models.Notification
	s.Require().NoError(s.db.Where("user_id = ?", s.bob.ID).First(&note).Error)
	s.Equal(models.NotificationFollow, note.Kind)
	s.Equal(s.alice.ID, note.FromUserID)
	s.Equal("started following you", note.Content)
	s.Nil(note.PostID)
}

func (s *SocialSuite) TestFollowIsIdempotent() {
	created, err := s.store.Follow(&s.alice, s.bob.ID)
	s.Require().NoError(err)
	s.True(created)

	// The repeat reports that no new edge was created
	created, err = s.store.Follow(&s.alice, s.bob.ID)
	s.Require().NoError(err)
	s.False(created)

	followers, _, err := s.store.Stats(s.bob.ID)
	s.Require().NoError(err)
	s.Equal(1, followers)

	var edges int64
	s.Require().NoError(s.db.Model(&models.Follow{}).Count(&edges).Error)
	s.Equal(int64(1), edges)

	// Repeat follows don't re-notify
	var notes int64
	s.Require().NoError(s.db.Model(&models.Notification{}).Count(&notes).Error)
	s.Equal(int64(1), notes)
}

func (s *SocialSuite) TestSelfFollowIsSilentNoOp() {
	created, err := s.store.Follow(&s.alice, s.alice.ID)
	s.Require().NoError(err)
	s.False(created)

	// No edge, no counter movement, no notification
	var edges int64
	s.Require().NoError(s.db.Model(&models.Follow{}).Count(&edges).Error)
	s.Zero(edges)

	followers, following, err := s.store.Stats(s.alice.ID)
	s.Require().NoError(err)
	s.Zero(followers)
	s.Zero(following)

	var notes int64
	s.Require().NoError(s.db.Model(&models.Notification{}).Count(&notes).Error)
	s.Zero(notes)
}

func (s *SocialSuite) TestFollowUnknownUser() {
	created, err := s.store.Follow(&s.alice, "nobody")
	s.Require().Error(err)
	s.False(created)
	apiErr, ok := err.(*errors.APIError)
	s.Require().True(ok)
	s.Equal(errors.ErrNotFound, apiErr.Code)
}

func (s *SocialSuite) TestUnfollow() {
	s.mustFollow(&s.alice, s.bob.ID)
	s.Require().NoError(s.store.Unfollow(s.alice.ID, s.bob.ID))

	following, err := s.store.IsFollowing(s.alice.ID, s.bob.ID)
	s.Require().NoError(err)
	s.False(following)

	followers, _, err := s.store.Stats(s.bob.ID)
	s.Require().NoError(err)
	s.Equal(0, followers)

	// Unfollowing again is a no-op and counters stay at zero
	s.Require().NoError(s.store.Unfollow(s.alice.ID, s.bob.ID))
	followers, _, err = s.store.Stats(s.bob.ID)
	s.Require().NoError(err)
	s.Equal(0, followers)
}

func (s *SocialSuite) TestFollowerAndFollowingLists() {
	carol := models.User{ID: "carol", DisplayName: "Carol"}
	s.Require().NoError(s.db.Create(&carol).Error)

	s.mustFollow(&s.alice, s.bob.ID)
	s.mustFollow(&carol, s.bob.ID)

	followers, err := s.store.Followers(s.bob.ID)
	s.Require().NoError(err)
	s.Len(followers, 2)

	following, err := s.store.Following(s.alice.ID)
	s.Require().NoError(err)
	s.Require().Len(following, 1)
	s.Equal(s.bob.ID, following[0].ID)
}

func (s *SocialSuite) TestReconcileRepairsDrift() {
	s.mustFollow(&s.alice, s.bob.ID)

	// Force drift on the denormalized counter
	s.Require().NoError(s.db.Model(&models.User{}).Where("id = ?", s.bob.ID).
		UpdateColumn("followers_count", 42).Error)

	followers, following, err := s.store.Reconcile(s.bob.ID)
	s.Require().NoError(err)
	s.Equal(int64(1), followers)
	s.Equal(int64(0), following)

	count, _, err := s.store.Stats(s.bob.ID)
	s.Require().NoError(err)
	s.Equal(1, count)
}
