package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/memora/backend/internal/logger"
	"github.com/memora/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seeder fills the database with generated content for local
// development and demos
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

var seedHashtags = []string{
	"travel", "food", "photography", "coding", "music", "art",
	"fitness", "books", "nature", "coffee", "design", "gaming",
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Creating users...")
	users, err := s.seedUsers(50)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	log("Creating posts...")
	posts, err := s.seedPosts(users, 300)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	log("Creating follows...")
	if err := s.seedFollows(users, 200); err != nil {
		return fmt.Errorf("failed to seed follows: %w", err)
	}

	log("Creating likes...")
	if err := s.seedLikes(users, posts, 800); err != nil {
		return fmt.Errorf("failed to seed likes: %w", err)
	}

	log("Creating comments...")
	if err := s.seedComments(users, posts, 400); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	log("Creating views...")
	if err := s.seedViews(users, posts, 2000); err != nil {
		return fmt.Errorf("failed to seed views: %w", err)
	}

	return nil
}

// SeedTest seeds the test database with a small fixed cast
func (s *Seeder) SeedTest() error {
	specs := []struct {
		id    string
		email string
		name  string
	}{
		{"alice", "alice@example.com", "Alice Smith"},
		{"bob", "bob@example.com", "Bob Johnson"},
		{"charlie", "charlie@example.com", "Charlie Brown"},
	}

	var users []models.User
	for _, spec := range specs {
		user := models.User{
			ID:          spec.id,
			Email:       spec.email,
			DisplayName: spec.name,
		}
		err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&user).Error
		if err != nil {
			return fmt.Errorf("failed to create test user %s: %w", spec.id, err)
		}
		users = append(users, user)
	}

	if _, err := s.seedPosts(users, 10); err != nil {
		return fmt.Errorf("failed to seed test posts: %w", err)
	}
	return nil
}

// Clean removes all rows from every seeded table
func (s *Seeder) Clean() error {
	tables := []interface{}{
		&models.Notification{},
		&models.PostView{},
		&models.Comment{},
		&models.Like{},
		&models.Follow{},
		&models.Post{},
		&models.User{},
	}
	for _, table := range tables {
		if err := s.db.Where("1 = 1").Delete(table).Error; err != nil {
			return fmt.Errorf("failed to clean table %T: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		user := models.User{
			ID:          gofakeit.UUID(),
			Email:       fmt.Sprintf("%d.%s", i, gofakeit.Email()),
			DisplayName: gofakeit.Name(),
			AvatarURL:   fmt.Sprintf("https://i.pravatar.cc/150?u=%d", i),
			Bio:         gofakeit.Sentence(8),
			Location:    gofakeit.City(),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedPosts(users []models.User, count int) ([]models.Post, error) {
	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]
		tags := pickHashtags()
		post := models.Post{
			Title:        gofakeit.Sentence(4),
			Content:      gofakeit.Paragraph(1, 3, 12, " "),
			ImageURL:     fmt.Sprintf("https://picsum.photos/seed/%d/800/600", i),
			Hashtags:     tags,
			AuthorID:     author.ID,
			AuthorName:   author.DisplayName,
			AuthorAvatar: author.AvatarURL,
			CreatedAt:    gofakeit.DateRange(time.Now().AddDate(0, -2, 0), time.Now()),
		}
		if err := s.db.Create(&post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Seeder) seedFollows(users []models.User, count int) error {
	for i := 0; i < count; i++ {
		follower := users[rand.Intn(len(users))]
		followee := users[rand.Intn(len(users))]
		if follower.ID == followee.ID {
			continue
		}
		follow := models.Follow{
			ID:         models.FollowID(follower.ID, followee.ID),
			FollowerID: follower.ID,
			FolloweeID: followee.ID,
		}
		res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&follow)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		s.db.Model(&models.User{}).Where("id = ?", followee.ID).
			UpdateColumn("followers_count", gorm.Expr("followers_count + 1"))
		s.db.Model(&models.User{}).Where("id = ?", follower.ID).
			UpdateColumn("following_count", gorm.Expr("following_count + 1"))
	}
	return nil
}

func (s *Seeder) seedLikes(users []models.User, posts []models.Post, count int) error {
	for i := 0; i < count; i++ {
		user := users[rand.Intn(len(users))]
		post := posts[rand.Intn(len(posts))]
		like := models.Like{
			ID:     models.LikeID(post.ID, user.ID),
			PostID: post.ID,
			UserID: user.ID,
		}
		res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		s.db.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("likes", gorm.Expr("likes + 1"))
	}
	return nil
}

func (s *Seeder) seedComments(users []models.User, posts []models.Post, count int) error {
	for i := 0; i < count; i++ {
		user := users[rand.Intn(len(users))]
		post := posts[rand.Intn(len(posts))]
		comment := models.Comment{
			PostID:     post.ID,
			UserID:     user.ID,
			UserName:   user.DisplayName,
			UserAvatar: user.AvatarURL,
			Content:    gofakeit.Sentence(gofakeit.Number(3, 15)),
			CreatedAt:  gofakeit.DateRange(post.CreatedAt, time.Now()),
		}
		if err := s.db.Create(&comment).Error; err != nil {
			return err
		}
		s.db.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1"))
	}
	return nil
}

func (s *Seeder) seedViews(users []models.User, posts []models.Post, count int) error {
	for i := 0; i < count; i++ {
		post := posts[rand.Intn(len(posts))]
		view := models.PostView{
			PostID:    post.ID,
			CreatedAt: gofakeit.DateRange(post.CreatedAt, time.Now()),
		}
		// Roughly a third of views are anonymous
		if rand.Intn(3) != 0 {
			viewerID := users[rand.Intn(len(users))].ID
			view.ViewerID = &viewerID
		}
		if err := s.db.Create(&view).Error; err != nil {
			return err
		}
		s.db.Model(&models.Post{}).Where("id = ?", post.ID).
			UpdateColumn("views", gorm.Expr("views + 1"))
	}
	return nil
}

func pickHashtags() models.StringArray {
	n := gofakeit.Number(1, 3)
	seen := map[string]bool{}
	var tags models.StringArray
	for len(tags) < n {
		tag := seedHashtags[rand.Intn(len(seedHashtags))]
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, strings.ToLower(tag))
	}
	return tags
}
