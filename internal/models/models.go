package models

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StringArray is a custom type for PostgreSQL text[] that implements Scanner and Valuer
type StringArray []string

// Scan implements the sql.Scanner interface for reading from database
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	// PostgreSQL returns text[] as a string like "{value1,value2,value3}"
	str, ok := value.(string)
	if !ok {
		if bytes, ok := value.([]byte); ok {
			str = string(bytes)
		} else {
			*a = nil
			return nil
		}
	}

	str = strings.TrimPrefix(str, "{")
	str = strings.TrimSuffix(str, "}")

	if str == "" {
		*a = []string{}
		return nil
	}

	// Split by comma (simple case - doesn't handle quoted values with commas)
	*a = strings.Split(str, ",")
	return nil
}

// Value implements the driver.Valuer interface for writing to database
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	if len(a) == 0 {
		return "{}", nil
	}
	return "{" + strings.Join(a, ",") + "}", nil
}

// User represents a Memora account. The ID is the stable subject
// identifier issued by the OAuth provider, so the same person always
// maps to the same row across sessions.
type User struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Email       string `gorm:"index" json:"email"`
	DisplayName string `json:"name"`
	AvatarURL   string `json:"image"`
	Bio         string `gorm:"type:text" json:"bio"`
	Location    string `gorm:"type:text" json:"location"`

	// Denormalized social counters. The follows table is the source of
	// truth; these are maintained by atomic increments for fast reads.
	FollowersCount int `gorm:"default:0" json:"followers_count"`
	FollowingCount int `gorm:"default:0" json:"following_count"`

	IsAdmin bool `gorm:"default:false" json:"is_admin"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Post represents a shared text/image post with hashtags
type Post struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	AuthorID string `gorm:"not null;index" json:"author_id"`
	Author   User   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`

	// Denormalized author display fields so feed reads don't join
	AuthorName   string `json:"author_name"`
	AuthorAvatar string `json:"author_avatar"`

	Title    string      `json:"title"`
	Content  string      `gorm:"type:text;not null" json:"content"`
	ImageURL string      `json:"image"`
	Hashtags StringArray `gorm:"type:text[]" json:"hashtags"`

	// Denormalized engagement counters, maintained by atomic increments
	// alongside ledger writes. Eventually consistent with the likes,
	// comments, and post_views tables.
	Likes        int `gorm:"default:0" json:"likes"`
	CommentCount int `gorm:"default:0" json:"comment_count"`
	Views        int `gorm:"default:0" json:"views"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Like is a ledger entry recording that a user liked a post.
// Its ID is a deterministic composite key over (post, user), which
// turns "at most one like per pair" into an atomic create-if-absent.
type Like struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID string `gorm:"not null;index" json:"post_id"`
	UserID string `gorm:"not null;index" json:"user_id"`

	CreatedAt time.Time `json:"created_at"`
}

// Comment is an append-only ledger entry on a post
type Comment struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID string `gorm:"not null;index" json:"post_id"`
	UserID string `gorm:"not null;index" json:"user_id"`

	// Denormalized commenter display fields
	UserName   string `json:"user_name"`
	UserAvatar string `json:"user_avatar"`

	Content string `gorm:"type:text;not null" json:"content"`

	CreatedAt time.Time `json:"created_at"`
}

// Follow is a directed edge: FollowerID follows FolloweeID.
// Like Like, its ID is a composite key so duplicate edges are
// impossible at insert time. Self-edges are rejected by the store.
type Follow struct {
	ID         string `gorm:"primaryKey;type:uuid" json:"id"`
	FollowerID string `gorm:"not null;index" json:"follower_id"`
	FolloweeID string `gorm:"not null;index" json:"followee_id"`

	CreatedAt time.Time `json:"created_at"`
}

// NotificationKind is the qualifying event behind a notification
type NotificationKind string

const (
	NotificationLike    NotificationKind = "like"
	NotificationComment NotificationKind = "comment"
	NotificationFollow  NotificationKind = "follow"
)

// Notification is delivered to UserID when another user engages with
// their content or profile. Created only by the dispatcher.
type Notification struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`

	FromUserID     string `gorm:"not null" json:"from_user_id"`
	FromUserName   string `json:"from_user_name"`
	FromUserAvatar string `json:"from_user_avatar"`

	Kind    NotificationKind `gorm:"not null" json:"type"`
	PostID  *string          `json:"post_id,omitempty"`
	Content string           `gorm:"type:text" json:"content"`
	Read    bool             `gorm:"default:false" json:"read"`

	CreatedAt time.Time `json:"created_at"`
}

// PostView is an append-only view record used for analytics bucketing.
// The same viewer may generate multiple records; ViewerID is nil for
// anonymous views.
type PostView struct {
	ID       string  `gorm:"primaryKey;type:uuid" json:"id"`
	PostID   string  `gorm:"not null;index" json:"post_id"`
	ViewerID *string `gorm:"index" json:"viewer_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// likeNamespace and followNamespace scope the composite UUIDs so a
// like and a follow over the same pair of IDs can never collide.
var (
	likeNamespace   = uuid.MustParse("8f3c1d9e-4b7a-4f2e-9c61-2a5d8e0b7c43")
	followNamespace = uuid.MustParse("c2a94b71-6e8d-4c3f-b1e5-9d07f4a6218b")
)

// LikeID derives the deterministic identifier for a (post, user) like
func LikeID(postID, userID string) string {
	return uuid.NewSHA1(likeNamespace, []byte(postID+":"+userID)).String()
}

// FollowID derives the deterministic identifier for a follow edge
func FollowID(followerID, followeeID string) string {
	return uuid.NewSHA1(followNamespace, []byte(followerID+":"+followeeID)).String()
}

// BeforeCreate hooks for GORM

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = LikeID(l.PostID, l.UserID)
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = FollowID(f.FollowerID, f.FolloweeID)
	}
	return nil
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = generateUUID()
	}
	return nil
}

func (v *PostView) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = generateUUID()
	}
	return nil
}

// Helper function for UUID generation
func generateUUID() string {
	return uuid.New().String()
}
