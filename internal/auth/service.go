// Package auth handles Google OAuth sign-in, JWT session tokens, and
// the account upsert that keeps user rows in sync with the provider
// profile.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/memora/backend/internal/logger"
	"github.com/memora/backend/internal/models"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidToken = errors.New("invalid token")
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Service handles all authentication operations
type Service struct {
	db           *gorm.DB
	jwtSecret    []byte
	googleConfig *oauth2.Config

	// Lowercased emails granted the admin flag on sign-in
	adminEmails map[string]bool
}

// NewService creates a new authentication service. Admin emails come
// from the comma-separated ADMIN_EMAILS environment variable.
func NewService(db *gorm.DB, jwtSecret []byte, googleConfig *oauth2.Config) *Service {
	admins := make(map[string]bool)
	for _, email := range strings.Split(os.Getenv("ADMIN_EMAILS"), ",") {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			admins[email] = true
		}
	}

	return &Service{
		db:           db,
		jwtSecret:    jwtSecret,
		googleConfig: googleConfig,
		adminEmails:  admins,
	}
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// GoogleProfile is the subset of the userinfo response we keep
type GoogleProfile struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// GetGoogleOAuthURL returns the Google authorization URL
func (s *Service) GetGoogleOAuthURL(state string) string {
	return s.googleConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// HandleGoogleCallback exchanges the authorization code, fetches the
// user's profile, and returns a signed session
func (s *Service) HandleGoogleCallback(ctx context.Context, code string) (*AuthResponse, error) {
	token, err := s.googleConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	profile, err := s.fetchGoogleProfile(ctx, token)
	if err != nil {
		return nil, err
	}

	user, err := s.UpsertUser(profile)
	if err != nil {
		return nil, err
	}

	return s.generateAuthResponse(user)
}

// fetchGoogleProfile loads the userinfo document with the fresh token
func (s *Service) fetchGoogleProfile(ctx context.Context, token *oauth2.Token) (*GoogleProfile, error) {
	client := s.googleConfig.Client(ctx, token)
	resp, err := client.Get(googleUserinfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user profile: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}

	var profile GoogleProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile response: %w", err)
	}
	if profile.ID == "" {
		return nil, errors.New("profile response missing subject id")
	}
	return &profile, nil
}

// UpsertUser creates or refreshes the account row for a provider
// profile. Provider-owned fields (email, name, avatar) are always
// overwritten; locally edited fields (bio, location) are kept. The
// admin flag is re-derived from ADMIN_EMAILS on every sign-in so
// grants and revocations take effect at the next session.
func (s *Service) UpsertUser(profile *GoogleProfile) (*models.User, error) {
	isAdmin := s.IsAdminEmail(profile.Email)

	var user models.User
	err := s.db.First(&user, "id = ?", profile.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			ID:          profile.ID,
			Email:       profile.Email,
			DisplayName: profile.Name,
			AvatarURL:   profile.Picture,
			IsAdmin:     isAdmin,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		logger.Log.Info("user created", logger.WithUserID(user.ID))
		return &user, nil
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	user.Email = profile.Email
	user.DisplayName = profile.Name
	user.AvatarURL = profile.Picture
	user.IsAdmin = isAdmin
	if err := s.db.Save(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &user, nil
}

// IsAdminEmail reports whether the email is on the admin allowlist
func (s *Service) IsAdminEmail(email string) bool {
	return s.adminEmails[strings.ToLower(email)]
}

// GenerateTokenForUser creates a signed session for a known user
func (s *Service) GenerateTokenForUser(user *models.User) (*AuthResponse, error) {
	return s.generateAuthResponse(user)
}

// generateAuthResponse creates JWT token and auth response
func (s *Service) generateAuthResponse(user *models.User) (*AuthResponse, error) {
	expiresAt := time.Now().Add(24 * time.Hour)

	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"email":    user.Email,
		"is_admin": user.IsAdmin,
		"exp":      expiresAt.Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     tokenString,
		User:      *user,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken validates a JWT token and returns fresh user data
func (s *Service) ValidateToken(tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, ErrUserNotFound
	}
	return &user, nil
}
