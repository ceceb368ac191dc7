package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taskhubhq/taskhub/backend/internal/config"
	"github.com/taskhubhq/taskhub/backend/internal/models"
	"github.com/taskhubhq/taskhub/backend/internal/utils"
	"github.com/taskhubhq/taskhub/backend/pkg/logger"
	"github.com/taskhubhq/taskhub/backend/pkg/response"
	"gorm.io/gorm"
)

// AuthService owns the token lifecycle: signup, login, refresh rotation and
// revocation. Access tokens are self-verifying JWTs; refresh tokens are
// opaque random values persisted as hashes and valid for one rotation.
type AuthService struct {
	db     *gorm.DB
	jwtCfg *config.JWTConfig
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{db: db, jwtCfg: jwtCfg}
}

type SignupRequest struct {
	OrgName    string `json:"org_name" binding:"required"`
	AdminEmail string `json:"admin_email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenPair is what every successful login or rotation hands back.
type TokenPair struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

type LoginResult struct {
	TokenPair
	User *models.User `json:"user"`
}

// Profile is the /auth/me payload: the user merged with its org name.
type Profile struct {
	ID        uint   `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	OrgID     uint   `json:"org_id"`
	OrgName   string `json:"org_name"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	JobTitle  string `json:"job_title"`
	Timezone  string `json:"timezone"`
}

// Signup creates an organization together with its first user, who is forced
// to ADMIN. Both rows commit atomically; a partially created org is never
// observable.
func (s *AuthService) Signup(req *SignupRequest) (*models.User, error) {
	var existing models.User
	if err := s.db.Where("email = ?", req.AdminEmail).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	var admin models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		org := models.Organization{
			Name: req.OrgName,
			Slug: uniqueSlug(tx, req.OrgName),
		}
		if err := tx.Create(&org).Error; err != nil {
			return err
		}

		admin = models.User{
			OrgID:        org.ID,
			Email:        req.AdminEmail,
			PasswordHash: hash,
			Role:         models.OrgRoleAdmin,
			IsActive:     true,
			Name:         defaultName(req.AdminEmail),
		}
		return tx.Create(&admin).Error
	})
	if err != nil {
		return nil, err
	}

	return &admin, nil
}

// Login verifies credentials and issues a fresh token pair. Expired refresh
// tokens belonging to the user are swept opportunistically.
func (s *AuthService) Login(req *LoginRequest) (*LoginResult, error) {
	var user models.User
	if err := s.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	// Sweep expired refresh tokens for this user. Best effort, a failed
	// sweep must not block login.
	if err := s.db.Where("user_id = ? AND expires_at < ?", user.ID, time.Now()).
		Delete(&models.RefreshToken{}).Error; err != nil {
		logger.Warn().Err(err).Uint("user_id", user.ID).Msg("expired refresh token sweep failed")
	}

	pair, err := s.issuePair(s.db, &user)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.Model(&user).Update("last_login", now).Error; err != nil {
		logger.Warn().Err(err).Uint("user_id", user.ID).Msg("last_login stamp failed")
	}

	return &LoginResult{TokenPair: *pair, User: &user}, nil
}

// Refresh rotates a refresh token: the presented token is consumed and a
// brand-new pair is issued. The replacement row is inserted before the old
// one is deleted, inside one transaction, so a crash never leaves the user
// without a valid refresh token and no two rotations can succeed from the
// same presented value.
func (s *AuthService) Refresh(refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	hash := hashToken(refreshToken)

	var stored models.RefreshToken
	if err := s.db.Where("token_hash = ?", hash).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, ErrInvalidRefreshToken
	}

	// Access-token claims can outlive a deactivation; the refresh path is
	// where liveness is re-checked.
	var user models.User
	if err := s.db.First(&user, stored.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserInactiveOrDeleted
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactiveOrDeleted
	}

	var pair *TokenPair
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		pair, txErr = s.issuePair(tx, &user)
		if txErr != nil {
			return txErr
		}

		res := tx.Where("id = ?", stored.ID).Delete(&models.RefreshToken{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// A concurrent rotation already consumed this token.
			return ErrInvalidRefreshToken
		}
		return nil
	})
	if err != nil {
		var appErr *response.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, err
	}

	return pair, nil
}

// Revoke deletes a refresh token. Revoking an unknown token is not an
// error: it signals logout completed.
func (s *AuthService) Revoke(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.db.Where("token_hash = ?", hashToken(refreshToken)).
		Delete(&models.RefreshToken{}).Error
}

// GetProfile returns the user's profile merged with its organization name.
func (s *AuthService) GetProfile(userID uint) (*Profile, error) {
	var user models.User
	if err := s.db.Preload("Organization").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user profile not found")
		}
		return nil, err
	}

	p := &Profile{
		ID:        user.ID,
		Email:     user.Email,
		Role:      user.Role,
		OrgID:     user.OrgID,
		Name:      user.Name,
		AvatarURL: user.AvatarURL,
		JobTitle:  user.JobTitle,
		Timezone:  user.Timezone,
	}
	if user.Organization != nil {
		p.OrgName = user.Organization.Name
	}
	return p, nil
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func (s *AuthService) ChangePassword(userID uint, req *ChangePasswordRequest) error {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return ErrUserNotFound
	}

	if !utils.CheckPassword(req.OldPassword, user.PasswordHash) {
		return ErrInvalidCredentials
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	return s.db.Model(&user).Update("password_hash", hash).Error
}

// issuePair mints an access token from the user's current identity and
// persists a new refresh token on tx.
func (s *AuthService) issuePair(tx *gorm.DB, user *models.User) (*TokenPair, error) {
	access, err := utils.GenerateToken(user.ID, user.OrgID, user.Role, s.jwtCfg.AccessExpireMinutes)
	if err != nil {
		return nil, err
	}

	refresh, refreshHash, err := generateOpaqueToken()
	if err != nil {
		return nil, err
	}

	record := models.RefreshToken{
		UserID:    user.ID,
		TokenHash: refreshHash,
		ExpiresAt: time.Now().Add(time.Duration(s.jwtCfg.RefreshExpireHours) * time.Hour),
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		AccessExpiresAt: time.Now().Add(time.Duration(s.jwtCfg.AccessExpireMinutes) * time.Minute),
	}, nil
}

// generateOpaqueToken returns a random token and its storable hash.
func generateOpaqueToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, 32)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(randomBytes)
	tokenHash = hashToken(token)
	return token, tokenHash, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// uniqueSlug derives a URL-safe slug from the org name, suffixing a counter
// on collision.
func uniqueSlug(tx *gorm.DB, name string) string {
	base := slugify(name)
	slug := base
	for i := 2; ; i++ {
		var count int64
		tx.Model(&models.Organization{}).Where("slug = ?", slug).Count(&count)
		if count == 0 {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "org"
	}
	return slug
}

func defaultName(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}
