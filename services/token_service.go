package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shdlab/department-api/models"
	"github.com/shdlab/department-api/utils"
)

// ErrExpiredOrUnknown is returned for any refresh token that cannot be
// redeemed. Expired and never-issued tokens are deliberately
// indistinguishable to the caller.
var ErrExpiredOrUnknown = errors.New("refresh token expired or unknown")

// TokenService persists and redeems opaque refresh tokens. Access tokens are
// stateless JWTs and never touch this service for verification.
type TokenService struct {
	db         *gorm.DB
	refreshTTL time.Duration
}

// NewTokenService creates a TokenService with the given refresh-token lifetime.
func NewTokenService(db *gorm.DB, refreshTTL time.Duration) *TokenService {
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{db: db, refreshTTL: refreshTTL}
}

// IssueRefreshToken mints a cryptographically random opaque token and
// persists one row per issuance, so concurrent sessions on several devices
// each hold their own token.
func (s *TokenService) IssueRefreshToken(userID uint) (string, time.Time, error) {
	token := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	expiresAt := time.Now().Add(s.refreshTTL)

	row := models.RefreshToken{
		Token:     token,
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Redeem resolves a refresh token to its owning user so a fresh access token
// can be minted with the user's current permission. The token is not rotated
// or consumed on use.
func (s *TokenService) Redeem(token string) (*models.User, error) {
	var row models.RefreshToken
	if err := s.db.Where("token = ?", token).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExpiredOrUnknown
		}
		return nil, err
	}
	if time.Now().After(row.ExpiresAt) {
		// Expired rows are dropped opportunistically; the sweeper catches the rest.
		_ = s.db.Delete(&models.RefreshToken{}, row.ID).Error
		return nil, ErrExpiredOrUnknown
	}

	var user models.User
	if err := s.db.First(&user, row.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExpiredOrUnknown
		}
		return nil, err
	}
	return &user, nil
}

// Revoke deletes a persisted refresh token. Revoking an unknown token is not
// an error; already-issued access tokens stay valid until their short expiry.
func (s *TokenService) Revoke(token string) error {
	return s.db.Where("token = ?", token).Delete(&models.RefreshToken{}).Error
}

// StartSweeper launches a background goroutine that periodically deletes
// expired refresh-token rows. Best-effort; failures are logged and retried
// on the next tick.
func (s *TokenService) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		for {
			time.Sleep(interval)
			res := s.db.Where("expires_at <= ?", time.Now()).Delete(&models.RefreshToken{})
			if res.Error != nil {
				if utils.Sugar != nil {
					utils.Sugar.Warnf("refresh token sweep failed: %v", res.Error)
				}
				continue
			}
			if res.RowsAffected > 0 && utils.Sugar != nil {
				utils.Sugar.Infof("refresh token sweep removed %d expired rows", res.RowsAffected)
			}
		}
	}()
}
