package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shdlab/department-api/models"
)

func TestIssueAndRedeemRefreshToken(t *testing.T) {
	db := newTestDB(t)
	svc := NewTokenService(db, 7*24*time.Hour)
	user := seedUser(t, db, "staff@example.edu", models.PermissionEditor)

	token, expiresAt, err := svc.IssueRefreshToken(user.ID)
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.True(t, expiresAt.After(time.Now().Add(6*24*time.Hour)))

	redeemed, err := svc.Redeem(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, redeemed.ID)

	// Not rotated: the same token redeems again.
	redeemed, err = svc.Redeem(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, redeemed.ID)
}

func TestRedeemReflectsCurrentPermission(t *testing.T) {
	db := newTestDB(t)
	svc := NewTokenService(db, 7*24*time.Hour)
	user := seedUser(t, db, "staff@example.edu", models.PermissionViewer)

	token, _, err := svc.IssueRefreshToken(user.ID)
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("permission", models.PermissionManager).Error)

	redeemed, err := svc.Redeem(token)
	require.NoError(t, err)
	assert.Equal(t, models.PermissionManager, redeemed.Permission)
}

func TestRedeemUnknownAndExpiredAreIndistinguishable(t *testing.T) {
	db := newTestDB(t)
	svc := NewTokenService(db, 7*24*time.Hour)
	user := seedUser(t, db, "staff@example.edu", models.PermissionEditor)

	_, err := svc.Redeem("never-issued")
	assert.ErrorIs(t, err, ErrExpiredOrUnknown)

	token, _, err := svc.IssueRefreshToken(user.ID)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.RefreshToken{}).
		Where("token = ?", token).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	_, err = svc.Redeem(token)
	assert.ErrorIs(t, err, ErrExpiredOrUnknown)

	// The expired row is dropped on first redemption attempt.
	var count int64
	require.NoError(t, db.Model(&models.RefreshToken{}).
		Where("token = ?", token).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRevoke(t *testing.T) {
	db := newTestDB(t)
	svc := NewTokenService(db, 7*24*time.Hour)
	user := seedUser(t, db, "staff@example.edu", models.PermissionEditor)

	token, _, err := svc.IssueRefreshToken(user.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(token))
	_, err = svc.Redeem(token)
	assert.ErrorIs(t, err, ErrExpiredOrUnknown)

	// Revoking a token that was never issued is fine.
	assert.NoError(t, svc.Revoke("never-issued"))
}

func TestConcurrentSessionsEachHoldTheirOwnToken(t *testing.T) {
	db := newTestDB(t)
	svc := NewTokenService(db, 7*24*time.Hour)
	user := seedUser(t, db, "staff@example.edu", models.PermissionEditor)

	first, _, err := svc.IssueRefreshToken(user.ID)
	require.NoError(t, err)
	second, _, err := svc.IssueRefreshToken(user.ID)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.NoError(t, svc.Revoke(first))

	// Revoking one device's token leaves the other session alive.
	redeemed, err := svc.Redeem(second)
	require.NoError(t, err)
	assert.Equal(t, user.ID, redeemed.ID)
}
