package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shdlab/department-api/config"
	"github.com/shdlab/department-api/middleware"
	"github.com/shdlab/department-api/models"
	"github.com/shdlab/department-api/services"
	"github.com/shdlab/department-api/utils"
)

// AuthController handles login, token refresh, and logout.
type AuthController struct {
	db     *gorm.DB
	tokens *services.TokenService
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB, tokens *services.TokenService) *AuthController {
	return &AuthController{db: db, tokens: tokens}
}

func accessTokenTTL() time.Duration {
	return time.Duration(config.Get().AccessTokenTTLMinutes) * time.Minute
}

// Login verifies account credentials and issues an access + refresh token pair.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Account  string `json:"account" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "account and password are required")
		return
	}

	var user models.User
	if err := a.db.Where("account = ?", req.Account).First(&user).Error; err != nil {
		// Same message whether the account or the password was wrong.
		utils.Error(ctx, http.StatusUnauthorized, "invalid account or password")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, "invalid account or password")
		return
	}

	accessToken, accessExp, err := utils.GenerateToken(user.ID, user.Permission, accessTokenTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to generate token")
		return
	}
	refreshToken, refreshExp, err := a.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to issue refresh token")
		return
	}

	utils.Success(ctx, gin.H{
		"access_token":             accessToken,
		"access_token_expires_at":  accessExp,
		"refresh_token":            refreshToken,
		"refresh_token_expires_at": refreshExp,
		"user":                     user,
	})
}

// Refresh exchanges a valid refresh token for a new access token carrying
// the user's current permission.
func (a *AuthController) Refresh(ctx *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "refresh_token is required")
		return
	}

	user, err := a.tokens.Redeem(req.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrExpiredOrUnknown) {
			utils.Error(ctx, http.StatusUnauthorized, "refresh token expired or unknown")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to redeem refresh token")
		return
	}

	accessToken, accessExp, err := utils.GenerateToken(user.ID, user.Permission, accessTokenTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to generate token")
		return
	}
	utils.Success(ctx, gin.H{
		"access_token":            accessToken,
		"access_token_expires_at": accessExp,
	})
}

// Logout revokes the supplied refresh token. Revocation failures are
// non-fatal: the logout still succeeds and already-issued access tokens
// remain valid until their short expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "refresh_token is required")
		return
	}

	if err := a.tokens.Revoke(req.RefreshToken); err != nil && utils.Sugar != nil {
		utils.Sugar.Warnf("refresh token revocation failed: %v", err)
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated caller's account.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, _, ok := middleware.CallerIdentity(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	var user models.User
	if err := a.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, "user not found")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}
