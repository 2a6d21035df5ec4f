package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shdlab/department-api/models"
	"github.com/shdlab/department-api/utils"
)

// UserController covers account administration. Every route is manager-only
// at the router; accounts are created by an admin action, never self-service.
type UserController struct {
	db *gorm.DB
}

// NewUserController creates a UserController.
func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// CreateUser registers a staff account with a bcrypt-hashed password.
func (u *UserController) CreateUser(ctx *gin.Context) {
	var req struct {
		Name       string `json:"name" binding:"required"`
		Account    string `json:"account" binding:"required,email"`
		Password   string `json:"password" binding:"required,min=6"`
		Permission string `json:"permission"`
		Campus     string `json:"campus"`
		Department string `json:"department"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	permission := req.Permission
	if permission == "" {
		permission = models.PermissionViewer
	}
	if !models.ValidPermission(permission) {
		utils.Error(ctx, http.StatusBadRequest, "permission must be viewer, editor or manager")
		return
	}

	account := strings.ToLower(strings.TrimSpace(req.Account))
	var existing models.User
	if err := u.db.Where("account = ?", account).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, "account already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, "failed to check account")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := models.User{
		Name:         strings.TrimSpace(req.Name),
		Account:      account,
		PasswordHash: hash,
		Permission:   permission,
		Campus:       strings.TrimSpace(req.Campus),
		Department:   strings.TrimSpace(req.Department),
	}
	if err := u.db.Create(&user).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to create user")
		return
	}
	utils.Created(ctx, gin.H{"user": user})
}

// ListUsers returns a paginated account listing.
func (u *UserController) ListUsers(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var total int64
	if err := u.db.Model(&models.User{}).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to count users")
		return
	}

	var users []models.User
	if err := u.db.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&users).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list users")
		return
	}

	utils.Success(ctx, gin.H{
		"total":     total,
		"rows":      users,
		"page":      page,
		"page_size": pageSize,
	})
}

// UpdatePermission changes an account's permission tier. Outstanding access
// tokens keep their embedded tier until they expire.
func (u *UserController) UpdatePermission(ctx *gin.Context) {
	userID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "invalid user id")
		return
	}

	var req struct {
		Permission string `json:"permission" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "permission is required")
		return
	}
	if !models.ValidPermission(req.Permission) {
		utils.Error(ctx, http.StatusBadRequest, "permission must be viewer, editor or manager")
		return
	}

	res := u.db.Model(&models.User{}).Where("id = ?", userID).
		Update("permission", req.Permission)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to update permission")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, "user not found")
		return
	}
	utils.Success(ctx, gin.H{"message": "permission updated"})
}

// DeleteUser removes an account. Deletion is restricted while the user
// still owns posts; those must be deleted or reassigned first.
func (u *UserController) DeleteUser(ctx *gin.Context) {
	userID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "invalid user id")
		return
	}

	var owned int64
	if err := u.db.Model(&models.Post{}).Where("user_id = ?", userID).
		Count(&owned).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to check owned posts")
		return
	}
	if owned > 0 {
		utils.Error(ctx, http.StatusConflict, "user still owns posts")
		return
	}

	err := u.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		// Sessions die with the account.
		return tx.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete user")
		return
	}
	utils.Success(ctx, gin.H{"message": "user deleted"})
}
