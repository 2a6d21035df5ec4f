package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shdlab/department-api/models"
	"github.com/shdlab/department-api/utils"
)

// BulletinController manages the open guestbook. None of its routes carry
// an auth gate.
type BulletinController struct {
	db *gorm.DB
}

// NewBulletinController creates a BulletinController.
func NewBulletinController(db *gorm.DB) *BulletinController {
	return &BulletinController{db: db}
}

// ListMessages returns bulletin messages newest-first, optionally filtered
// by a calendar date and/or campus+department.
func (b *BulletinController) ListMessages(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := b.db.Model(&models.BulletinMessage{})
	if raw := strings.TrimSpace(ctx.Query("date")); raw != "" {
		day, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		query = query.Where("created_at >= ? AND created_at < ?", day, day.AddDate(0, 0, 1))
	}
	if campus := strings.TrimSpace(ctx.Query("campus")); campus != "" {
		query = query.Where("campus = ?", campus)
	}
	if department := strings.TrimSpace(ctx.Query("department")); department != "" {
		query = query.Where("department = ?", department)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to count messages")
		return
	}

	var rows []models.BulletinMessage
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&rows).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list messages")
		return
	}

	utils.Success(ctx, gin.H{
		"total":     total,
		"rows":      rows,
		"page":      page,
		"page_size": pageSize,
	})
}

// CreateMessage appends a guestbook entry. Content is required non-blank;
// a missing author is stored as NULL and rendered as anonymous.
func (b *BulletinController) CreateMessage(ctx *gin.Context) {
	var req struct {
		AuthorName string `json:"author_name"`
		Content    string `json:"content"`
		Department string `json:"department"`
		Campus     string `json:"campus"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	content := utils.Sanitize(strings.TrimSpace(req.Content))
	if content == "" {
		utils.Error(ctx, http.StatusBadRequest, "content cannot be empty")
		return
	}

	message := models.BulletinMessage{
		Content:    content,
		Department: strings.TrimSpace(req.Department),
		Campus:     strings.TrimSpace(req.Campus),
	}
	if author := utils.SanitizeStrict(strings.TrimSpace(req.AuthorName)); author != "" {
		message.AuthorName = &author
	}

	if err := b.db.Create(&message).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to create message")
		return
	}
	utils.Created(ctx, gin.H{"id": message.ID})
}

// DeleteMessage removes one bulletin entry by id.
func (b *BulletinController) DeleteMessage(ctx *gin.Context) {
	messageID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "invalid message id")
		return
	}

	res := b.db.Delete(&models.BulletinMessage{}, messageID)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete message")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, "message not found")
		return
	}
	utils.Success(ctx, gin.H{"message": "deleted"})
}
