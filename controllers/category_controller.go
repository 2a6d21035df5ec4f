package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shdlab/department-api/models"
	"github.com/shdlab/department-api/utils"
)

const categoryListCacheKey = "cache:categories:list"

// CategoryController manages the flat category collection. Creation and
// deletion are manager-only at the route.
type CategoryController struct {
	db *gorm.DB
}

// NewCategoryController creates a CategoryController.
func NewCategoryController(db *gorm.DB) *CategoryController {
	return &CategoryController{db: db}
}

// ListCategories returns all categories, cached.
func (c *CategoryController) ListCategories(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(categoryListCacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var categories []models.Category
	if err := c.db.Order("name ASC").Find(&categories).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list categories")
		return
	}

	payload := gin.H{"categories": categories}
	utils.CacheSetJSON(categoryListCacheKey, utils.JSONResponse{
		Status: http.StatusOK, Message: "success", Result: payload, Success: true,
	}, time.Hour)
	utils.Success(ctx, payload)
}

// CreateCategory adds a category with one of the two recognized types.
func (c *CategoryController) CreateCategory(ctx *gin.Context) {
	var req struct {
		Name         string `json:"name" binding:"required"`
		CategoryType string `json:"category_type" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "name and category_type are required")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		utils.Error(ctx, http.StatusBadRequest, "name cannot be empty")
		return
	}
	if !models.ValidCategoryType(req.CategoryType) {
		utils.Error(ctx, http.StatusBadRequest, "category_type must be latest_news or instructions")
		return
	}

	var existing models.Category
	if err := c.db.Where("name = ?", name).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, "category already exists")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, "failed to check category")
		return
	}

	category := models.Category{Name: name, CategoryType: req.CategoryType}
	if err := c.db.Create(&category).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to create category")
		return
	}

	utils.InvalidateByPrefix(categoryListCacheKey)
	utils.Created(ctx, gin.H{"category": category})
}

// DeleteCategory removes a category by name.
func (c *CategoryController) DeleteCategory(ctx *gin.Context) {
	name := strings.TrimSpace(ctx.Param("name"))
	if name == "" {
		utils.Error(ctx, http.StatusBadRequest, "missing category name")
		return
	}

	res := c.db.Where("name = ?", name).Delete(&models.Category{})
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete category")
		return
	}
	if res.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, "category not found")
		return
	}

	utils.InvalidateByPrefix(categoryListCacheKey)
	utils.Success(ctx, gin.H{"message": "category deleted"})
}
