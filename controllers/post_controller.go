package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shdlab/department-api/middleware"
	"github.com/shdlab/department-api/models"
	"github.com/shdlab/department-api/services"
	"github.com/shdlab/department-api/utils"
)

const postListCachePrefix = "cache:posts:list:"

// PostController exposes the post aggregate over HTTP. Mutations are
// ownership-gated here, after the auth middleware has resolved the caller.
type PostController struct {
	posts *services.PostService
}

// NewPostController creates a PostController.
func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

func validPostStatus(s string) bool {
	return s == models.PostStatusDraft || s == models.PostStatusPublished
}

// CreatePost creates a post together with its hashtags and previously
// uploaded files. Editor or manager permission is enforced at the route.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title        string   `json:"title" binding:"required,min=1"`
		Content      string   `json:"content" binding:"required"`
		CategoryName string   `json:"category_name" binding:"required"`
		Status       string   `json:"status"`
		Hashtags     []string `json:"hashtags"`
		FileIDs      []uint   `json:"file_ids"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	title := utils.SanitizeStrict(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, "title cannot be empty")
		return
	}
	status := req.Status
	if status == "" {
		status = models.PostStatusDraft
	}
	if !validPostStatus(status) {
		utils.Error(ctx, http.StatusBadRequest, "invalid status")
		return
	}

	userID, _, ok := middleware.CallerIdentity(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	postID, err := p.posts.Create(services.CreatePostInput{
		Title:        title,
		Content:      utils.Sanitize(req.Content),
		OwnerID:      userID,
		CategoryName: req.CategoryName,
		Status:       status,
		Hashtags:     req.Hashtags,
		FileIDs:      req.FileIDs,
	})
	if err != nil {
		if errors.Is(err, services.ErrInvalidCategory) {
			utils.Error(ctx, http.StatusBadRequest, "unknown category")
			return
		}
		if errors.Is(err, services.ErrCreateFailed) {
			utils.Error(ctx, http.StatusBadRequest, "failed to create post")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to create post")
		return
	}

	utils.InvalidateByPrefix(postListCachePrefix)
	utils.Created(ctx, gin.H{"id": postID})
}

// ListPosts returns a filtered, paginated page. Associations are bulk
// loaded by the service; unfiltered-title pages are cached.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	title := strings.TrimSpace(ctx.Query("title"))
	status := strings.TrimSpace(ctx.Query("status"))
	orderBy := strings.TrimSpace(ctx.Query("order_by"))

	var categories []string
	if raw := strings.TrimSpace(ctx.Query("categories")); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				categories = append(categories, c)
			}
		}
	}

	var ownerID uint
	if raw := strings.TrimSpace(ctx.Query("owner_id")); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &ownerID); err != nil {
			utils.Error(ctx, http.StatusBadRequest, "invalid owner_id")
			return
		}
	}

	// Cache only title-less listings to avoid a cache key per search term.
	cacheKey := ""
	if title == "" {
		cacheKey = fmt.Sprintf("%scat=%s:owner=%d:status=%s:order=%s:page=%d:size=%d",
			postListCachePrefix, strings.Join(categories, "|"), ownerID, status, orderBy, page, pageSize)
		if b, ok := utils.CacheGetBytes(cacheKey); ok {
			ctx.Data(http.StatusOK, "application/json", b)
			return
		}
	}

	result, err := p.posts.List(services.PostFilter{
		TitleLike:  title,
		Categories: categories,
		OwnerID:    ownerID,
		Status:     status,
	}, orderBy, pageSize, (page-1)*pageSize)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list posts")
		return
	}

	payload := gin.H{
		"total":     result.Total,
		"rows":      result.Rows,
		"page":      page,
		"page_size": pageSize,
	}
	if cacheKey != "" {
		utils.CacheSetJSON(cacheKey, utils.JSONResponse{
			Status: http.StatusOK, Message: "success", Result: payload, Success: true,
		}, time.Hour)
	}
	utils.Success(ctx, payload)
}

// GetPost returns the post detail and bumps the view counter by one.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "invalid post id")
		return
	}

	detail, err := p.posts.Get(postID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}
	utils.Success(ctx, gin.H{"post": detail})
}

// UpdatePost applies a partial update. Only the owner or a manager may
// mutate; a missing post 404s before the ownership verdict.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "invalid post id")
		return
	}

	ownerID, err := p.posts.Owner(postID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}
	if !callerMayMutate(ctx, ownerID) {
		utils.Error(ctx, http.StatusForbidden, "you can only update your own posts")
		return
	}

	var req struct {
		Title        *string   `json:"title"`
		Content      *string   `json:"content"`
		CategoryName *string   `json:"category_name"`
		Status       *string   `json:"status"`
		Hashtags     *[]string `json:"hashtags"`
		FileIDs      *[]uint   `json:"file_ids"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	patch := services.PostPatch{
		CategoryName: req.CategoryName,
		Hashtags:     req.Hashtags,
		FileIDs:      req.FileIDs,
	}
	if req.Title != nil {
		title := utils.SanitizeStrict(strings.TrimSpace(*req.Title))
		if title == "" {
			utils.Error(ctx, http.StatusBadRequest, "title cannot be empty")
			return
		}
		patch.Title = &title
	}
	if req.Content != nil {
		content := utils.Sanitize(*req.Content)
		patch.Content = &content
	}
	if req.Status != nil {
		if !validPostStatus(*req.Status) {
			utils.Error(ctx, http.StatusBadRequest, "invalid status")
			return
		}
		patch.Status = req.Status
	}

	if err := p.posts.Update(postID, patch); err != nil {
		switch {
		case errors.Is(err, services.ErrNotFound):
			utils.Error(ctx, http.StatusNotFound, "post not found")
		case errors.Is(err, services.ErrInvalidCategory):
			utils.Error(ctx, http.StatusBadRequest, "unknown category")
		default:
			utils.Error(ctx, http.StatusInternalServerError, "failed to update post")
		}
		return
	}

	utils.InvalidateByPrefix(postListCachePrefix)
	utils.Success(ctx, gin.H{"message": "post updated"})
}

// DeletePost removes a post; its files are detached, never deleted.
func (p *PostController) DeletePost(ctx *gin.Context) {
	postID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "invalid post id")
		return
	}

	ownerID, err := p.posts.Owner(postID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}
	if !callerMayMutate(ctx, ownerID) {
		utils.Error(ctx, http.StatusForbidden, "you can only delete your own posts")
		return
	}

	if err := p.posts.Delete(postID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete post")
		return
	}

	utils.InvalidateByPrefix(postListCachePrefix)
	utils.Success(ctx, gin.H{"message": "post deleted"})
}
