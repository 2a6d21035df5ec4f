package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shdlab/department-api/middleware"
	"github.com/shdlab/department-api/models"
	"github.com/shdlab/department-api/services"
	"github.com/shdlab/department-api/utils"
)

// Per-file upload cap.
const maxUploadSize = 50 * 1024 * 1024

// FileController handles uploads, file listing, deletion, and streaming.
type FileController struct {
	files *services.FileService
}

// NewFileController creates a FileController.
func NewFileController(files *services.FileService) *FileController {
	return &FileController{files: files}
}

// Upload accepts one or more multipart files and registers each as an
// unattached row in the holding area. The optional file_type form field
// selects the subfolder (default: files).
func (f *FileController) Upload(ctx *gin.Context) {
	form, err := ctx.MultipartForm()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid multipart form")
		return
	}

	subfolder := strings.TrimSpace(ctx.PostForm("file_type"))
	if subfolder == "" {
		subfolder = models.FileTypeFiles
	}
	if !models.ValidFileType(subfolder) {
		utils.Error(ctx, http.StatusBadRequest, "invalid file_type")
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		utils.Error(ctx, http.StatusBadRequest, "no file uploaded")
		return
	}

	uploaded := make([]*models.File, 0, len(headers))
	for _, header := range headers {
		if header.Size > maxUploadSize {
			utils.Error(ctx, http.StatusBadRequest, "file size exceeds 50MB")
			return
		}
		src, err := header.Open()
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		// The Size header is client-supplied; the reader enforces the cap.
		file, err := f.files.RegisterUpload(io.LimitReader(src, maxUploadSize), header.Filename, subfolder)
		_ = src.Close()
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, "failed to store file")
			return
		}
		uploaded = append(uploaded, file)
	}

	utils.Created(ctx, gin.H{"files": uploaded})
}

// ListFiles returns attached and/or unattached files with filters.
func (f *FileController) ListFiles(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	filter := services.FileFilter{
		FileType: strings.TrimSpace(ctx.Query("file_type")),
	}
	switch strings.ToLower(strings.TrimSpace(ctx.Query("attached"))) {
	case "true":
		attached := true
		filter.Attached = &attached
	case "false":
		attached := false
		filter.Attached = &attached
	}

	result, err := f.files.List(filter, pageSize, (page-1)*pageSize)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list files")
		return
	}
	utils.Success(ctx, gin.H{
		"total":     result.Total,
		"rows":      result.Rows,
		"page":      page,
		"page_size": pageSize,
	})
}

// DeleteFile removes a file row and its stored object. The gate mirrors the
// post's: the owning post's owner or a manager; files with no owning post
// are deletable only by managers.
func (f *FileController) DeleteFile(ctx *gin.Context) {
	fileID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "invalid file id")
		return
	}

	file, err := f.files.Get(fileID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "file not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load file")
		return
	}

	callerID, permission, identified := middleware.CallerIdentity(ctx)
	if !identified {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	if permission != models.PermissionManager {
		ownerID, owned, err := f.files.Owner(file)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, "failed to resolve file owner")
			return
		}
		if !owned || ownerID != callerID {
			utils.Error(ctx, http.StatusForbidden, "you can only delete files of your own posts")
			return
		}
	}

	if err := f.files.Delete(fileID); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "file not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete file")
		return
	}
	utils.Success(ctx, gin.H{"message": "file deleted"})
}

// Serve streams a stored file by id. Images render inline; everything else
// downloads under its original name.
func (f *FileController) Serve(ctx *gin.Context) {
	fileID, ok := parseUintParam(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "invalid file id")
		return
	}

	file, err := f.files.Get(fileID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.Error(ctx, http.StatusNotFound, "file not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load file")
		return
	}

	path := f.files.AbsPath(file)
	if file.FileType == models.FileTypeImages {
		ctx.File(path)
		return
	}
	ctx.FileAttachment(path, file.OriginalFilename)
}
