package services

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shdlab/department-api/models"
	"github.com/shdlab/department-api/utils"
)

// ErrInvalidFileType is returned when an upload names a subfolder outside
// the allow-list.
var ErrInvalidFileType = errors.New("invalid file type")

// FileService stores uploaded objects under a subfolder-scoped root and
// tracks them as rows independent of any post. Association to a post is the
// post service's job.
type FileService struct {
	db   *gorm.DB
	root string
}

// NewFileService creates a FileService rooted at the upload directory.
func NewFileService(db *gorm.DB, root string) *FileService {
	return &FileService{db: db, root: root}
}

// FileFilter narrows a file listing. Attached filters on association state;
// nil means both attached and unattached files.
type FileFilter struct {
	Attached *bool
	FileType string
}

// FilePage is one page of file rows plus the filtered total.
type FilePage struct {
	Total int64         `json:"total"`
	Rows  []models.File `json:"rows"`
}

// RegisterUpload persists the stream under a collision-resistant name and
// inserts the row with post_id NULL (the holding area). The caller attaches
// the file to a post later through the post service.
func (s *FileService) RegisterUpload(r io.Reader, originalFilename, subfolder string) (*models.File, error) {
	if !models.ValidFileType(subfolder) {
		return nil, ErrInvalidFileType
	}

	base := sanitizeFilename(originalFilename)
	stored := uuid.NewString() + "_" + base

	dir := filepath.Join(s.root, subfolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	dstPath := filepath.Join(dir, stored)

	out, err := os.Create(dstPath)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(dstPath)
		return nil, err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dstPath)
		return nil, err
	}

	file := models.File{
		FilePath:         filepath.ToSlash(filepath.Join(subfolder, stored)),
		OriginalFilename: base,
		FileType:         subfolder,
	}
	if err := s.db.Create(&file).Error; err != nil {
		_ = os.Remove(dstPath)
		return nil, err
	}
	return &file, nil
}

// Get loads one file row by id.
func (s *FileService) Get(fileID uint) (*models.File, error) {
	var file models.File
	if err := s.db.First(&file, fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &file, nil
}

// Owner resolves the owning post's owner for the deletion gate. ok is false
// for unattached files, which only the top permission tier may delete.
func (s *FileService) Owner(file *models.File) (ownerID uint, ok bool, err error) {
	if file.PostID == nil {
		return 0, false, nil
	}
	var post models.Post
	if err := s.db.Select("id", "user_id").First(&post, *file.PostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return post.UserID, true, nil
}

// Delete removes the row and the physical object together. A failing disk
// removal after the row is gone is logged, not surfaced.
func (s *FileService) Delete(fileID uint) error {
	var file models.File
	if err := s.db.First(&file, fileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := s.db.Delete(&models.File{}, file.ID).Error; err != nil {
		return err
	}
	if err := os.Remove(s.AbsPath(&file)); err != nil && !os.IsNotExist(err) {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("file %d: row deleted but object removal failed: %v", file.ID, err)
		}
	}
	return nil
}

// List returns one page of files matching the filter plus the filtered total.
func (s *FileService) List(filter FileFilter, pageSize, offset int) (*FilePage, error) {
	if pageSize <= 0 {
		pageSize = 10
	}
	if offset < 0 {
		offset = 0
	}

	query := s.db.Model(&models.File{})
	if filter.Attached != nil {
		if *filter.Attached {
			query = query.Where("post_id IS NOT NULL")
		} else {
			query = query.Where("post_id IS NULL")
		}
	}
	if filter.FileType != "" {
		query = query.Where("file_type = ?", filter.FileType)
	}

	page := &FilePage{Rows: []models.File{}}
	if err := query.Count(&page.Total).Error; err != nil {
		return nil, err
	}
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).
		Find(&page.Rows).Error; err != nil {
		return nil, err
	}
	return page, nil
}

// AbsPath resolves a row's storage-relative path under the upload root.
func (s *FileService) AbsPath(file *models.File) string {
	return filepath.Join(s.root, filepath.FromSlash(file.FilePath))
}

// sanitizeFilename reduces a client-supplied name to a safe base name,
// closing the path-traversal door.
func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSpace(base)
	if base == "" || base == "." || base == ".." {
		return "file"
	}
	return base
}
