package models

import "time"

// File subfolder tags. Uploads land in a subfolder-scoped holding area and
// stay there (post_id NULL) until a post write associates them.
const (
	FileTypeImages      = "images"
	FileTypeAttachments = "attachments"
	FileTypeFiles       = "files"
)

// ValidFileType reports whether t is an allowed upload subfolder.
func ValidFileType(t string) bool {
	switch t {
	case FileTypeImages, FileTypeAttachments, FileTypeFiles:
		return true
	}
	return false
}

// File records one uploaded object. PostID is NULL while the file is
// unattached; detaching resets it to NULL without touching row or bytes.
type File struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	FilePath         string    `gorm:"size:1024;not null" json:"file_path"`
	OriginalFilename string    `gorm:"size:512;not null" json:"original_filename"`
	FileType         string    `gorm:"size:32;index;not null" json:"file_type"`
	PostID           *uint     `gorm:"index" json:"post_id"`
	CreatedAt        time.Time `json:"created_at"`
}
