package models

import "time"

// Post statuses.
const (
	PostStatusDraft     = "draft"
	PostStatusPublished = "published"
)

// Post is a categorized article owned by exactly one user. Its hashtag and
// file associations are maintained transactionally by the post service.
type Post struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Title            string    `gorm:"size:255;not null" json:"title"`
	Content          string    `gorm:"type:text;not null" json:"content"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	CategoryName     string    `gorm:"size:128;index;not null" json:"category_name"`
	Status           string    `gorm:"size:16;not null;default:'draft'" json:"status"`
	ClickCount       int64     `gorm:"not null;default:0" json:"click_count"`
	AnnouncementDate time.Time `gorm:"index" json:"announcement_date"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Hashtags         []Hashtag `gorm:"many2many:post_hashtags;" json:"-"`
	Files            []File    `json:"-"`
}
