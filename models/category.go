package models

import "time"

// Category types. The category model is flat: a unique name tagged with one
// of two recognized types.
const (
	CategoryTypeLatestNews   = "latest_news"
	CategoryTypeInstructions = "instructions"
)

// ValidCategoryType reports whether t is one of the recognized category types.
func ValidCategoryType(t string) bool {
	return t == CategoryTypeLatestNews || t == CategoryTypeInstructions
}

// Category groups posts under a unique name. Posts reference it by name.
type Category struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:128;uniqueIndex;not null" json:"name"`
	CategoryType string    `gorm:"size:32;not null" json:"category_type"`
	CreatedAt    time.Time `json:"created_at"`
}
