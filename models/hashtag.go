package models

// Hashtag is a globally unique tag name. Tags are upserted on post writes
// and never deleted, even when no post references them anymore.
type Hashtag struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	TagName string `gorm:"size:64;uniqueIndex;not null" json:"tag_name"`
}
