package models

import (
	"encoding/json"
	"time"
)

// AnonymousAuthor is the display name substituted for bulletin messages
// posted without an author name.
const AnonymousAuthor = "anonymous"

// BulletinMessage is a free-standing guestbook entry. It carries no ownership
// and no auth gate; the author name is optional and stored as NULL when absent.
type BulletinMessage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	AuthorName *string   `gorm:"size:64" json:"author_name"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Department string    `gorm:"size:128" json:"department"`
	Campus     string    `gorm:"size:128" json:"campus"`
	CreatedAt  time.Time `json:"created_at"`
}

// MarshalJSON renders a NULL author as the anonymous placeholder so every
// listing applies the same default.
func (m BulletinMessage) MarshalJSON() ([]byte, error) {
	type alias BulletinMessage
	out := struct {
		alias
		AuthorName string `json:"author_name"`
	}{alias: alias(m), AuthorName: AnonymousAuthor}
	if m.AuthorName != nil && *m.AuthorName != "" {
		out.AuthorName = *m.AuthorName
	}
	return json.Marshal(out)
}
