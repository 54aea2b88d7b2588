package model

import "time"

// ChatMessage is one question/answer exchange. The history is append-only;
// messages are removed only in bulk when the history is cleared or the
// session is deleted.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChatID    uint      `gorm:"not null;index" json:"chat_id"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	CreatedAt time.Time `json:"created_at"`
}
