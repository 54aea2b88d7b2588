package model

import "time"

// ChatSession groups documents and question/answer history. Documents are
// shared between sessions through the chat_documents join table; removing a
// document from a chat never deletes the document itself.
type ChatSession struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:256;not null" json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	Documents []Document `gorm:"many2many:chat_documents" json:"documents,omitempty"`
}
