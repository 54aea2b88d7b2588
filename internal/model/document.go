package model

import "time"

// Document is an ingested PDF. Content is immutable after ingestion;
// Processed stays false until the ingest worker has chunked and embedded it.
type Document struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Filename     string    `gorm:"size:256;not null" json:"filename"`
	OriginalName string    `gorm:"size:256;not null" json:"original_name"`
	FileSize     int64     `gorm:"not null" json:"file_size"`
	Processed    bool      `gorm:"not null;default:false" json:"processed"`
	UploadedAt   time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}
