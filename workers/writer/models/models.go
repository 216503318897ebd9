package models

import (
	"time"
)

// Snapshot is one prerendered results page stored in S3
type Snapshot struct {
	ID         int       `gorm:"primaryKey;autoIncrement"`
	Year       int       `gorm:"not null;index:idx_page_snapshots_year_category"`
	Category   string    `gorm:"type:text;not null;index:idx_page_snapshots_year_category"`
	S3Path     string    `gorm:"column:s3_path;type:text;not null"`
	Facts      int       `gorm:"not null"`
	Events     int       `gorm:"not null"`
	Books      int       `gorm:"not null"`
	RenderedAt time.Time `gorm:"type:timestamp with time zone;not null"`
}

// TableName overrides the table name
func (Snapshot) TableName() string {
	return "page_snapshots"
}

// FactSubmission records what a visitor was told after submitting a fact
type FactSubmission struct {
	ID          int       `gorm:"primaryKey;autoIncrement"`
	Year        int       `gorm:"not null;index"`
	Success     bool      `gorm:"not null"`
	Message     string    `gorm:"type:text"`
	SubmittedAt time.Time `gorm:"type:timestamp with time zone;not null"`
}

// TableName overrides the table name
func (FactSubmission) TableName() string {
	return "fact_submissions"
}
