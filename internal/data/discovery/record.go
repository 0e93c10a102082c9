package discovery

import "time"

// DiscoveryRecord represents a completed interest discovery persisted in the database.
type DiscoveryRecord struct {
	ID           string    `gorm:"primaryKey;size:36"`
	FieldOfTopic string    `gorm:"type:text;not null"`
	Keywords     string    `gorm:"type:text;not null"`
	AnalysisText string    `gorm:"type:text;not null"`
	InputTokens  int64     `gorm:"not null;default:0"`
	OutputTokens int64     `gorm:"not null;default:0"`
	MaxTokens    int       `gorm:"not null"`
	Temperature  float64   `gorm:"not null"`
	CreatedAt    time.Time `gorm:"index:idx_discoveries_created_at;not null"`
}

// TableName defines the table name for the DiscoveryRecord model.
func (DiscoveryRecord) TableName() string {
	return "discoveries"
}
