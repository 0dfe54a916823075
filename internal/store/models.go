package store

import "time"

// User is a registered account.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:150;not null;uniqueIndex"`
	Email        string `gorm:"size:150;not null;uniqueIndex"`
	PasswordHash string `gorm:"size:200;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session binds an opaque cookie token to a user until ExpiresAt.
type Session struct {
	Token     string    `gorm:"primaryKey;size:64"`
	UserID    uint      `gorm:"index;not null"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}

// Prediction records one answered query. The latest row per user backs the report download.
type Prediction struct {
	ID         uint   `gorm:"primaryKey"`
	UserID     uint   `gorm:"index;not null"`
	Query      string `gorm:"type:text"`
	Section    string `gorm:"size:128;index"`
	Offense    string `gorm:"type:text"`
	Punishment string `gorm:"type:text"`
	CaseType   string `gorm:"size:64"`
	Procedure  string `gorm:"type:text"`
	Score      float64
	DurationMs int64
	CreatedAt  time.Time `gorm:"index"`
}
