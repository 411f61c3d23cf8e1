package models

import "time"

// UsageCounter counts labels purchased by a user in one calendar month (YYYY-MM).
type UsageCounter struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	Month     string    `gorm:"column:month;primaryKey"`
	Count     int       `gorm:"column:count;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (UsageCounter) TableName() string { return "usage" }
