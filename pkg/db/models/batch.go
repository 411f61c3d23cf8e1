package models

import "time"

// Batch groups the orders purchased by one upload or single-label action.
type Batch struct {
	ID        string    `gorm:"column:id;primaryKey"`
	UserID    string    `gorm:"column:user_id;not null;index"`
	Name      string    `gorm:"column:name;not null;default:'Unnamed Batch'"`
	Notes     string    `gorm:"column:notes;not null;default:''"`
	Archived  bool      `gorm:"column:archived;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Batch) TableName() string { return "batches" }
