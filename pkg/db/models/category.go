package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups spare parts for browsing and reporting.
type Category struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string     `gorm:"column:name;not null;uniqueIndex"`
	Description string     `gorm:"column:description;not null;default:''"`
	ParentID    *uuid.UUID `gorm:"column:parent_id;type:uuid;index"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
