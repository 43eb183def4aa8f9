package models

import (
	"time"

	"github.com/google/uuid"
)

// Supplier is a vendor purchase orders are placed with.
type Supplier struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null;uniqueIndex"`
	ContactName string    `gorm:"column:contact_name;not null;default:''"`
	Phone       string    `gorm:"column:phone;not null;default:''"`
	Email       string    `gorm:"column:email;not null;default:''"`
	Address     string    `gorm:"column:address;not null;default:''"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
