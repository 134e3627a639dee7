package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel is the common base struct for all domain models.
// It replaces gorm.Model to avoid the implicit soft delete behavior of DeletedAt;
// resources that want soft delete embed CatalogModel instead.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CatalogModel is the base of every catalog resource: a numeric primary key,
// a UUID secondary key, an active flag and a soft-delete timestamp.
//
// Active defaults to true in the database. Because gorm skips zero-valued
// fields that carry a default, a catalog row is always created active and is
// deactivated through SetActive.
type CatalogModel struct {
	BaseModel
	UUID      string         `gorm:"size:36;uniqueIndex;not null" json:"uuid"`
	Active    bool           `gorm:"not null;default:true" json:"active"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (m *CatalogModel) BeforeCreate(*gorm.DB) error {
	if m.UUID == "" {
		m.UUID = uuid.NewString()
	}
	return nil
}

// Trashed reports whether the row is soft-deleted.
func (m *CatalogModel) Trashed() bool {
	return m.DeletedAt.Valid
}
