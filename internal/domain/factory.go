package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Factory top-level grouping of algorithms, owned by one user
type Factory struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Name        string    `json:"name" gorm:"not null;size:255"`
	Description string    `json:"description" gorm:"size:1000"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time `json:"created_at"`

	// Relations
	Algorithms []Algorithm `json:"algorithms,omitempty" gorm:"foreignKey:FactoryID"`
}

// TableName table name
func (Factory) TableName() string {
	return "factories"
}

// BeforeCreate assigns the ID before insert
func (f *Factory) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Algorithm a family of models inside a factory, owned by one user
type Algorithm struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Name        string    `json:"name" gorm:"not null;size:255"`
	Description string    `json:"description" gorm:"size:1000"`
	FactoryID   uuid.UUID `json:"factory_id" gorm:"type:uuid;not null;index"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time `json:"created_at"`

	// Relations
	Models []Model `json:"models,omitempty" gorm:"foreignKey:AlgorithmID"`
}

// TableName table name
func (Algorithm) TableName() string {
	return "algorithms"
}

// BeforeCreate assigns the ID before insert
func (a *Algorithm) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// FactoryCreateRequest payload for creating a factory
type FactoryCreateRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=255"`
	Description string `json:"description" binding:"max=1000"`
}

// AlgorithmCreateRequest payload for creating an algorithm
type AlgorithmCreateRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=255"`
	Description string `json:"description" binding:"max=1000"`
}

// DashboardStats caller-scoped entity counts
type DashboardStats struct {
	Factories  int64 `json:"factories"`
	Algorithms int64 `json:"algorithms"`
	Models     int64 `json:"models"`
}
