package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Model a registered model inside an algorithm, owned by one user.
// A model always has at least one version: creation writes version 1.
type Model struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Name        string    `json:"name" gorm:"not null;size:255"`
	Description string    `json:"description" gorm:"size:1000"`
	AlgorithmID uuid.UUID `json:"algorithm_id" gorm:"type:uuid;not null;index"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	CreatedAt   time.Time `json:"created_at"`

	// Relations
	Versions []ModelVersion `json:"versions,omitempty" gorm:"foreignKey:ModelID"`
	Files    []ModelFile    `json:"files,omitempty" gorm:"foreignKey:ModelID"`
}

// TableName table name
func (Model) TableName() string {
	return "models"
}

// BeforeCreate assigns the ID before insert
func (m *Model) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// ModelVersion a row in a model's append-only version ledger.
// version_number and model_id never change after insert; stage changes
// only through the lifecycle service.
type ModelVersion struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ModelID       uuid.UUID `json:"model_id" gorm:"type:uuid;not null;uniqueIndex:idx_version_model_number"`
	VersionNumber int       `json:"version_number" gorm:"not null;uniqueIndex:idx_version_model_number"`
	Stage         Stage     `json:"stage" gorm:"type:varchar(50);not null;default:'development'"`
	Notes         string    `json:"notes" gorm:"type:text"`
	Tags          string    `json:"tags" gorm:"type:text"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName table name
func (ModelVersion) TableName() string {
	return "model_versions"
}

// BeforeCreate assigns the ID before insert
func (v *ModelVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// ModelFile an uploaded artifact attached to a model as a whole,
// not to a specific version.
type ModelFile struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	ModelID     uuid.UUID `json:"model_id" gorm:"type:uuid;not null;index"`
	UserID      uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	FileType    FileType  `json:"file_type" gorm:"type:varchar(50);not null"`
	FileName    string    `json:"file_name" gorm:"not null;size:255"`
	StoragePath string    `json:"storage_path" gorm:"not null;size:500"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName table name
func (ModelFile) TableName() string {
	return "model_files"
}

// BeforeCreate assigns the ID before insert
func (f *ModelFile) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// ModelCreateRequest payload for creating a model
type ModelCreateRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=255"`
	Description string `json:"description" binding:"max=1000"`
	Notes       string `json:"notes"`
	Tags        string `json:"tags"`
}

// ModelResponse model fields plus the derived read-model
type ModelResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AlgorithmID uuid.UUID `json:"algorithm_id"`
	CreatedAt   time.Time `json:"created_at"`
	DerivedState
}
