package domain

import "gorm.io/gorm"

// AutoMigrate runs schema migrations for all portal entities
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Factory{},
		&Algorithm{},
		&Model{},
		&ModelVersion{},
		&ModelFile{},
	)
}
