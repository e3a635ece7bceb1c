package database

import (
	"gorm.io/gorm"
)

// Migrate auto-migrates the supplied models. The caller owns the model list so
// that domain packages can depend on this package without an import cycle.
func Migrate(db *gorm.DB, models ...interface{}) error {
	if len(models) == 0 {
		return nil
	}
	return db.AutoMigrate(models...)
}
