package implementation

import (
	"ai-recall-be/internal/repository/specification"

	"gorm.io/gorm"
)

// applySpecs folds query specifications onto a gorm handle. Shared by
// every repository in this package.
func applySpecs(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}
