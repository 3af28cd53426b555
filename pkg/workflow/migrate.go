package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

type tabler interface {
	TableName() string
}

// AutoMigrate creates or updates every workflow table. It is intended for
// development and tests; production schemas are managed outside the server.
func AutoMigrate(db *gorm.DB) error {
	for _, model := range AllModels() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("auto-migrate %s: %w", model.(tabler).TableName(), err)
		}
	}
	return nil
}
