package migrate

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/salesorders-backend/pkg/db/models"
)

// AutoMigrateModels creates the schema from the gorm models. It backs sqlite
// deployments and in-memory tests, where the Postgres SQL files do not apply.
func AutoMigrateModels(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if err := conn.AutoMigrate(
		&models.Product{},
		&models.DiscountTier{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
