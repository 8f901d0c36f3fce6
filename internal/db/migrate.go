package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/rockyway/rephlo-sites-sub016/internal/models"
)

// Migrate creates or updates the billing schema.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.VendorPrice{},
		&models.MarginConfig{},
		&models.ProrationEvent{},
		&models.UsageCharge{},
		&models.Setting{},
	)
}
