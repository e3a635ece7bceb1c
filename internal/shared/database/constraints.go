package database

import (
	"fmt"

	"gorm.io/gorm"
)

var constraintStatements = []string{
	// available_capacity is only ever moved by the inventory adjuster; the
	// database refuses anything that would oversell or over-credit an item.
	`DO $$ BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_catalog_items_capacity') THEN
			ALTER TABLE catalog_items
			ADD CONSTRAINT chk_catalog_items_capacity
			CHECK (available_capacity >= 0 AND available_capacity <= total_capacity);
		END IF;
	END $$;`,

	`DO $$ BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_bookings_total_price') THEN
			ALTER TABLE bookings
			ADD CONSTRAINT chk_bookings_total_price CHECK (total_price >= 0 AND party_size > 0);
		END IF;
	END $$;`,

	`CREATE INDEX IF NOT EXISTS idx_bookings_pending_hold
		ON bookings (hold_expires_at) WHERE status = 'pending';`,

	`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_payment_session
		ON bookings (payment_session_id) WHERE payment_session_id IS NOT NULL;`,

	`CREATE INDEX IF NOT EXISTS idx_capacity_reservations_active
		ON capacity_reservations (catalog_item_id) WHERE status = 'active';`,
}

// MigrateConstraints adds constraints and partial indexes AutoMigrate cannot express
func MigrateConstraints(db *gorm.DB) error {
	for _, stmt := range constraintStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("constraint migration failed: %w", err)
		}
	}
	return nil
}
