// Package inventory is the only writer of catalog_items.available_capacity.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"worldtour/internal/shared/database"
	"worldtour/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrUnknownReservation   = errors.New("unknown reservation")
	ErrItemNotFound         = errors.New("catalog item not found")
	ErrItemUnavailable      = errors.New("catalog item is not available")
	ErrInvalidQuantity      = errors.New("quantity must be positive")
)

// Adjuster reserves and releases catalog capacity. Both operations join the
// transaction carried by ctx, if any.
type Adjuster interface {
	Reserve(ctx context.Context, itemID uuid.UUID, quantity int) (uuid.UUID, error)
	Release(ctx context.Context, token uuid.UUID) error
	Available(ctx context.Context, itemID uuid.UUID) (int, error)
}

type adjuster struct {
	db  *gorm.DB
	tx  database.Transactor
	log *logger.Logger
}

func NewAdjuster(db *gorm.DB, tx database.Transactor) Adjuster {
	return &adjuster{db: db, tx: tx, log: logger.GetDefault()}
}

// Reserve takes quantity units from the item in a single guarded UPDATE. The
// row lock Postgres takes for the update serializes concurrent reservers, and
// the guard is re-checked after the lock is granted, so capacity never goes
// negative.
func (a *adjuster) Reserve(ctx context.Context, itemID uuid.UUID, quantity int) (uuid.UUID, error) {
	if quantity <= 0 {
		return uuid.Nil, ErrInvalidQuantity
	}

	token := uuid.New()
	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		conn := database.Conn(ctx, a.db)

		result := conn.Exec(
			`UPDATE catalog_items SET available_capacity = available_capacity - ?, updated_at = ?
			 WHERE id = ? AND available = TRUE AND available_capacity >= ?`,
			quantity, time.Now().UTC(), itemID, quantity,
		)
		if result.Error != nil {
			return fmt.Errorf("reserve capacity: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return a.diagnose(conn, itemID)
		}

		reservation := &CapacityReservation{
			ID:            token,
			CatalogItemID: itemID,
			Quantity:      quantity,
			Status:        ReservationActive,
		}
		if err := conn.Create(reservation).Error; err != nil {
			return fmt.Errorf("record reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	a.log.LogCapacityReserved(ctx, itemID.String(), token.String(), quantity)
	return token, nil
}

// Release credits a reservation back to its item exactly once. Releasing an
// already released token is a no-op.
func (a *adjuster) Release(ctx context.Context, token uuid.UUID) error {
	var reservation CapacityReservation
	released := false

	err := a.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		conn := database.Conn(ctx, a.db)

		if err := conn.Where("id = ?", token).Take(&reservation).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownReservation
			}
			return fmt.Errorf("load reservation: %w", err)
		}

		result := conn.Model(&CapacityReservation{}).
			Where("id = ? AND status = ?", token, ReservationActive).
			Updates(map[string]interface{}{
				"status":      ReservationReleased,
				"released_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return fmt.Errorf("mark reservation released: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}

		credit := conn.Exec(
			`UPDATE catalog_items SET available_capacity = available_capacity + ?, updated_at = ? WHERE id = ?`,
			reservation.Quantity, time.Now().UTC(), reservation.CatalogItemID,
		)
		if credit.Error != nil {
			return fmt.Errorf("credit capacity: %w", credit.Error)
		}
		released = true
		return nil
	})
	if err != nil {
		return err
	}

	if released {
		a.log.LogCapacityReleased(ctx, reservation.CatalogItemID.String(), token.String(), reservation.Quantity)
	}
	return nil
}

func (a *adjuster) Available(ctx context.Context, itemID uuid.UUID) (int, error) {
	var row capacityRow
	result := database.Conn(ctx, a.db).
		Raw(`SELECT available, available_capacity FROM catalog_items WHERE id = ?`, itemID).
		Scan(&row)
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ErrItemNotFound
	}
	return row.AvailableCapacity, nil
}

type capacityRow struct {
	Available         bool
	AvailableCapacity int
}

// diagnose explains why the guarded update matched no row
func (a *adjuster) diagnose(conn *gorm.DB, itemID uuid.UUID) error {
	var row capacityRow
	result := conn.Raw(`SELECT available, available_capacity FROM catalog_items WHERE id = ?`, itemID).Scan(&row)
	switch {
	case result.Error != nil:
		return fmt.Errorf("inspect catalog item: %w", result.Error)
	case result.RowsAffected == 0:
		return ErrItemNotFound
	case !row.Available:
		return ErrItemUnavailable
	default:
		return ErrInsufficientCapacity
	}
}
