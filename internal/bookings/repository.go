package bookings

import (
	"context"
	"errors"
	"math"
	"time"

	"worldtour/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// Core booking operations
	CreateBooking(ctx context.Context, booking *Booking) error
	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetBookingBySessionID(ctx context.Context, sessionID string) (*Booking, error)

	// Transition applies updates only while the booking is in one of the from
	// states. It reports whether the row changed.
	Transition(ctx context.Context, id uuid.UUID, from []Status, updates map[string]interface{}) (bool, error)

	// User booking operations
	GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]Booking, int64, error)

	// Admin operations
	GetAllBookings(ctx context.Context, query BookingListQuery) ([]Booking, int64, error)

	// Hold expiry
	FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]Booking, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateBooking(ctx context.Context, booking *Booking) error {
	return database.Conn(ctx, r.db).Create(booking).Error
}

func (r *repository) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	var booking Booking
	err := database.Conn(ctx, r.db).Where("id = ?", id).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) GetBookingBySessionID(ctx context.Context, sessionID string) (*Booking, error) {
	var booking Booking
	err := database.Conn(ctx, r.db).Where("payment_session_id = ?", sessionID).First(&booking).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from []Status, updates map[string]interface{}) (bool, error) {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}

	result := database.Conn(ctx, r.db).
		Model(&Booking{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) GetUserBookings(ctx context.Context, userID uuid.UUID, query BookingListQuery) ([]Booking, int64, error) {
	baseQuery := database.Conn(ctx, r.db).
		Model(&Booking{}).
		Where("user_id = ?", userID)

	return r.paginate(baseQuery, query)
}

func (r *repository) GetAllBookings(ctx context.Context, query BookingListQuery) ([]Booking, int64, error) {
	baseQuery := database.Conn(ctx, r.db).Model(&Booking{})
	if query.UserID != "" {
		if userID, err := uuid.Parse(query.UserID); err == nil {
			baseQuery = baseQuery.Where("user_id = ?", userID)
		}
	}

	return r.paginate(baseQuery, query)
}

// FindExpiredHolds returns the oldest pending bookings whose hold has lapsed
func (r *repository) FindExpiredHolds(ctx context.Context, now time.Time, limit int) ([]Booking, error) {
	var bookings []Booking
	err := database.Conn(ctx, r.db).
		Where("status = ? AND hold_expires_at IS NOT NULL AND hold_expires_at < ?", StatusPending, now).
		Order("hold_expires_at ASC").
		Limit(limit).
		Find(&bookings).Error
	return bookings, err
}

func (r *repository) paginate(baseQuery *gorm.DB, query BookingListQuery) ([]Booking, int64, error) {
	var bookings []Booking
	var totalCount int64

	// Set defaults
	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 10
	}

	baseQuery = r.applyFilters(baseQuery, query)

	if err := baseQuery.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	offset := (query.Page - 1) * query.Limit
	err := baseQuery.
		Order("created_at DESC").
		Offset(offset).
		Limit(query.Limit).
		Find(&bookings).Error

	return bookings, totalCount, err
}

// applyFilters applies query filters to the GORM query
func (r *repository) applyFilters(query *gorm.DB, filters BookingListQuery) *gorm.DB {
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}

	if filters.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filters.PaymentStatus)
	}

	if filters.ItemID != "" {
		if itemID, err := uuid.Parse(filters.ItemID); err == nil {
			query = query.Where("catalog_item_id = ?", itemID)
		}
	}

	// Filter by date range
	if filters.DateFrom != "" {
		if dateFrom, err := time.Parse("2006-01-02", filters.DateFrom); err == nil {
			query = query.Where("created_at >= ?", dateFrom)
		}
	}

	if filters.DateTo != "" {
		if dateTo, err := time.Parse("2006-01-02", filters.DateTo); err == nil {
			// include the entire day
			query = query.Where("created_at < ?", dateTo.AddDate(0, 0, 1))
		}
	}

	return query
}

// CalculateTotalPages returns the number of pages needed for totalCount rows
func CalculateTotalPages(totalCount int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(totalCount) / float64(limit)))
}
