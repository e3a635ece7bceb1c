package catalog

import (
	"context"
	"errors"
	"strings"

	"worldtour/internal/pricing"
	"worldtour/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, item *CatalogItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*CatalogItem, error)
	GetBySlug(ctx context.Context, slug string) (*CatalogItem, error)
	FindAvailable(ctx context.Context, q ItemQuery) ([]CatalogItem, int64, error)
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error
	SlugExists(ctx context.Context, slug string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, item *CatalogItem) error {
	return database.Conn(ctx, r.db).Create(item).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*CatalogItem, error) {
	var item CatalogItem
	if err := database.Conn(ctx, r.db).Where("id = ?", id).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (*CatalogItem, error) {
	var item CatalogItem
	if err := database.Conn(ctx, r.db).Where("slug = ?", slug).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

// FindAvailable lists items matching q. Unless IncludeUnavailable is set only
// enabled items with remaining capacity are returned.
func (r *repository) FindAvailable(ctx context.Context, q ItemQuery) ([]CatalogItem, int64, error) {
	q.normalize()

	db := r.applyFilters(database.Conn(ctx, r.db).Model(&CatalogItem{}), q)

	var totalCount int64
	if err := db.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	var items []CatalogItem
	err := db.Order("name ASC").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, totalCount, nil
}

func (r *repository) applyFilters(db *gorm.DB, q ItemQuery) *gorm.DB {
	if !q.IncludeUnavailable {
		db = db.Where("available = ? AND available_capacity > 0", true)
	}
	if q.Kind != "" {
		db = db.Where("kind = ?", q.Kind)
	}
	if q.Category != "" {
		db = db.Where("LOWER(category) = ?", strings.ToLower(q.Category))
	}
	if q.Country != "" {
		db = db.Where("LOWER(country) = ?", strings.ToLower(q.Country))
	}
	if q.City != "" {
		db = db.Where("LOWER(city) = ?", strings.ToLower(q.City))
	}
	if q.Search != "" {
		term := "%" + strings.ToLower(q.Search) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(city) LIKE ? OR LOWER(country) LIKE ?",
			term, term, term, term)
	}

	// price bounds are in major units of each item's own currency
	majorExpr := "unit_price / (CASE WHEN currency IN ? THEN 1.0 ELSE 100.0 END)"
	if q.MinPrice != nil {
		db = db.Where(majorExpr+" >= ?", pricing.ZeroDecimalCurrencies(), *q.MinPrice)
	}
	if q.MaxPrice != nil {
		db = db.Where(majorExpr+" <= ?", pricing.ZeroDecimalCurrencies(), *q.MaxPrice)
	}
	return db
}

func (r *repository) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	result := database.Conn(ctx, r.db).Model(&CatalogItem{}).
		Where("id = ?", id).
		Update("available", available)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&CatalogItem{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}
