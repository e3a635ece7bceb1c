package catalog

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"worldtour/internal/pricing"
	"worldtour/internal/shared/constants"
	"worldtour/internal/shared/requestctx"
	"worldtour/pkg/cache"
	"worldtour/pkg/logger"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var (
	ErrItemNotFound = errors.New("catalog item not found")
	ErrInvalidItem  = errors.New("invalid catalog item")
)

// Converter renders prices in the caller's display currency
type Converter interface {
	Convert(ctx context.Context, amount pricing.Money, to string) (pricing.Money, error)
}

type Service interface {
	SetCacheService(cacheService cache.Service)
	SetConverter(converter Converter)

	FindAvailableItems(ctx context.Context, rc requestctx.RequestContext, q ItemQuery) (*PaginatedItems, error)
	GetItem(ctx context.Context, rc requestctx.RequestContext, id uuid.UUID) (*ItemResponse, error)
	GetItemBySlug(ctx context.Context, rc requestctx.RequestContext, itemSlug string) (*ItemResponse, error)
	Quote(ctx context.Context, rc requestctx.RequestContext, id uuid.UUID, req QuoteRequest) (*QuoteResponse, error)

	CreateItem(ctx context.Context, rc requestctx.RequestContext, req CreateItemRequest) (*ItemResponse, error)
	SetAvailability(ctx context.Context, id uuid.UUID, available bool) error

	// GetForBooking reads the item straight from the store, bypassing caches
	GetForBooking(ctx context.Context, id uuid.UUID) (*CatalogItem, error)

	// CapacityChanged drops cached views that show the item's available capacity
	CapacityChanged(ctx context.Context, id uuid.UUID)
}

type service struct {
	repo      Repository
	cache     cache.Service
	converter Converter
	log       *logger.Logger
}

func NewService(repo Repository) Service {
	return &service{repo: repo, log: logger.GetDefault()}
}

func (s *service) SetCacheService(cacheService cache.Service) {
	s.cache = cacheService
}

func (s *service) SetConverter(converter Converter) {
	s.converter = converter
}

func (s *service) FindAvailableItems(ctx context.Context, rc requestctx.RequestContext, q ItemQuery) (*PaginatedItems, error) {
	q.normalize()

	var result PaginatedItems
	load := func(ctx context.Context) (interface{}, error) {
		items, total, err := s.repo.FindAvailable(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("failed to list catalog items: %w", err)
		}
		responses := make([]ItemResponse, len(items))
		for i := range items {
			responses[i] = items[i].ToResponse()
		}
		return &PaginatedItems{
			Items:      responses,
			TotalCount: total,
			Page:       q.Page,
			Limit:      q.Limit,
			TotalPages: int(math.Ceil(float64(total) / float64(q.Limit))),
		}, nil
	}

	if s.cache != nil {
		key := constants.BuildCatalogListKey(fingerprint(q))
		if err := s.cache.GetOrSet(ctx, key, constants.TTL_CATALOG_LIST, load, &result); err != nil {
			return nil, err
		}
	} else {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		result = *v.(*PaginatedItems)
	}

	for i := range result.Items {
		s.localize(ctx, rc, &result.Items[i])
	}
	return &result, nil
}

func (s *service) GetItem(ctx context.Context, rc requestctx.RequestContext, id uuid.UUID) (*ItemResponse, error) {
	return s.cachedItem(ctx, rc, constants.BuildCatalogDetailKey(id.String()), func(ctx context.Context) (*CatalogItem, error) {
		return s.repo.GetByID(ctx, id)
	})
}

func (s *service) GetItemBySlug(ctx context.Context, rc requestctx.RequestContext, itemSlug string) (*ItemResponse, error) {
	return s.cachedItem(ctx, rc, constants.BuildCatalogSlugKey(itemSlug), func(ctx context.Context) (*CatalogItem, error) {
		return s.repo.GetBySlug(ctx, itemSlug)
	})
}

func (s *service) cachedItem(ctx context.Context, rc requestctx.RequestContext, key string, fetch func(ctx context.Context) (*CatalogItem, error)) (*ItemResponse, error) {
	var resp ItemResponse
	load := func(ctx context.Context) (interface{}, error) {
		item, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		r := item.ToResponse()
		return &r, nil
	}

	if s.cache != nil {
		if err := s.cache.GetOrSet(ctx, key, constants.TTL_CATALOG_DETAIL, load, &resp); err != nil {
			if errors.Is(err, ErrItemNotFound) {
				return nil, ErrItemNotFound
			}
			return nil, err
		}
	} else {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		resp = *v.(*ItemResponse)
	}

	s.localize(ctx, rc, &resp)
	return &resp, nil
}

func (s *service) Quote(ctx context.Context, rc requestctx.RequestContext, id uuid.UUID, req QuoteRequest) (*QuoteResponse, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	breakdown, err := PriceFor(item, req.StartDate, req.EndDate, req.PartySize)
	if err != nil {
		return nil, err
	}

	quote := &QuoteResponse{
		ItemID:          item.ID.String(),
		Kind:            item.Kind,
		Quantity:        breakdown.Quantity,
		PartySize:       breakdown.PartySize,
		UnitPrice:       NewPriceView(breakdown.UnitPrice),
		DiscountPercent: breakdown.DiscountPercent,
		Total:           NewPriceView(breakdown.Total),
		TotalMinor:      breakdown.Total.Amount,
		Available:       item.Available && item.AvailableCapacity >= req.PartySize,
	}
	if display, ok := s.display(ctx, rc, breakdown.Total); ok {
		quote.DisplayTotal = &display
	}
	return quote, nil
}

func (s *service) CreateItem(ctx context.Context, rc requestctx.RequestContext, req CreateItemRequest) (*ItemResponse, error) {
	kind := Kind(req.Kind)
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidItem, req.Kind)
	}
	if kind == KindPackage && req.DurationDays <= 0 {
		return nil, fmt.Errorf("%w: packages need duration_days", ErrInvalidItem)
	}
	if kind == KindFlight && (req.DepartureTime == nil || req.Origin == "" || req.DestinationCode == "") {
		return nil, fmt.Errorf("%w: flights need origin, destination_code and departure_time", ErrInvalidItem)
	}
	if req.DepartureTime != nil && req.ArrivalTime != nil && !req.ArrivalTime.After(*req.DepartureTime) {
		return nil, fmt.Errorf("%w: arrival must be after departure", ErrInvalidItem)
	}

	price, err := pricing.FromMajor(req.UnitPrice, req.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidItem, err)
	}

	itemSlug, err := s.uniqueSlug(ctx, req)
	if err != nil {
		return nil, err
	}

	item := &CatalogItem{
		Kind:              kind,
		Name:              strings.TrimSpace(req.Name),
		Slug:              itemSlug,
		Description:       req.Description,
		Category:          req.Category,
		Country:           req.Country,
		City:              req.City,
		ImageURL:          req.ImageURL,
		UnitPrice:         price.Amount,
		Currency:          price.Currency,
		DiscountPercent:   req.DiscountPercent,
		TotalCapacity:     req.TotalCapacity,
		AvailableCapacity: req.TotalCapacity,
		Available:         true,
		HotelName:         req.HotelName,
		Airline:           req.Airline,
		Origin:            strings.ToUpper(req.Origin),
		DestinationCode:   strings.ToUpper(req.DestinationCode),
		DepartureTime:     req.DepartureTime,
		ArrivalTime:       req.ArrivalTime,
		DurationDays:      req.DurationDays,
		CreatedBy:         rc.UserID,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create catalog item: %w", err)
	}
	s.invalidate(ctx)

	resp := item.ToResponse()
	return &resp, nil
}

func (s *service) SetAvailability(ctx context.Context, id uuid.UUID, available bool) error {
	if err := s.repo.SetAvailability(ctx, id, available); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *service) GetForBooking(ctx context.Context, id uuid.UUID) (*CatalogItem, error) {
	return s.repo.GetByID(ctx, id)
}

// CapacityChanged clears every catalog view. Listings filter on capacity, so a
// single reservation can change which items a page holds.
func (s *service) CapacityChanged(ctx context.Context, id uuid.UUID) {
	s.log.Debug("catalog capacity changed", "item_id", id.String())
	s.invalidate(ctx)
}

func (s *service) uniqueSlug(ctx context.Context, req CreateItemRequest) (string, error) {
	parts := []string{req.Name}
	if req.City != "" {
		parts = append(parts, req.City)
	}
	base := slug.Make(strings.Join(parts, " "))
	if base == "" {
		base = req.Kind
	}

	candidate := base
	for attempt := 0; attempt < 5; attempt++ {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + uuid.NewString()[:6]
	}
	return "", fmt.Errorf("%w: could not allocate a unique slug", ErrInvalidItem)
}

// localize adds a display price in the caller's currency when it differs
func (s *service) localize(ctx context.Context, rc requestctx.RequestContext, resp *ItemResponse) {
	price, err := pricing.FromMajor(resp.UnitPrice.Amount, resp.UnitPrice.Currency)
	if err != nil {
		return
	}
	if display, ok := s.display(ctx, rc, price); ok {
		resp.DisplayPrice = &display
	}
}

func (s *service) display(ctx context.Context, rc requestctx.RequestContext, m pricing.Money) (PriceView, bool) {
	if s.converter == nil || rc.Currency == "" || strings.EqualFold(rc.Currency, m.Currency) {
		return PriceView{}, false
	}
	converted, err := s.converter.Convert(ctx, m, rc.Currency)
	if err != nil {
		s.log.Debug("display price conversion skipped", "currency", rc.Currency, "error", err)
		return PriceView{}, false
	}
	return NewPriceView(converted), true
}

func (s *service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePattern(ctx, constants.PATTERN_INVALIDATE_CATALOG_ALL); err != nil {
		s.log.Warn("failed to invalidate catalog cache", "error", err)
	}
}

func fingerprint(q ItemQuery) string {
	minPrice, maxPrice := "", ""
	if q.MinPrice != nil {
		minPrice = fmt.Sprintf("%g", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		maxPrice = fmt.Sprintf("%g", *q.MaxPrice)
	}
	raw := strings.Join([]string{
		string(q.Kind), strings.ToLower(q.Category), strings.ToLower(q.Country), strings.ToLower(q.City),
		strings.ToLower(q.Search), minPrice, maxPrice, fmt.Sprint(q.IncludeUnavailable),
		fmt.Sprint(q.Page), fmt.Sprint(q.Limit),
	}, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
