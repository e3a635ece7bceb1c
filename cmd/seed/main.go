package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"worldtour/internal/bookings"
	"worldtour/internal/cancellation"
	"worldtour/internal/catalog"
	"worldtour/internal/inventory"
	"worldtour/internal/shared/config"
	"worldtour/internal/shared/database"
	"worldtour/internal/shared/requestctx"
	"worldtour/internal/users"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Seeder struct {
	db           *database.DB
	catalog      catalog.Service
	cancellation cancellation.Service
}

func main() {
	fmt.Println("🌱 Starting World Tour Database Seeder...")

	cfg := config.Load()

	db, err := database.InitDB(cfg,
		&users.User{},
		&catalog.CatalogItem{},
		&inventory.CapacityReservation{},
		&bookings.Booking{},
		&cancellation.CancellationPolicy{},
		&cancellation.Cancellation{},
	)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{
		db:           db,
		catalog:      catalog.NewService(catalog.NewRepository(db.PostgreSQL)),
		cancellation: cancellation.NewService(cancellation.NewRepository(db.PostgreSQL)),
	}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates all tables, dependents first
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"cancellations",
		"cancellation_policies",
		"capacity_reservations",
		"bookings",
		"catalog_items",
		"users",
	}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

// SeedAll seeds all required data
func (s *Seeder) SeedAll() error {
	ctx := context.Background()

	userIDs, err := s.SeedUsers()
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	admin := requestctx.Anonymous()
	admin.UserID = userIDs["admin"]
	admin.Role = users.RoleAdmin

	itemIDs, err := s.SeedCatalog(ctx, admin)
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	if err := s.SeedCancellationPolicies(ctx, itemIDs); err != nil {
		return fmt.Errorf("failed to seed cancellation policies: %w", err)
	}

	if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
		log.Printf("Warning: Failed to clear Redis cache: %v", err)
	}

	return nil
}

// SeedUsers creates one admin and two travellers. Admins are only ever created here.
func (s *Seeder) SeedUsers() (map[string]uuid.UUID, error) {
	fmt.Println("  👤 Seeding users...")

	userIDs := make(map[string]uuid.UUID)

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("qwerty"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	usersData := []struct {
		key       string
		firstName string
		lastName  string
		email     string
		role      users.Role
		currency  string
	}{
		{"admin", "Admin", "User", "admin@worldtour.test", users.RoleAdmin, "USD"},
		{"user1", "Amara", "Okafor", "amara@worldtour.test", users.RoleUser, "EUR"},
		{"user2", "Kenji", "Sato", "kenji@worldtour.test", users.RoleUser, "JPY"},
	}

	for _, userData := range usersData {
		user := users.User{
			ID:                uuid.New(),
			FirstName:         userData.firstName,
			LastName:          userData.lastName,
			Email:             userData.email,
			Password:          string(hashedPassword),
			Role:              userData.role,
			PreferredCurrency: userData.currency,
			CreatedAt:         time.Now(),
			UpdatedAt:         time.Now(),
		}

		if err := s.db.PostgreSQL.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user %s: %w", userData.email, err)
		}

		userIDs[userData.key] = user.ID
		fmt.Printf("    ✅ Created user: %s (%s)\n", user.Email, user.Role)
	}

	return userIDs, nil
}

// SeedCatalog creates a few items of every kind
func (s *Seeder) SeedCatalog(ctx context.Context, admin requestctx.RequestContext) (map[string]uuid.UUID, error) {
	fmt.Println("  🌍 Seeding catalog...")

	departure := time.Now().UTC().AddDate(0, 1, 0).Truncate(time.Hour)
	at := func(d time.Duration) *time.Time {
		t := departure.Add(d)
		return &t
	}

	items := map[string]catalog.CreateItemRequest{
		"kyoto": {
			Kind: string(catalog.KindDestination), Name: "Kyoto Temples", Category: "culture",
			Country: "Japan", City: "Kyoto", UnitPrice: 150, Currency: "USD",
			TotalCapacity: 40, DurationDays: 5,
			Description: "Guided stay across the temples and gardens of Kyoto.",
		},
		"masai-mara": {
			Kind: string(catalog.KindDestination), Name: "Masai Mara Safari", Category: "wildlife",
			Country: "Kenya", City: "Narok", UnitPrice: 220, Currency: "USD", DiscountPercent: 10,
			TotalCapacity: 12, DurationDays: 4,
			Description: "Game drives in the Mara with full board.",
		},
		"lisbon-double": {
			Kind: string(catalog.KindRoomType), Name: "Deluxe Double", HotelName: "Alfama Riverside",
			Country: "Portugal", City: "Lisbon", UnitPrice: 95, Currency: "EUR",
			TotalCapacity: 20,
		},
		"cape-town-suite": {
			Kind: string(catalog.KindRoomType), Name: "Ocean Suite", HotelName: "Clifton Bay Hotel",
			Country: "South Africa", City: "Cape Town", UnitPrice: 3200, Currency: "ZAR",
			TotalCapacity: 4,
		},
		"nbo-lhr": {
			Kind: string(catalog.KindFlight), Name: "Nairobi to London", Airline: "Kenya Airways",
			Origin: "NBO", DestinationCode: "LHR", UnitPrice: 640, Currency: "USD",
			TotalCapacity: 180, DepartureTime: at(0), ArrivalTime: at(9 * time.Hour),
		},
		"syd-nrt": {
			Kind: string(catalog.KindFlight), Name: "Sydney to Tokyo", Airline: "Qantas",
			Origin: "SYD", DestinationCode: "NRT", UnitPrice: 890, Currency: "AUD",
			TotalCapacity: 2, DepartureTime: at(48 * time.Hour), ArrivalTime: at(58 * time.Hour),
		},
		"alps-week": {
			Kind: string(catalog.KindPackage), Name: "Alpine Rail Week", Category: "rail",
			Country: "Switzerland", UnitPrice: 2400, Currency: "CHF",
			TotalCapacity: 16, DurationDays: 7,
			Description: "Seven days on the Glacier and Bernina lines, hotels included.",
		},
	}

	itemIDs := make(map[string]uuid.UUID, len(items))
	for key, req := range items {
		item, err := s.catalog.CreateItem(ctx, admin, req)
		if err != nil {
			return nil, fmt.Errorf("failed to create catalog item %s: %w", req.Name, err)
		}
		id, err := uuid.Parse(item.ID)
		if err != nil {
			return nil, fmt.Errorf("catalog item %s has invalid id: %w", req.Name, err)
		}
		itemIDs[key] = id
		fmt.Printf("    ✅ Created %s: %s (%s)\n", item.Kind, item.Name, item.Slug)
	}

	return itemIDs, nil
}

// SeedCancellationPolicies gives most items terms; items left out cancel free of charge
func (s *Seeder) SeedCancellationPolicies(ctx context.Context, itemIDs map[string]uuid.UUID) error {
	fmt.Println("  📋 Seeding cancellation policies...")

	allow, deny := true, false
	policies := map[string]cancellation.CancellationPolicyRequest{
		"kyoto":         {AllowCancellation: &allow, DeadlineHours: 72, FeeType: cancellation.FeePercentage, FeeAmount: 10},
		"masai-mara":    {AllowCancellation: &allow, DeadlineHours: 168, FeeType: cancellation.FeePercentage, FeeAmount: 25, RefundProcessingDays: 10},
		"lisbon-double": {AllowCancellation: &allow, DeadlineHours: 24, FeeType: cancellation.FeeNone},
		"nbo-lhr":       {AllowCancellation: &allow, DeadlineHours: 48, FeeType: cancellation.FeeFixed, FeeAmount: 75},
		"syd-nrt":       {AllowCancellation: &deny, FeeType: cancellation.FeeNone},
		"alps-week":     {AllowCancellation: &allow, DeadlineHours: 336, FeeType: cancellation.FeeFixed, FeeAmount: 200},
	}

	for key, req := range policies {
		if _, err := s.cancellation.UpsertPolicy(ctx, itemIDs[key], req); err != nil {
			return fmt.Errorf("failed to create cancellation policy for %s: %w", key, err)
		}
		fmt.Printf("    ✅ Created cancellation policy for %s (%s)\n", key, req.FeeType)
	}

	return nil
}
