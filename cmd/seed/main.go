package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cafe-pos/api/internal/app"
	"github.com/cafe-pos/api/internal/auth"
	"github.com/cafe-pos/api/internal/config"
	"github.com/cafe-pos/api/internal/enum"
	"github.com/cafe-pos/api/internal/events"
	"github.com/cafe-pos/api/internal/logging"
	"github.com/cafe-pos/api/internal/model"
	"github.com/cafe-pos/api/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type starterItem struct {
	name     string
	price    string
	category string
}

var starterMenu = []starterItem{
	{"Americano", "180", "Coffee"},
	{"Cafe Latte", "245", "Coffee"},
	{"Cappuccino", "245", "Coffee"},
	{"Masala Tea", "90", "Tea"},
	{"Lemon Ginger Honey", "150", "Tea"},
	{"Veg Sandwich", "320", "Food"},
	{"Chicken Momo", "280", "Food"},
	{"Chocolate Brownie", "210", "Dessert"},
}

func main() {
	// CLI flags
	email := flag.String("email", "", "Admin email address")
	password := flag.String("password", "", "Admin password")
	name := flag.String("name", "", "Admin full name")
	tables := flag.Int("tables", 8, "Number of tables to create")
	withMenu := flag.Bool("menu", true, "Create a starter menu when the menu is empty")
	flag.Parse()

	// Fall back to environment variables
	if *email == "" {
		*email = os.Getenv("SEED_EMAIL")
	}
	if *password == "" {
		*password = os.Getenv("SEED_PASSWORD")
	}
	if *name == "" {
		*name = os.Getenv("SEED_NAME")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}

	// Fall back to defaults
	if *email == "" {
		*email = "admin@cafe.local"
	}
	if *password == "" {
		*password = "password123"
		log.Warn("using default password 'password123'; change it immediately in production")
	}
	if *name == "" {
		*name = "Cafe Admin"
	}

	ctx := context.Background()
	store, closeStore, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("open store")
	}
	defer closeStore()

	svc := service.NewLifecycle(store, events.LogPublisher{Log: log}, app.Policy(cfg), service.WithLogger(log))

	if err := seedAdmin(ctx, log, store, *email, *password, *name); err != nil {
		log.WithError(err).Fatal("seed admin")
	}
	if err := seedTables(ctx, log, svc, *tables); err != nil {
		log.WithError(err).Fatal("seed tables")
	}
	if *withMenu {
		if err := seedMenu(ctx, log, svc); err != nil {
			log.WithError(err).Fatal("seed menu")
		}
	}
	// Settings are created from the configured defaults on first read.
	settings, err := svc.Settings(ctx)
	if err != nil {
		log.WithError(err).Fatal("seed settings")
	}

	log.WithFields(logrus.Fields{
		"backend":  cfg.Backend,
		"currency": settings.Currency,
		"tax_rate": settings.TaxRate.String(),
	}).Info("seed completed")
}

// seedAdmin creates the admin account unless the email is already taken.
func seedAdmin(ctx context.Context, log *logrus.Logger, store app.Store, email, password, fullName string) error {
	existing, err := store.GetUserByEmail(ctx, email)
	if err == nil {
		log.WithFields(logrus.Fields{"email": email, "id": existing.ID}).Info("admin already exists, skipping")
		return nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("check user: %w", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u, err := store.CreateUser(ctx, model.User{
		ID:             uuid.New(),
		Email:          email,
		FullName:       fullName,
		HashedPassword: hashed,
		Role:           enum.UserRoleAdmin,
		CreatedAt:      time.Now().UTC(),
	})
	if errors.Is(err, model.ErrDuplicate) {
		log.WithField("email", email).Info("admin created concurrently, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	log.WithFields(logrus.Fields{"email": email, "id": u.ID}).Info("created admin user")
	return nil
}

func seedTables(ctx context.Context, log *logrus.Logger, svc *service.Lifecycle, n int) error {
	created := 0
	for i := 1; i <= n; i++ {
		_, err := svc.CreateTable(ctx, service.CreateTableRequest{
			ID:       int32(i),
			Label:    fmt.Sprintf("Table %d", i),
			Capacity: 4,
		})
		if errors.Is(err, service.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return err
		}
		created++
	}
	log.WithFields(logrus.Fields{"requested": n, "created": created}).Info("tables seeded")
	return nil
}

func seedMenu(ctx context.Context, log *logrus.Logger, svc *service.Lifecycle) error {
	items, err := svc.ListMenu(ctx, "")
	if err != nil {
		return err
	}
	if len(items) > 0 {
		log.WithField("items", len(items)).Info("menu not empty, skipping starter menu")
		return nil
	}
	for _, it := range starterMenu {
		if _, err := svc.CreateMenuItem(ctx, service.MenuItemRequest{
			Name:     it.name,
			Price:    decimal.RequireFromString(it.price),
			Category: it.category,
			InStock:  true,
		}); err != nil {
			return fmt.Errorf("menu item %q: %w", it.name, err)
		}
	}
	log.WithField("items", len(starterMenu)).Info("starter menu created")
	return nil
}
