// Package main seeds the database with demo partners, products, prices and
// opening balances.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/auth"
	"ledgerbook/internal/domain/catalogs/partner"
	"ledgerbook/internal/domain/catalogs/price"
	"ledgerbook/internal/domain/catalogs/product"
	"ledgerbook/internal/domain/ledger"
	"ledgerbook/internal/infrastructure/numerator"
	"ledgerbook/internal/infrastructure/storage/postgres"
	"ledgerbook/internal/infrastructure/storage/postgres/catalog_repo"
	"ledgerbook/internal/infrastructure/storage/postgres/ledger_repo"
	"ledgerbook/pkg/logger"
)

const seedActor = "seed"

type demoProduct struct {
	code, name string
	unitPrice  string
	raw        int64
	finished   int64
}

type demoPartner struct {
	name        string
	closingDate int
	email       string
	products    []demoProduct
}

var demo = []demoPartner{
	{
		name:        "Kitamura Trading",
		closingDate: 20,
		email:       "orders@kitamura.example",
		products: []demoProduct{
			{"KT-001", "Bracket A", "120.00", 500, 120},
			{"KT-002", "Bracket B", "135.50", 300, 80},
		},
	},
	{
		name:        "Harbor Supply",
		closingDate: 31,
		email:       "ap@harbor.example",
		products: []demoProduct{
			{"HS-010", "Hinge set", "48.00", 1000, 400},
		},
	},
}

func main() {
	_ = godotenv.Load()

	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL), "ledgerbook-seed")
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("connected to database")

	var existing int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM partners`).Scan(&existing); err != nil {
		log.Fatalw("failed to inspect partners", "error", err)
	}
	if existing > 0 && os.Getenv("SEED_FORCE") != "true" {
		log.Infow("database already has partners, skipping demo data", "partners", existing)
	} else if err := seedDemoData(ctx, pool); err != nil {
		log.Fatalw("failed to seed demo data", "error", err)
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg := auth.DefaultJWTConfig(secret)
		cfg.AccessTokenTTL = 24 * time.Hour
		token, expiresAt, err := auth.NewJWTService(cfg).GenerateAccessToken("demo-operator", "operator@ledgerbook.local", []string{"clerk"})
		if err != nil {
			log.Fatalw("failed to issue demo token", "error", err)
		}
		log.Infow("demo operator token", "token", token, "expires_at", expiresAt)
	}

	log.Info("seeding completed successfully")
}

func seedDemoData(ctx context.Context, pool *postgres.Pool) error {
	txm := postgres.NewTxManager(pool)
	numbers := numerator.New(func(ctx context.Context) numerator.Querier {
		return txm.GetQuerier(ctx)
	}, pool)

	partnerRepo := catalog_repo.NewPartnerRepo(txm)
	productRepo := catalog_repo.NewProductRepo(txm)
	ledgerRepo := ledger_repo.NewLedgerRepo(txm)

	partners := partner.NewService(partnerRepo, txm, numbers)
	products := product.NewService(productRepo, txm, partnerRepo, ledgerRepo)
	prices := price.NewService(catalog_repo.NewPriceRepo(txm), productRepo)

	validFrom := time.Date(time.Now().Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	openedAt := time.Now().UTC()
	var opening []ledger.Movement

	for _, dp := range demo {
		p := partner.NewPartner("", dp.name)
		p.ClosingDate = dp.closingDate
		email := dp.email
		p.Email = &email
		if err := partners.Create(ctx, p); err != nil {
			return fmt.Errorf("create partner %s: %w", dp.name, err)
		}
		logger.Info(ctx, "partner seeded", "code", p.Code, "name", p.Name)

		for _, d := range dp.products {
			partnerID := p.ID
			prod := product.NewProduct(d.code, d.name, &partnerID)
			if err := products.Create(ctx, prod); err != nil {
				return fmt.Errorf("create product %s: %w", d.code, err)
			}

			err := prices.Create(ctx, &price.Price{
				ProductID: prod.ID,
				UnitPrice: decimal.RequireFromString(d.unitPrice),
				ValidFrom: validFrom,
			})
			if err != nil {
				return fmt.Errorf("create price %s: %w", d.code, err)
			}

			opening = append(opening,
				openingEntry(prod.ID, ledger.KindReceiving, d.raw, openedAt),
				openingEntry(prod.ID, ledger.KindProductionFinished, d.finished, openedAt),
			)
		}
	}

	return txm.RunInTransaction(ctx, func(ctx context.Context) error {
		n, err := ledgerRepo.ImportMovements(ctx, opening)
		if err != nil {
			return fmt.Errorf("import opening balances: %w", err)
		}
		logger.Info(ctx, "opening balances imported", "entries", n)
		return nil
	})
}

func openingEntry(productID id.ID, kind ledger.Kind, qty int64, at time.Time) ledger.Movement {
	reason := "opening balance"
	return ledger.Movement{
		ID:             id.New(),
		ProductID:      productID,
		Kind:           kind,
		QuantityChange: qty,
		Reason:         &reason,
		CreatedBy:      seedActor,
		CreatedAt:      at,
	}
}
