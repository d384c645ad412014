package price

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/pkg/logger"
)

// Repository defines price persistence.
type Repository interface {
	Create(ctx context.Context, p *Price) error
	ListByProduct(ctx context.Context, productID id.ID) ([]Price, error)
	SetStatus(ctx context.Context, priceID id.ID, status Status) error
	// FindActive returns the active price with the latest valid_from <= date.
	// Returns NotFound when there is none.
	FindActive(ctx context.Context, productID id.ID, date time.Time) (Price, error)
}

// ProductChecker confirms a product exists.
type ProductChecker interface {
	ProductExists(ctx context.Context, productID id.ID) (bool, error)
}

// Service manages price history.
type Service struct {
	repo     Repository
	products ProductChecker
}

// NewService creates a price service.
func NewService(repo Repository, products ProductChecker) *Service {
	return &Service{repo: repo, products: products}
}

// Create adds a price row.
func (s *Service) Create(ctx context.Context, p *Price) error {
	if id.IsNil(p.ID) {
		p.ID = id.New()
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if err := p.Validate(); err != nil {
		return err
	}

	ok, err := s.products.ProductExists(ctx, p.ProductID)
	if err != nil {
		return apperror.Wrap(err)
	}
	if !ok {
		return apperror.NewNotFound("product", p.ProductID)
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return apperror.Wrap(err)
	}
	logger.Info(ctx, "price created",
		"product_id", p.ProductID,
		"unit_price", p.UnitPrice.String(),
		"valid_from", p.ValidFrom.Format(time.DateOnly),
	)
	return nil
}

// ListByProduct returns the full history, newest valid_from first.
func (s *Service) ListByProduct(ctx context.Context, productID id.ID) ([]Price, error) {
	items, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return items, nil
}

// Deactivate excludes a row from price resolution.
func (s *Service) Deactivate(ctx context.Context, priceID id.ID) error {
	return apperror.Wrap(s.repo.SetStatus(ctx, priceID, StatusInactive))
}

// UnitPriceOn returns the unit price in effect on date, or zero when no
// active price starts on or before it.
func (s *Service) UnitPriceOn(ctx context.Context, productID id.ID, date time.Time) (decimal.Decimal, error) {
	p, err := s.repo.FindActive(ctx, productID, date)
	if apperror.IsNotFound(err) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, apperror.Wrap(err)
	}
	return p.UnitPrice, nil
}
