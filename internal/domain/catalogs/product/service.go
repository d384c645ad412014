package product

import (
	"context"
	"fmt"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/tx"
	"ledgerbook/internal/domain"
)

// Repository defines product persistence.
type Repository interface {
	domain.CatalogRepository[*Product]
}

// PartnerChecker confirms a partner exists.
type PartnerChecker interface {
	PartnerExists(ctx context.Context, partnerID id.ID) (bool, error)
}

// CounterInitializer creates the zero inventory row of a new product.
type CounterInitializer interface {
	InitCounters(ctx context.Context, productID id.ID) error
}

// Service manages products.
type Service struct {
	*domain.CatalogService[*Product]
	partners PartnerChecker
	counters CounterInitializer
}

// NewService creates a product service.
func NewService(repo Repository, txManager tx.Manager, partners PartnerChecker, counters CounterInitializer) *Service {
	svc := &Service{
		CatalogService: domain.NewCatalogService[*Product](repo, txManager, "product"),
		partners:       partners,
		counters:       counters,
	}
	svc.Hooks().On(domain.BeforeCreate, svc.checkPartner)
	svc.Hooks().On(domain.BeforeUpdate, svc.checkPartner)
	svc.Hooks().On(domain.InCreate, svc.initCounters)
	return svc
}

func (s *Service) checkPartner(ctx context.Context, p *Product) error {
	if p.PartnerID == nil {
		return nil
	}
	ok, err := s.partners.PartnerExists(ctx, *p.PartnerID)
	if err != nil {
		return apperror.Wrap(err)
	}
	if !ok {
		return apperror.NewNotFound("partner", *p.PartnerID)
	}
	return nil
}

func (s *Service) initCounters(ctx context.Context, p *Product) error {
	if err := s.counters.InitCounters(ctx, p.ID); err != nil {
		return fmt.Errorf("init counters: %w", err)
	}
	return nil
}
