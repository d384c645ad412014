package partner

import (
	"context"
	"fmt"
	"time"

	"ledgerbook/internal/core/numerator"
	"ledgerbook/internal/core/tx"
	"ledgerbook/internal/domain"
)

// Repository defines partner persistence.
type Repository interface {
	domain.CatalogRepository[*Partner]
}

// Service manages partners.
type Service struct {
	*domain.CatalogService[*Partner]
	numerator numerator.Generator
}

// NewService creates a partner service. Partners created without a code get
// one from the numerator.
func NewService(repo Repository, txManager tx.Manager, gen numerator.Generator) *Service {
	svc := &Service{
		CatalogService: domain.NewCatalogService[*Partner](repo, txManager, "partner"),
		numerator:      gen,
	}
	svc.Hooks().On(domain.BeforeCreate, svc.assignCode)
	return svc
}

func (s *Service) assignCode(ctx context.Context, p *Partner) error {
	if p.Code != "" {
		return nil
	}
	code, err := s.numerator.GetNextNumber(ctx, numerator.Config{Prefix: "PT", PadWidth: 5, ResetPeriod: "never"}, time.Now())
	if err != nil {
		return fmt.Errorf("generate partner code: %w", err)
	}
	p.Code = code
	return nil
}
