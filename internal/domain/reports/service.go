package reports

import (
	"context"
	"fmt"
	"time"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/domain/ledger"
)

// Service provides report generation operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock replaces the clock used for "this month" and "today".
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// StockBalances returns every product with its counters.
func (s *Service) StockBalances(ctx context.Context, filter StockBalanceFilter) (*StockBalanceReport, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}

	rows, total, err := s.repo.StockBalances(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(fmt.Errorf("get stock balances: %w", err))
	}

	report := &StockBalanceReport{Items: rows, TotalItems: total}
	for _, r := range rows {
		report.TotalRaw += r.Raw
		report.TotalFinished += r.Finished
		report.TotalDefective += r.Defective
	}
	return report, nil
}

// MovementHistory returns ledger entries, newest first.
func (s *Service) MovementHistory(ctx context.Context, filter MovementHistoryFilter) ([]MovementHistoryRow, error) {
	if filter.FromDate != nil && filter.ToDate != nil && filter.FromDate.After(*filter.ToDate) {
		return nil, apperror.NewValidation("fromDate must be before toDate")
	}
	for _, k := range filter.Kinds {
		if !k.IsValid() {
			return nil, apperror.NewValidation(fmt.Sprintf("unknown movement type %q", k))
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 500 {
		filter.Limit = 500
	}

	rows, err := s.repo.MovementHistory(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(fmt.Errorf("get movement history: %w", err))
	}
	return rows, nil
}

// ShipmentHistory returns shipment headers with partner and invoice.
func (s *Service) ShipmentHistory(ctx context.Context, filter ShipmentHistoryFilter) ([]ShipmentHistoryRow, error) {
	if filter.FromDate != nil && filter.ToDate != nil && filter.FromDate.After(*filter.ToDate) {
		return nil, apperror.NewValidation("fromDate must be before toDate")
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 500 {
		filter.Limit = 500
	}

	rows, err := s.repo.ShipmentHistory(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(fmt.Errorf("get shipment history: %w", err))
	}
	return rows, nil
}

// Dashboard returns headline figures as of now.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	now := s.now().UTC()
	y, m, d := now.Date()
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	dash, err := s.repo.Dashboard(ctx, monthStart, dayStart)
	if err != nil {
		return nil, apperror.Wrap(fmt.Errorf("get dashboard: %w", err))
	}
	return dash, nil
}

// Reconcile compares every product's counters with the sum of its live
// ledger entries and reports each counter that differs.
func (s *Service) Reconcile(ctx context.Context) (*ReconciliationReport, error) {
	rows, err := s.repo.CompareCounters(ctx)
	if err != nil {
		return nil, apperror.Wrap(fmt.Errorf("compare counters: %w", err))
	}

	report := &ReconciliationReport{
		CheckedAt:       s.now().UTC(),
		CheckedProducts: len(rows),
		Divergences:     []Divergence{},
	}
	for _, row := range rows {
		for _, c := range ledger.AllCounters {
			if row.Stored(c) == row.Ledger(c) {
				continue
			}
			report.Divergences = append(report.Divergences, Divergence{
				ProductID:   row.ProductID,
				ProductName: row.ProductName,
				Counter:     c,
				Stored:      row.Stored(c),
				LedgerSum:   row.Ledger(c),
			})
		}
	}
	return report, nil
}
