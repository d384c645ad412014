package reports

import (
	"context"
	"time"
)

// Repository defines report data access interface.
type Repository interface {
	StockBalances(ctx context.Context, filter StockBalanceFilter) ([]StockBalanceRow, int, error)
	MovementHistory(ctx context.Context, filter MovementHistoryFilter) ([]MovementHistoryRow, error)
	ShipmentHistory(ctx context.Context, filter ShipmentHistoryFilter) ([]ShipmentHistoryRow, error)

	// Dashboard aggregates headline figures. monthStart and dayStart bound
	// the "this month" and "today" figures.
	Dashboard(ctx context.Context, monthStart, dayStart time.Time) (*Dashboard, error)

	// CompareCounters returns every product's stored counters next to the
	// sums of its live ledger entries.
	CompareCounters(ctx context.Context) ([]CounterComparison, error)
}
