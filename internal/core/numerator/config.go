// Package numerator defines document numbering for shipments and invoices.
// Implementations live in the infrastructure layer.
package numerator

// Strategy defines the numbering generation strategy.
type Strategy int

const (
	// StrategyStrict increments the sequence row inside the caller's
	// transaction. Numbers are gapless because a rollback also rolls back the
	// increment. Used for invoices.
	StrategyStrict Strategy = iota

	// StrategyCached reserves ranges of numbers in memory. Restarts leave gaps.
	// Used for shipment delivery notes.
	StrategyCached
)

// ParseStrategy maps a configuration value to a Strategy. Unknown values
// fall back to StrategyStrict.
func ParseStrategy(s string) Strategy {
	if s == "cached" {
		return StrategyCached
	}
	return StrategyStrict
}

// Options configuration for number generation.
type Options struct {
	Strategy Strategy
	// RangeSize is the number of values reserved at once by StrategyCached.
	// Default is 50.
	RangeSize int64
}

// Config holds numbering configuration for one document type.
type Config struct {
	// Prefix added to all numbers (e.g. "INV", "SHP")
	Prefix string

	// IncludeYear adds year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int

	// ResetPeriod: "year", "month", "never"
	ResetPeriod string

	Options Options
}

// DefaultConfig returns yearly-reset numbering with the strict strategy.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: "year",
	}
}

// Invoice numbering: INV-2024-00001.
func InvoiceConfig() Config {
	return DefaultConfig("INV")
}

// ShipmentConfig numbers delivery notes: SHP-2024-00001.
func ShipmentConfig(strategy Strategy) Config {
	cfg := DefaultConfig("SHP")
	cfg.Options.Strategy = strategy
	return cfg
}
