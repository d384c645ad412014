package numerator

import (
	"context"
	"fmt"
	"time"
)

// Generator issues sequential document numbers.
type Generator interface {
	// GetNextNumber returns the next number for cfg in the given period.
	// Pattern: PREFIX-YEAR-XXXXX (e.g. INV-2024-00001)
	GetNextNumber(ctx context.Context, cfg Config, period time.Time) (string, error)
}

// StaticGenerator hands out PREFIX-YEAR-N numbers from an in-process counter.
// Used by tests and the seed command.
type StaticGenerator struct {
	next map[string]int64
}

// GetNextNumber implements Generator.
func (g *StaticGenerator) GetNextNumber(_ context.Context, cfg Config, period time.Time) (string, error) {
	if g.next == nil {
		g.next = make(map[string]int64)
	}
	g.next[cfg.Prefix]++
	return Format(cfg, period, g.next[cfg.Prefix]), nil
}

// Format renders a sequence value: PREFIX-YEAR-00001 or PREFIX-00001.
func Format(cfg Config, period time.Time, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth == 0 {
		padWidth = 5
	}
	if cfg.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", cfg.Prefix, period.Format("2006"), padWidth, num)
	}
	return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
}

var _ Generator = (*StaticGenerator)(nil)
