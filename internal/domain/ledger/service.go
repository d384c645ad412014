package ledger

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/tx"
	"ledgerbook/internal/domain/audit"
	"ledgerbook/internal/domain/events"
	"ledgerbook/pkg/logger"
)

var tracer = otel.Tracer("ledgerbook/ledger")

// Observer receives ledger business metrics.
type Observer interface {
	MovementApplied(kind string)
	MovementReversed(kind string)
	BulkItemFailed(operation string)
}

type nopObserver struct{}

func (nopObserver) MovementApplied(string)  {}
func (nopObserver) MovementReversed(string) {}
func (nopObserver) BulkItemFailed(string)   {}

// Service is the ledger engine. Every operation runs as one transaction so
// the counter update and the entry append commit together.
type Service struct {
	repo      Repository
	txManager tx.Manager
	events    events.Publisher
	audit     audit.Recorder
	observer  Observer
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithEvents sets the outbox publisher.
func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithAudit sets the audit recorder.
func WithAudit(r audit.Recorder) Option {
	return func(s *Service) { s.audit = r }
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a ledger engine.
func NewService(repo Repository, txManager tx.Manager, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		txManager: txManager,
		events:    events.Discard{},
		audit:     audit.NopRecorder{},
		observer:  nopObserver{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply records one movement: the mapped counters are incremented and exactly
// one entry is appended. A repair entry moves stock from defective to
// finished, its quantity being the finished gain.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (*Movement, error) {
	ctx, span := tracer.Start(ctx, "ledger.Apply")
	defer span.End()
	span.SetAttributes(attribute.String("movement.type", string(in.Kind)))

	actor, err := audit.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	rule, err := validateApply(in)
	if err != nil {
		return nil, err
	}

	m := &Movement{
		ID:             id.New(),
		ProductID:      in.ProductID,
		Kind:           in.Kind,
		QuantityChange: in.Quantity,
		Reason:         optional(in.Metadata.Reason),
		DefectReason:   optional(in.Metadata.DefectReason),
		DueDate:        in.Metadata.DueDate,
		CreatedBy:      actor,
		CreatedAt:      s.now().UTC(),
	}
	if !in.Metadata.CreatedAt.IsZero() {
		m.CreatedAt = in.Metadata.CreatedAt.UTC()
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.ApplyDeltas(ctx, in.ProductID, rule.Deltas(in.Quantity)); err != nil {
			return err
		}
		if err := s.repo.InsertMovement(ctx, m); err != nil {
			return fmt.Errorf("insert movement: %w", err)
		}
		return s.events.Publish(ctx, events.Event{
			AggregateType: events.AggregateMovement,
			AggregateID:   m.ID,
			EventType:     events.MovementApplied,
			Payload:       m,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Wrap(err)
	}

	// Inside a shipment the outer transaction may still roll back.
	tx.AfterCommit(ctx, func() {
		s.observer.MovementApplied(string(m.Kind))
		logger.Info(ctx, "movement applied",
			"movement_id", m.ID,
			"product_id", m.ProductID,
			"movement_type", m.Kind,
			"quantity_change", m.QuantityChange,
		)
	})
	return m, nil
}

func validateApply(in ApplyInput) (Rule, error) {
	if id.IsNil(in.ProductID) {
		return Rule{}, apperror.NewValidation("product_id is required")
	}
	rule, ok := RuleFor(in.Kind)
	if !ok {
		return Rule{}, apperror.NewValidation(fmt.Sprintf("unknown movement type %q", in.Kind)).
			WithDetail("movement_type", in.Kind)
	}
	if in.Quantity == 0 {
		return Rule{}, apperror.NewValidation("quantity must not be zero")
	}
	if (rule.Sign == SignPositive && in.Quantity < 0) || (rule.Sign == SignNegative && in.Quantity > 0) {
		return Rule{}, apperror.NewValidation(fmt.Sprintf("quantity sign does not match movement type %q", in.Kind)).
			WithDetail("movement_type", in.Kind).
			WithDetail("quantity", in.Quantity)
	}
	if !in.Metadata.CreatedAt.IsZero() && in.Kind != KindReceiving {
		return Rule{}, apperror.NewValidation("only receiving movements may be backdated")
	}
	return rule, nil
}

// Reverse deletes an entry and applies the inverse counter deltas. Reversing
// the same entry twice fails with NotFound.
func (s *Service) Reverse(ctx context.Context, movementID id.ID) error {
	ctx, span := tracer.Start(ctx, "ledger.Reverse")
	defer span.End()

	if _, err := audit.RequireActor(ctx); err != nil {
		return err
	}

	var reversed Movement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := s.repo.GetMovementForUpdate(ctx, movementID)
		if err != nil {
			return err
		}

		strategy, ok := ReversalFor(m.Kind)
		if !ok {
			return apperror.NewUnreversible(string(m.Kind)).WithDetail("movement_id", movementID)
		}

		if err := s.repo.ApplyDeltas(ctx, m.ProductID, strategy.Reverse(m.QuantityChange)); err != nil {
			return err
		}
		if err := s.repo.DeleteMovement(ctx, m.ID); err != nil {
			return fmt.Errorf("delete movement: %w", err)
		}

		rec, err := audit.NewRecord("movement", m.ID, audit.ActionReverse, m)
		if err != nil {
			return err
		}
		if err := s.audit.Record(ctx, rec); err != nil {
			return fmt.Errorf("audit reversal: %w", err)
		}

		reversed = m
		return s.events.Publish(ctx, events.Event{
			AggregateType: events.AggregateMovement,
			AggregateID:   m.ID,
			EventType:     events.MovementReversed,
			Payload:       m,
		})
	})
	if err != nil {
		span.RecordError(err)
		return apperror.Wrap(err)
	}

	tx.AfterCommit(ctx, func() {
		s.observer.MovementReversed(string(reversed.Kind))
		logger.Info(ctx, "movement reversed",
			"movement_id", reversed.ID,
			"product_id", reversed.ProductID,
			"movement_type", reversed.Kind,
			"quantity_change", reversed.QuantityChange,
		)
	})
	return nil
}

// BulkApply applies items one by one. A failing item is counted and the batch
// continues.
func (s *Service) BulkApply(ctx context.Context, items []ApplyInput) BulkResult {
	var res BulkResult
	for i, item := range items {
		if _, err := s.Apply(ctx, item); err != nil {
			res.fail(ctx, "bulk_apply", i, err)
			s.observer.BulkItemFailed("bulk_apply")
			continue
		}
		res.SuccessCount++
	}
	logger.Info(ctx, "bulk apply finished", "success", res.SuccessCount, "errors", res.ErrorCount)
	return res
}

// BulkReverse reverses entries one by one with the same failure policy as
// BulkApply.
func (s *Service) BulkReverse(ctx context.Context, movementIDs []id.ID) BulkResult {
	var res BulkResult
	for i, movementID := range movementIDs {
		if err := s.Reverse(ctx, movementID); err != nil {
			res.fail(ctx, "bulk_reverse", i, err)
			s.observer.BulkItemFailed("bulk_reverse")
			continue
		}
		res.SuccessCount++
	}
	logger.Info(ctx, "bulk reverse finished", "success", res.SuccessCount, "errors", res.ErrorCount)
	return res
}

func (r *BulkResult) fail(ctx context.Context, op string, index int, err error) {
	r.ErrorCount++
	item := ItemError{Index: index, Code: apperror.CodeInternal, Message: err.Error()}
	if appErr, ok := apperror.AsAppError(err); ok {
		item.Code = appErr.Code
		item.Message = appErr.Message
	}
	r.Errors = append(r.Errors, item)
	logger.Warn(ctx, "bulk item failed", "operation", op, "index", index, "error", err)
}

// Adjust overwrites counters with stocktake values and records the difference
// of each changed counter as an adjustment entry. The counter row stays locked
// from the read until commit, so concurrent adjustments of one product are
// serialized.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (*AdjustResult, error) {
	ctx, span := tracer.Start(ctx, "ledger.Adjust")
	defer span.End()

	actor, err := audit.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	if id.IsNil(in.ProductID) {
		return nil, apperror.NewValidation("product_id is required")
	}
	if in.Raw == nil && in.Finished == nil && in.Defective == nil {
		return nil, apperror.NewValidation("at least one counter value is required")
	}

	var res AdjustResult
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		before, err := s.repo.GetCountersForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		after := before
		now := s.now().UTC()

		var written []Movement
		for _, c := range AllCounters {
			target := in.target(c)
			if target == nil {
				continue
			}
			diff := *target - before.Get(c)
			if diff == 0 {
				continue
			}
			after.Set(c, *target)
			written = append(written, Movement{
				ID:             id.New(),
				ProductID:      in.ProductID,
				Kind:           AdjustmentKind(c),
				QuantityChange: diff,
				Reason:         optional(in.Reason),
				CreatedBy:      actor,
				CreatedAt:      now,
			})
		}
		if len(written) == 0 {
			res = AdjustResult{Before: before, After: after}
			return nil
		}

		after.LastUpdatedAt = now
		if err := s.repo.SetCounters(ctx, after); err != nil {
			return fmt.Errorf("set counters: %w", err)
		}
		for i := range written {
			if err := s.repo.InsertMovement(ctx, &written[i]); err != nil {
				return fmt.Errorf("insert adjustment: %w", err)
			}
		}

		rec, err := audit.NewRecord("inventory", in.ProductID, audit.ActionAdjust, map[string]any{
			"before": before,
			"after":  after,
		})
		if err != nil {
			return err
		}
		if err := s.audit.Record(ctx, rec); err != nil {
			return fmt.Errorf("audit adjustment: %w", err)
		}

		res = AdjustResult{Before: before, After: after, Movements: written}
		return s.events.Publish(ctx, events.Event{
			AggregateType: events.AggregateMovement,
			AggregateID:   in.ProductID,
			EventType:     events.CountersAdjusted,
			Payload:       res,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Wrap(err)
	}

	tx.AfterCommit(ctx, func() {
		for _, m := range res.Movements {
			s.observer.MovementApplied(string(m.Kind))
		}
		logger.Info(ctx, "counters adjusted",
			"product_id", in.ProductID,
			"entries", len(res.Movements),
		)
	})
	return &res, nil
}

// Counters returns the current counters of a product.
func (s *Service) Counters(ctx context.Context, productID id.ID) (Counters, error) {
	c, err := s.repo.GetCounters(ctx, productID)
	if err != nil {
		return Counters{}, apperror.Wrap(err)
	}
	return c, nil
}

// ListMovements returns movement history.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.Limit <= 0 || filter.Limit > 1000 {
		filter.Limit = 100
	}
	items, err := s.repo.ListMovements(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return items, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
