package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/numerator"
	"ledgerbook/internal/core/tx"
	"ledgerbook/internal/domain/audit"
	"ledgerbook/internal/domain/events"
	"ledgerbook/pkg/logger"
)

var tracer = otel.Tracer("ledgerbook/invoice")

// Service is the invoice aggregator.
type Service struct {
	repo      Repository
	txManager tx.Manager
	numerator numerator.Generator
	numbering numerator.Config
	taxRate   decimal.Decimal
	events    events.Publisher
	audit     audit.Recorder
	now       func() time.Time
}

// Deps groups the collaborators of Service. A zero TaxRate means
// DefaultTaxRate.
type Deps struct {
	Repo      Repository
	TxManager tx.Manager
	Numerator numerator.Generator
	TaxRate   decimal.Decimal
	Events    events.Publisher
	Audit     audit.Recorder
	Now       func() time.Time
}

// NewService creates an invoice aggregator.
func NewService(d Deps) *Service {
	s := &Service{
		repo:      d.Repo,
		txManager: d.TxManager,
		numerator: d.Numerator,
		numbering: numerator.InvoiceConfig(),
		taxRate:   d.TaxRate,
		events:    d.Events,
		audit:     d.Audit,
		now:       d.Now,
	}
	if s.taxRate.IsZero() {
		s.taxRate = DefaultTaxRate
	}
	if s.events == nil {
		s.events = events.Discard{}
	}
	if s.audit == nil {
		s.audit = audit.NopRecorder{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// TaxRate returns the configured rate.
func (s *Service) TaxRate() decimal.Decimal {
	return s.taxRate
}

// SummarizeUnbilled lists, per partner of the closing-date cohort, how many
// unbilled shipments fall in the period and what they add up to.
func (s *Service) SummarizeUnbilled(ctx context.Context, closingDate int, start, end time.Time) ([]PartnerSummary, error) {
	if closingDate < 1 || closingDate > 31 {
		return nil, apperror.NewValidation("closing date must be between 1 and 31").WithDetail("field", "closing_date")
	}
	if err := validatePeriod(start, end); err != nil {
		return nil, err
	}
	rows, err := s.repo.SummarizeUnbilled(ctx, closingDate, dateOnly(start), dateOnly(end))
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return rows, nil
}

// Confirm issues one invoice for the partner's unbilled shipments in the
// period. The shipments are locked, summed and claimed in one transaction, so
// the invoice amount always equals the sum of what it claims.
func (s *Service) Confirm(ctx context.Context, in ConfirmInput) (*ConfirmResult, error) {
	ctx, span := tracer.Start(ctx, "invoice.Confirm")
	defer span.End()
	span.SetAttributes(attribute.String("partner.id", in.PartnerID.String()))

	actor, err := audit.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	if id.IsNil(in.PartnerID) {
		return nil, apperror.NewValidation("partner id is required").WithDetail("field", "partner_id")
	}
	if err := validatePeriod(in.PeriodStart, in.PeriodEnd); err != nil {
		return nil, err
	}
	start, end := dateOnly(in.PeriodStart), dateOnly(in.PeriodEnd)

	var res ConfirmResult
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		shipments, err := s.repo.LockUnbilled(ctx, in.PartnerID, start, end)
		if err != nil {
			return fmt.Errorf("lock unbilled shipments: %w", err)
		}
		if len(shipments) == 0 {
			return apperror.NewBusinessRule(apperror.CodeNothingToInvoice, "No unbilled shipments in the period").
				WithDetail("partner_id", in.PartnerID)
		}

		subtotal := decimal.Zero
		ids := make([]id.ID, len(shipments))
		for i, sh := range shipments {
			subtotal = subtotal.Add(sh.TotalAmount)
			ids[i] = sh.ID
		}
		tax, total := CalculateTax(subtotal, s.taxRate)

		now := s.now().UTC()
		number, err := s.numerator.GetNextNumber(ctx, s.numbering, now)
		if err != nil {
			return fmt.Errorf("invoice number: %w", err)
		}

		inv := &Invoice{
			ID:          id.New(),
			Number:      number,
			PartnerID:   in.PartnerID,
			PeriodStart: start,
			PeriodEnd:   end,
			IssueDate:   dateOnly(now),
			Subtotal:    subtotal,
			TaxAmount:   tax,
			TotalAmount: total,
			Status:      StatusConfirmed,
			CreatedBy:   actor,
			CreatedAt:   now,
			Shipments:   shipments,
		}
		if err := s.repo.Create(ctx, inv); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		claimed, err := s.repo.ClaimShipments(ctx, inv.ID, ids)
		if err != nil {
			return fmt.Errorf("claim shipments: %w", err)
		}
		if claimed != int64(len(ids)) {
			return apperror.NewConflict(fmt.Sprintf("claimed %d of %d locked shipments", claimed, len(ids)))
		}

		rec, err := audit.NewRecord("invoice", inv.ID, audit.ActionConfirm, inv)
		if err != nil {
			return err
		}
		if err := s.audit.Record(ctx, rec); err != nil {
			return fmt.Errorf("audit invoice: %w", err)
		}

		res = ConfirmResult{
			InvoiceID:           inv.ID,
			Number:              inv.Number,
			Subtotal:            subtotal,
			Tax:                 tax,
			Total:               total,
			ClaimedShipments:    len(ids),
			CallerTotalMismatch: !in.TotalExclTax.Equal(subtotal),
		}
		return s.events.Publish(ctx, events.Event{
			AggregateType: events.AggregateInvoice,
			AggregateID:   inv.ID,
			EventType:     events.InvoiceConfirmed,
			Payload:       res,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Wrap(err)
	}

	if res.CallerTotalMismatch {
		logger.Warn(ctx, "invoice subtotal differs from caller total",
			"invoice_id", res.InvoiceID,
			"caller_total", in.TotalExclTax.String(),
			"subtotal", res.Subtotal.String(),
		)
	}
	logger.Info(ctx, "invoice confirmed",
		"invoice_id", res.InvoiceID,
		"number", res.Number,
		"partner_id", in.PartnerID,
		"shipments", res.ClaimedShipments,
		"total", res.Total.String(),
	)
	return &res, nil
}

// Get returns an invoice with the shipments it claimed.
func (s *Service) Get(ctx context.Context, invoiceID id.ID) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, invoiceID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return inv, nil
}

// List returns invoices, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 50
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return items, nil
}

func validatePeriod(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperror.NewValidation("period start and end are required")
	}
	if end.Before(start) {
		return apperror.NewValidation("period end is before period start").
			WithDetail("period_start", start.Format(time.DateOnly)).
			WithDetail("period_end", end.Format(time.DateOnly))
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
