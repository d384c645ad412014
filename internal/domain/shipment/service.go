package shipment

import (
	"context"
	"fmt"
	"sort"
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
	"ledgerbook/internal/domain/ledger"
	"ledgerbook/pkg/logger"
)

var tracer = otel.Tracer("ledgerbook/shipment")

// Ledger records stock movements.
type Ledger interface {
	Apply(ctx context.Context, in ledger.ApplyInput) (*ledger.Movement, error)
}

// PriceBook resolves the unit price in effect on a date. A product without an
// active price resolves to zero.
type PriceBook interface {
	UnitPriceOn(ctx context.Context, productID id.ID, date time.Time) (decimal.Decimal, error)
}

// Service is the shipment consolidator.
type Service struct {
	repo      Repository
	ledger    Ledger
	prices    PriceBook
	txManager tx.Manager
	numerator numerator.Generator
	numbering numerator.Config
	events    events.Publisher
	audit     audit.Recorder
}

// Deps groups the collaborators of Service.
type Deps struct {
	Repo      Repository
	Ledger    Ledger
	Prices    PriceBook
	TxManager tx.Manager
	Numerator numerator.Generator
	Numbering numerator.Config
	Events    events.Publisher
	Audit     audit.Recorder
}

// NewService creates a shipment consolidator.
func NewService(d Deps) *Service {
	if d.Events == nil {
		d.Events = events.Discard{}
	}
	if d.Audit == nil {
		d.Audit = audit.NopRecorder{}
	}
	if d.Numbering.Prefix == "" {
		d.Numbering = numerator.ShipmentConfig(numerator.StrategyStrict)
	}
	return &Service{
		repo:      d.Repo,
		ledger:    d.Ledger,
		prices:    d.Prices,
		txManager: d.TxManager,
		numerator: d.Numerator,
		numbering: d.Numbering,
		events:    d.Events,
		audit:     d.Audit,
	}
}

type group struct {
	partnerID id.ID
	items     []RequestItem
}

// Register groups the requested items by the partner that owns each product,
// appends them to that partner's delivery note for the day (creating it when
// missing) and depletes stock through the ledger. The whole request commits
// or fails as one transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	ctx, span := tracer.Start(ctx, "shipment.Register")
	defer span.End()
	span.SetAttributes(attribute.String("shipment.type", string(in.Type)), attribute.Int("shipment.items", len(in.Items)))

	actor, err := audit.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateRegister(in); err != nil {
		return nil, err
	}
	date := dateOnly(in.Date)

	var res RegisterResult
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		groups, err := s.groupByOwner(ctx, in)
		if err != nil {
			return err
		}

		res = RegisterResult{}
		for _, g := range groups {
			gr, err := s.registerGroup(ctx, g, in, date, actor)
			if err != nil {
				return err
			}
			res.ShipmentIDs = append(res.ShipmentIDs, gr.ShipmentID)
			res.Groups = append(res.Groups, gr)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, apperror.Wrap(err)
	}

	res.Message = registerMessage(len(res.Groups))
	logger.Info(ctx, "shipment registered",
		"type", in.Type,
		"date", date.Format(time.DateOnly),
		"partners", len(res.Groups),
		"items", len(in.Items),
	)
	return &res, nil
}

func validateRegister(in RegisterInput) error {
	if len(in.Items) == 0 {
		return apperror.NewNoItems()
	}
	if !in.Type.IsValid() {
		return apperror.NewValidation(fmt.Sprintf("unknown shipment type %q", in.Type)).WithDetail("field", "type")
	}
	if in.Date.IsZero() {
		return apperror.NewValidation("shipment date is required").WithDetail("field", "date")
	}
	for i, item := range in.Items {
		if id.IsNil(item.ProductID) {
			return apperror.NewValidation("product id is required").WithDetail("index", i)
		}
		if item.Quantity <= 0 {
			return apperror.NewValidation("quantity must be positive").WithDetail("index", i)
		}
		if item.UnitPrice != nil && item.UnitPrice.IsNegative() {
			return apperror.NewValidation("unit price must not be negative").WithDetail("index", i)
		}
	}
	return nil
}

// groupByOwner resolves every product's partner from the product master and
// buckets the items. Groups are ordered by partner id so that concurrent
// requests take partner-day locks in the same order.
func (s *Service) groupByOwner(ctx context.Context, in RegisterInput) ([]group, error) {
	productIDs := make([]id.ID, 0, len(in.Items))
	seen := make(map[id.ID]bool, len(in.Items))
	for _, item := range in.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			productIDs = append(productIDs, item.ProductID)
		}
	}

	owners, err := s.repo.ResolveOwners(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve owners: %w", err)
	}
	ownerOf := make(map[id.ID]id.ID, len(owners))
	for _, o := range owners {
		if o.PartnerID != nil && !id.IsNil(*o.PartnerID) {
			ownerOf[o.ProductID] = *o.PartnerID
		}
	}

	byPartner := make(map[id.ID]*group)
	for _, item := range in.Items {
		partnerID, ok := ownerOf[item.ProductID]
		if !ok {
			return nil, apperror.NewPartnerNotFound(item.ProductID)
		}
		if in.PartnerHint != nil && *in.PartnerHint != partnerID {
			logger.Warn(ctx, "partner hint differs from product owner",
				"product_id", item.ProductID,
				"hint", *in.PartnerHint,
				"owner", partnerID,
			)
		}
		g, ok := byPartner[partnerID]
		if !ok {
			g = &group{partnerID: partnerID}
			byPartner[partnerID] = g
		}
		g.items = append(g.items, item)
	}

	groups := make([]group, 0, len(byPartner))
	for _, g := range byPartner {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].partnerID.String() < groups[j].partnerID.String()
	})
	return groups, nil
}

func (s *Service) registerGroup(ctx context.Context, g group, in RegisterInput, date time.Time, actor string) (GroupResult, error) {
	if err := s.repo.LockPartnerDay(ctx, g.partnerID, date); err != nil {
		return GroupResult{}, fmt.Errorf("lock partner day: %w", err)
	}

	header, created, err := s.findOrCreate(ctx, g.partnerID, date, in.Remarks, actor)
	if err != nil {
		return GroupResult{}, err
	}
	kind := in.Type.MovementKind()
	rule, _ := ledger.RuleFor(kind)
	added := decimal.Zero

	for _, req := range g.items {
		unitPrice, err := s.resolveUnitPrice(ctx, in.Type, req, date)
		if err != nil {
			return GroupResult{}, err
		}

		item := &Item{
			ID:           id.New(),
			ShipmentID:   header.ID,
			ProductID:    req.ProductID,
			Quantity:     req.Quantity,
			UnitPrice:    unitPrice,
			LineTotal:    unitPrice.Mul(decimal.NewFromInt(req.Quantity)),
			MovementType: kind,
		}
		if err := s.repo.AddItem(ctx, item); err != nil {
			return GroupResult{}, fmt.Errorf("add shipment item: %w", err)
		}
		added = added.Add(item.LineTotal)

		meta := ledger.Metadata{Reason: "shipment " + header.Number}
		if in.Type != TypeStandard {
			meta.DefectReason = in.Reason
		} else if in.Reason != "" {
			meta.Reason = in.Reason
		}
		if _, err := s.ledger.Apply(ctx, ledger.ApplyInput{
			ProductID: req.ProductID,
			Kind:      kind,
			Quantity:  rule.Signed(req.Quantity),
			Metadata:  meta,
		}); err != nil {
			return GroupResult{}, err
		}
	}

	total := added
	if !created {
		total = header.TotalAmount.Add(added)
	}
	if err := s.repo.SetTotal(ctx, header.ID, total); err != nil {
		return GroupResult{}, fmt.Errorf("update shipment total: %w", err)
	}

	gr := GroupResult{
		ShipmentID:  header.ID,
		Number:      header.Number,
		PartnerID:   g.partnerID,
		Created:     created,
		ItemCount:   len(g.items),
		AddedAmount: added,
		TotalAmount: total,
	}
	if err := s.events.Publish(ctx, events.Event{
		AggregateType: events.AggregateShipment,
		AggregateID:   header.ID,
		EventType:     events.ShipmentUpdated,
		Payload:       gr,
	}); err != nil {
		return GroupResult{}, err
	}
	return gr, nil
}

func (s *Service) findOrCreate(ctx context.Context, partnerID id.ID, date time.Time, remarks, actor string) (*Shipment, bool, error) {
	existing, err := s.repo.FindOpenForUpdate(ctx, partnerID, date)
	if err == nil {
		return existing, false, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, false, fmt.Errorf("find shipment: %w", err)
	}

	number, err := s.numerator.GetNextNumber(ctx, s.numbering, date)
	if err != nil {
		return nil, false, fmt.Errorf("shipment number: %w", err)
	}

	header := &Shipment{
		ID:           id.New(),
		Number:       number,
		PartnerID:    partnerID,
		ShipmentDate: date,
		Status:       StatusConfirmed,
		TotalAmount:  decimal.Zero,
		CreatedBy:    actor,
		CreatedAt:    time.Now().UTC(),
	}
	if remarks != "" {
		header.Remarks = &remarks
	}
	if err := s.repo.Create(ctx, header); err != nil {
		return nil, false, fmt.Errorf("create shipment: %w", err)
	}
	return header, true, nil
}

// resolveUnitPrice applies the pricing rule: free returns cost nothing, a
// nonzero caller price wins, otherwise the price history decides.
func (s *Service) resolveUnitPrice(ctx context.Context, t Type, req RequestItem, date time.Time) (decimal.Decimal, error) {
	if t == TypeReturnFree {
		return decimal.Zero, nil
	}
	if req.UnitPrice != nil && !req.UnitPrice.IsZero() {
		return *req.UnitPrice, nil
	}
	p, err := s.prices.UnitPriceOn(ctx, req.ProductID, date)
	if err != nil {
		return decimal.Zero, fmt.Errorf("resolve price: %w", err)
	}
	return p, nil
}

func registerMessage(partners int) string {
	if partners == 1 {
		return "Shipment registered for 1 partner"
	}
	return fmt.Sprintf("Shipments registered for %d partners", partners)
}

// Cancel deletes a delivery note. Each line credits back the counter its
// movement depleted and leaves a cancel marker in the ledger; the original
// shipping entries stay. Invoiced shipments cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, shipmentID id.ID) error {
	ctx, span := tracer.Start(ctx, "shipment.Cancel")
	defer span.End()

	if _, err := audit.RequireActor(ctx); err != nil {
		return err
	}

	var cancelled *Shipment
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sh, err := s.repo.GetForUpdate(ctx, shipmentID)
		if err != nil {
			return err
		}
		if sh.InvoiceID != nil {
			return apperror.NewBusinessRule(apperror.CodeShipmentInvoiced, "Shipment is already invoiced").
				WithDetail("shipment_id", sh.ID).
				WithDetail("invoice_id", *sh.InvoiceID)
		}

		for _, item := range sh.Items {
			if _, err := s.ledger.Apply(ctx, ledger.ApplyInput{
				ProductID: item.ProductID,
				Kind:      CancelKind(item.MovementType),
				Quantity:  item.Quantity,
				Metadata:  ledger.Metadata{Reason: "cancel shipment " + sh.Number},
			}); err != nil {
				return err
			}
		}

		if err := s.repo.Delete(ctx, sh.ID); err != nil {
			return fmt.Errorf("delete shipment: %w", err)
		}

		rec, err := audit.NewRecord("shipment", sh.ID, audit.ActionCancel, sh)
		if err != nil {
			return err
		}
		if err := s.audit.Record(ctx, rec); err != nil {
			return fmt.Errorf("audit cancellation: %w", err)
		}

		cancelled = sh
		return s.events.Publish(ctx, events.Event{
			AggregateType: events.AggregateShipment,
			AggregateID:   sh.ID,
			EventType:     events.ShipmentCancelled,
			Payload:       sh,
		})
	})
	if err != nil {
		span.RecordError(err)
		return apperror.Wrap(err)
	}

	logger.Info(ctx, "shipment cancelled",
		"shipment_id", cancelled.ID,
		"partner_id", cancelled.PartnerID,
		"items", len(cancelled.Items),
	)
	return nil
}

// Get returns a shipment with its items.
func (s *Service) Get(ctx context.Context, shipmentID id.ID) (*Shipment, error) {
	sh, err := s.repo.Get(ctx, shipmentID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return sh, nil
}

// List returns shipment headers, newest date first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Shipment, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 50
	}
	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	return items, nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
