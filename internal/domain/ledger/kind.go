package ledger

// Kind is the movement_type of a ledger entry.
type Kind string

const (
	KindReceiving           Kind = "receiving"
	KindProductionRaw       Kind = "production_raw"
	KindProductionFinished  Kind = "production_finished"
	KindProductionDefective Kind = "production_defective"
	KindShipping            Kind = "shipping"
	KindReturnBillable      Kind = "return_billable"
	KindReturnFree          Kind = "return_free"
	KindRepair              Kind = "repair"
	KindDispose             Kind = "dispose"
	KindShippingCancel      Kind = "shipping_cancel"
	KindReturnCancel        Kind = "return_cancel"
	KindAdjustmentRaw       Kind = "adjustment_raw"
	KindAdjustmentFinished  Kind = "adjustment_finished"
	KindAdjustmentDefective Kind = "adjustment_defective"
)

// Counter names one of the three per-product stock totals.
type Counter string

const (
	CounterRaw       Counter = "raw"
	CounterFinished  Counter = "finished"
	CounterDefective Counter = "defective"
)

// AllCounters lists every counter in column order.
var AllCounters = []Counter{CounterRaw, CounterFinished, CounterDefective}

// Sign is the required sign of quantity_change for a kind.
type Sign int

const (
	SignAny      Sign = 0
	SignPositive Sign = 1
	SignNegative Sign = -1
)

// Delta is a signed change to one counter.
type Delta struct {
	Counter Counter
	Amount  int64
}

// Rule describes how one movement kind touches the counters.
//
// Counter receives quantity_change as is. When Paired is set, the paired
// counter receives -quantity_change from the same entry (repair).
type Rule struct {
	Kind    Kind
	Counter Counter
	Sign    Sign
	Paired  Counter
	reverse ReversalStrategy
}

// Deltas returns the counter changes produced by applying an entry.
func (r Rule) Deltas(quantityChange int64) []Delta {
	d := []Delta{{Counter: r.Counter, Amount: quantityChange}}
	if r.Paired != "" {
		d = append(d, Delta{Counter: r.Paired, Amount: -quantityChange})
	}
	return d
}

// Contribution returns the multiplier an entry of this kind contributes to c:
// 1, -1 or 0.
func (r Rule) Contribution(c Counter) int64 {
	switch {
	case c == r.Counter:
		return 1
	case r.Paired != "" && c == r.Paired:
		return -1
	}
	return 0
}

// Signed turns a non-negative magnitude into the quantity_change stored for
// this kind. Kinds without a fixed sign return the magnitude unchanged.
func (r Rule) Signed(magnitude int64) int64 {
	if r.Sign == SignNegative {
		return -magnitude
	}
	return magnitude
}

// ReversalStrategy computes the counter changes that undo an entry.
type ReversalStrategy interface {
	Reverse(quantityChange int64) []Delta
}

// invertSingle undoes a single-counter entry.
type invertSingle struct {
	counter Counter
}

func (s invertSingle) Reverse(quantityChange int64) []Delta {
	return []Delta{{Counter: s.counter, Amount: -quantityChange}}
}

// invertRepair undoes a repair: quantity_change only records the finished
// gain, the defective loss is implied by the kind.
type invertRepair struct{}

func (invertRepair) Reverse(quantityChange int64) []Delta {
	return []Delta{
		{Counter: CounterFinished, Amount: -quantityChange},
		{Counter: CounterDefective, Amount: quantityChange},
	}
}

var rules = map[Kind]Rule{}

func register(kind Kind, counter Counter, sign Sign) {
	rules[kind] = Rule{Kind: kind, Counter: counter, Sign: sign, reverse: invertSingle{counter: counter}}
}

func init() {
	register(KindReceiving, CounterRaw, SignPositive)
	register(KindProductionRaw, CounterRaw, SignNegative)
	register(KindProductionFinished, CounterFinished, SignPositive)
	register(KindProductionDefective, CounterDefective, SignPositive)
	register(KindShipping, CounterFinished, SignNegative)
	register(KindReturnBillable, CounterDefective, SignNegative)
	register(KindReturnFree, CounterDefective, SignNegative)
	register(KindDispose, CounterDefective, SignNegative)
	register(KindShippingCancel, CounterFinished, SignPositive)
	register(KindReturnCancel, CounterDefective, SignPositive)
	register(KindAdjustmentRaw, CounterRaw, SignAny)
	register(KindAdjustmentFinished, CounterFinished, SignAny)
	register(KindAdjustmentDefective, CounterDefective, SignAny)

	rules[KindRepair] = Rule{
		Kind:    KindRepair,
		Counter: CounterFinished,
		Sign:    SignPositive,
		Paired:  CounterDefective,
		reverse: invertRepair{},
	}
}

// RuleFor looks up the rule for kind.
func RuleFor(kind Kind) (Rule, bool) {
	r, ok := rules[kind]
	return r, ok
}

// ReversalFor returns how to undo an entry of kind. Kinds without a rule
// cannot be reversed.
func ReversalFor(kind Kind) (ReversalStrategy, bool) {
	r, ok := rules[kind]
	if !ok || r.reverse == nil {
		return nil, false
	}
	return r.reverse, true
}

// Rules returns every known rule. Order is unspecified.
func Rules() []Rule {
	out := make([]Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, r)
	}
	return out
}

// AdjustmentKind returns the adjustment kind that corrects c.
func AdjustmentKind(c Counter) Kind {
	switch c {
	case CounterRaw:
		return KindAdjustmentRaw
	case CounterFinished:
		return KindAdjustmentFinished
	default:
		return KindAdjustmentDefective
	}
}

// IsValid reports whether kind has a rule.
func (k Kind) IsValid() bool {
	_, ok := rules[k]
	return ok
}
