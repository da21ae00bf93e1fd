package transform

import "github.com/dvloznov/commercepulse/internal/events"

// Reconciler turns raw events into the three fact tables.
// The zero value is not usable; construct with NewReconciler.
type Reconciler struct {
	policy Policy
	synth  SyntheticID
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithSyntheticID replaces the positional fallback identifier generator.
func WithSyntheticID(fn SyntheticID) Option {
	return func(r *Reconciler) {
		if fn != nil {
			r.synth = fn
		}
	}
}

// NewReconciler creates a Reconciler. Empty policy fields take the package defaults.
func NewReconciler(policy Policy, opts ...Option) *Reconciler {
	r := &Reconciler{
		policy: policy.withDefaults(),
		synth:  SequenceID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile classifies every record and extracts one fact row per
// classified record, preserving input order within each table.
// It is pure: the input is not modified and no state survives the call.
func (r *Reconciler) Reconcile(records []events.RawEvent) Facts {
	out := Facts{
		Orders:   []OrderFact{},
		Payments: []PaymentFact{},
		Refunds:  []RefundFact{},
	}

	for i, e := range records {
		c := classified{event: e, seq: i}
		if id, ok := EffectiveOrderID(e); ok {
			c.orderID = &id
		}
		c.category = classify(e, c.orderID != nil)

		switch c.category {
		case CategoryOrder:
			out.Orders = append(out.Orders, r.policy.extractOrder(c))
		case CategoryPayment:
			out.Payments = append(out.Payments, r.policy.extractPayment(c, r.synth))
		case CategoryRefund:
			out.Refunds = append(out.Refunds, r.policy.extractRefund(c, r.synth))
		default:
			out.Excluded++
		}
	}

	return out
}

// Reconcile runs a pass with the default policy.
func Reconcile(records []events.RawEvent) Facts {
	return NewReconciler(DefaultPolicy()).Reconcile(records)
}
