package transform

import (
	"strconv"

	"github.com/dvloznov/commercepulse/internal/events"
)

// SyntheticID builds an identifier of last resort from a record's position
// in the batch. It is not a business identifier.
type SyntheticID func(seq int) string

// SequenceID renders the batch position as a decimal string.
func SequenceID(seq int) string {
	return strconv.Itoa(seq)
}

// classified is a raw event with the values derived once per record.
type classified struct {
	event    events.RawEvent
	seq      int
	orderID  *string
	category Category
}

func optString(e events.RawEvent, chain []events.FieldPath) *string {
	s, ok := events.ResolveString(e, chain)
	if !ok {
		return nil
	}
	return &s
}

func (p Policy) vendor(e events.RawEvent) string {
	return events.ResolveStringOr(e, vendorChain, p.UnknownVendor)
}

func (p Policy) extractOrder(r classified) OrderFact {
	f := OrderFact{
		CustomerEmail: optString(r.event, orderEmailChain),
		VendorID:      p.vendor(r.event),
		OrderDate:     optString(r.event, orderDateChain),
		OrderAmount:   events.ResolveFloat(r.event, orderAmountChain, p.Amount),
	}
	// Classification guarantees an order id for this category.
	if r.orderID != nil {
		f.OrderID = *r.orderID
	}
	return f
}

func (p Policy) extractPayment(r classified, synth SyntheticID) PaymentFact {
	id, ok := events.ResolveString(r.event, paymentIDChain)
	if !ok {
		id = synth(r.seq)
	}
	return PaymentFact{
		PaymentID:  id,
		OrderID:    r.orderID,
		VendorID:   p.vendor(r.event),
		AmountPaid: events.ResolveFloat(r.event, paymentAmountChain, p.Amount),
		Status:     events.ResolveStringOr(r.event, paymentStatusChain, p.PaymentStatus),
		PaidAt:     optString(r.event, paidAtChain),
	}
}

func (p Policy) extractRefund(r classified, synth SyntheticID) RefundFact {
	id, ok := events.ResolveString(r.event, refundIDChain)
	if !ok {
		id = synth(r.seq)
	}
	return RefundFact{
		RefundID:       id,
		OrderID:        r.orderID,
		VendorID:       p.vendor(r.event),
		AmountRefunded: events.ResolveFloat(r.event, refundAmountChain, p.Amount),
		RefundedAt:     optString(r.event, refundedAtChain),
		Reason:         optString(r.event, refundReasonChain),
	}
}
