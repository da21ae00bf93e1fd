package transform

import "github.com/dvloznov/commercepulse/internal/events"

// Category is the fact table a raw event belongs to.
type Category int

const (
	Unclassified Category = iota
	CategoryOrder
	CategoryPayment
	CategoryRefund
)

func (c Category) String() string {
	switch c {
	case CategoryOrder:
		return "order"
	case CategoryPayment:
		return "payment"
	case CategoryRefund:
		return "refund"
	default:
		return "unclassified"
	}
}

// EffectiveOrderID returns the top-level order_id, else payload.order_id.
func EffectiveOrderID(e events.RawEvent) (string, bool) {
	return events.ResolveString(e, orderIDChain)
}

// Classify assigns e to at most one category. Checks run most specific
// first: refund, then payment, then a bare order.
func Classify(e events.RawEvent) Category {
	_, hasOrder := EffectiveOrderID(e)
	return classify(e, hasOrder)
}

func classify(e events.RawEvent, hasOrderID bool) Category {
	switch {
	case e.HasAny(refundMarkers):
		return CategoryRefund
	case e.HasAny(paymentMarkers):
		return CategoryPayment
	case hasOrderID && !e.HasAny(orderExclusion):
		return CategoryOrder
	default:
		return Unclassified
	}
}
