package transform

import "github.com/dvloznov/commercepulse/internal/events"

// Fallback chains, highest priority first. Producers disagree on naming, so
// every output column is read through one of these.
var (
	orderIDChain = events.Paths("order_id", "payload.order_id")

	refundMarkers  = events.Paths("refunded_at", "refundedAt", "refundAmount", "refund_reason")
	paymentMarkers = events.Paths("paid_at", "paidAt", "amountPaid", "payment_status", "transaction_id", "txRef")
	orderExclusion = events.Paths("refund_id", "payment_id")

	vendorChain = events.Paths("vendor", "vendor_id", "region")

	orderEmailChain  = events.Paths("email", "buyerEmail")
	orderDateChain   = events.Paths("created_at", "created", "event_time")
	orderAmountChain = events.Paths(
		"amount", "totalAmount", "total",
		"payload.amount", "payload.total_amount", "payload.price",
	)

	paymentIDChain     = events.Paths("transaction_id", "txRef", "txn", "event_id")
	paymentAmountChain = events.Paths(
		"amountPaid",
		"amount", "totalAmount", "total",
		"payload.amount_paid", "payload.amount",
	)
	paymentStatusChain = events.Paths("payment_status", "status")
	paidAtChain        = events.Paths("paid_at", "paidAt")

	refundIDChain     = events.Paths("event_id")
	refundAmountChain = events.Paths("refundAmount", "payload.refund_amount", "payload.amount_refunded")
	refundedAtChain   = events.Paths("refunded_at", "refundedAt")
	refundReasonChain = events.Paths("refund_reason", "reason")
)
