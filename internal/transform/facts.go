package transform

// OrderFact is one row of fact_orders.
type OrderFact struct {
	OrderID       string
	CustomerEmail *string // nil when neither email field is present
	VendorID      string
	OrderDate     *string
	OrderAmount   float64
}

// PaymentFact is one row of fact_payments.
type PaymentFact struct {
	PaymentID  string
	OrderID    *string
	VendorID   string
	AmountPaid float64
	Status     string
	PaidAt     *string
}

// RefundFact is one row of fact_refunds.
type RefundFact struct {
	RefundID       string
	OrderID        *string
	VendorID       string
	AmountRefunded float64
	RefundedAt     *string
	Reason         *string
}

// Facts is the output of one reconciliation pass. The slices are never nil.
type Facts struct {
	Orders   []OrderFact
	Payments []PaymentFact
	Refunds  []RefundFact

	// Excluded counts records that matched no category.
	Excluded int
}

// Total returns the number of fact rows across all tables.
func (f *Facts) Total() int {
	return len(f.Orders) + len(f.Payments) + len(f.Refunds)
}
