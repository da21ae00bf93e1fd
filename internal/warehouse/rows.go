package warehouse

import (
	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/commercepulse/internal/transform"
)

// Fact table names in the analytics dataset.
const (
	OrdersTable   = "fact_orders"
	PaymentsTable = "fact_payments"
	RefundsTable  = "fact_refunds"
)

// Rows are encoded as newline-delimited JSON for load jobs, so the json tags
// must match the bigquery column names.

type OrderRow struct {
	OrderID       string              `bigquery:"order_id" json:"order_id"`             // REQUIRED
	CustomerEmail bigquery.NullString `bigquery:"customer_email" json:"customer_email"` // NULLABLE
	VendorID      string              `bigquery:"vendor_id" json:"vendor_id"`           // REQUIRED
	OrderDate     bigquery.NullString `bigquery:"order_date" json:"order_date"`         // NULLABLE, producer format
	OrderAmount   float64             `bigquery:"order_amount" json:"order_amount"`     // REQUIRED
}

type PaymentRow struct {
	PaymentID  string              `bigquery:"payment_id" json:"payment_id"`   // REQUIRED
	OrderID    bigquery.NullString `bigquery:"order_id" json:"order_id"`       // NULLABLE
	VendorID   string              `bigquery:"vendor_id" json:"vendor_id"`     // REQUIRED
	AmountPaid float64             `bigquery:"amount_paid" json:"amount_paid"` // REQUIRED
	Status     string              `bigquery:"status" json:"status"`           // REQUIRED
	PaidAt     bigquery.NullString `bigquery:"paid_at" json:"paid_at"`         // NULLABLE
}

type RefundRow struct {
	RefundID       string              `bigquery:"refund_id" json:"refund_id"`             // REQUIRED
	OrderID        bigquery.NullString `bigquery:"order_id" json:"order_id"`               // NULLABLE
	VendorID       string              `bigquery:"vendor_id" json:"vendor_id"`             // REQUIRED
	AmountRefunded float64             `bigquery:"amount_refunded" json:"amount_refunded"` // REQUIRED
	RefundedAt     bigquery.NullString `bigquery:"refunded_at" json:"refunded_at"`         // NULLABLE
	Reason         bigquery.NullString `bigquery:"reason" json:"reason"`                   // NULLABLE
}

func nullString(s *string) bigquery.NullString {
	if s == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *s, Valid: true}
}

// OrderRows maps order facts to rows.
func OrderRows(facts []transform.OrderFact) []*OrderRow {
	rows := make([]*OrderRow, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, &OrderRow{
			OrderID:       f.OrderID,
			CustomerEmail: nullString(f.CustomerEmail),
			VendorID:      f.VendorID,
			OrderDate:     nullString(f.OrderDate),
			OrderAmount:   f.OrderAmount,
		})
	}
	return rows
}

// PaymentRows maps payment facts to rows.
func PaymentRows(facts []transform.PaymentFact) []*PaymentRow {
	rows := make([]*PaymentRow, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, &PaymentRow{
			PaymentID:  f.PaymentID,
			OrderID:    nullString(f.OrderID),
			VendorID:   f.VendorID,
			AmountPaid: f.AmountPaid,
			Status:     f.Status,
			PaidAt:     nullString(f.PaidAt),
		})
	}
	return rows
}

// RefundRows maps refund facts to rows.
func RefundRows(facts []transform.RefundFact) []*RefundRow {
	rows := make([]*RefundRow, 0, len(facts))
	for _, f := range facts {
		rows = append(rows, &RefundRow{
			RefundID:       f.RefundID,
			OrderID:        nullString(f.OrderID),
			VendorID:       f.VendorID,
			AmountRefunded: f.AmountRefunded,
			RefundedAt:     nullString(f.RefundedAt),
			Reason:         nullString(f.Reason),
		})
	}
	return rows
}
