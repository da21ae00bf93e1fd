package transform

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/dvloznov/commercepulse/internal/events"
)

func strPtr(s string) *string { return &s }

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		event events.RawEvent
		want  Category
	}{
		{
			name:  "bare order",
			event: events.RawEvent{"order_id": "O1", "amount": 100},
			want:  CategoryOrder,
		},
		{
			name:  "nested order id",
			event: events.RawEvent{"payload": map[string]interface{}{"order_id": "O2"}},
			want:  CategoryOrder,
		},
		{
			name:  "refund beats order",
			event: events.RawEvent{"order_id": "O1", "refund_reason": "damaged"},
			want:  CategoryRefund,
		},
		{
			name:  "refund beats payment",
			event: events.RawEvent{"transaction_id": "T1", "refundAmount": 5},
			want:  CategoryRefund,
		},
		{
			name:  "payment marker beats order id",
			event: events.RawEvent{"order_id": "O1", "transaction_id": "T1", "amountPaid": 99},
			want:  CategoryPayment,
		},
		{
			name:  "txRef alone is a payment",
			event: events.RawEvent{"txRef": "X"},
			want:  CategoryPayment,
		},
		{
			name:  "order with payment_id but no payment marker",
			event: events.RawEvent{"order_id": "O1", "payment_id": "P1"},
			want:  Unclassified,
		},
		{
			name:  "order with refund_id but no refund marker",
			event: events.RawEvent{"order_id": "O1", "refund_id": "R1"},
			want:  Unclassified,
		},
		{
			name:  "null markers are absent",
			event: events.RawEvent{"order_id": "O1", "refunded_at": nil, "paid_at": nil},
			want:  CategoryOrder,
		},
		{
			name:  "nothing recognisable",
			event: events.RawEvent{"event_id": "e9", "shipment_id": "S1"},
			want:  Unclassified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.event); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReconcile_OrderScenario(t *testing.T) {
	facts := Reconcile([]events.RawEvent{
		{"event_id": "e1", "order_id": "O1", "amount": 100, "vendor": "v1"},
	})

	if len(facts.Payments) != 0 || len(facts.Refunds) != 0 {
		t.Fatalf("expected only orders, got %+v", facts)
	}
	want := []OrderFact{{OrderID: "O1", VendorID: "v1", OrderAmount: 100}}
	if !reflect.DeepEqual(facts.Orders, want) {
		t.Errorf("Orders = %+v, want %+v", facts.Orders, want)
	}
}

func TestReconcile_PaymentScenario(t *testing.T) {
	facts := Reconcile([]events.RawEvent{
		{"event_id": "e2", "order_id": "O1", "transaction_id": "T1", "amountPaid": 99},
	})

	if len(facts.Orders) != 0 {
		t.Fatalf("payment classified as order: %+v", facts.Orders)
	}
	want := []PaymentFact{{
		PaymentID:  "T1",
		OrderID:    strPtr("O1"),
		VendorID:   DefaultUnknownVendor,
		AmountPaid: 99,
		Status:     DefaultPaymentStatus,
	}}
	if !reflect.DeepEqual(facts.Payments, want) {
		t.Errorf("Payments = %+v, want %+v", facts.Payments, want)
	}
}

func TestReconcile_NestedScenario(t *testing.T) {
	facts := Reconcile([]events.RawEvent{
		{"event_id": "e3", "payload": map[string]interface{}{"order_id": "O2", "amount": 42}},
	})

	if len(facts.Orders) != 1 {
		t.Fatalf("Orders = %+v, want one row", facts.Orders)
	}
	got := facts.Orders[0]
	if got.OrderID != "O2" || got.OrderAmount != 42 {
		t.Errorf("order = %+v, want order_id O2, amount 42", got)
	}
}

func TestReconcile_Defaults(t *testing.T) {
	facts := Reconcile([]events.RawEvent{
		{"order_id": "O1"},
		{"paid_at": "2024-01-01T00:00:00Z"},
		{"refund_reason": "late"},
	})

	if facts.Orders[0].OrderAmount != 0 || facts.Orders[0].VendorID != "unknown_vendor" {
		t.Errorf("order defaults = %+v", facts.Orders[0])
	}
	if facts.Payments[0].AmountPaid != 0 || facts.Payments[0].VendorID != "unknown_vendor" {
		t.Errorf("payment defaults = %+v", facts.Payments[0])
	}
	if facts.Refunds[0].AmountRefunded != 0 || facts.Refunds[0].VendorID != "unknown_vendor" {
		t.Errorf("refund defaults = %+v", facts.Refunds[0])
	}
}

func TestReconcile_ColumnChains(t *testing.T) {
	records := []events.RawEvent{
		{
			"order_id":   "O1",
			"buyerEmail": "b@example.com",
			"region":     "eu-west",
			"created":    "2024-02-01",
			"payload":    map[string]interface{}{"total_amount": nil, "price": 15.5},
		},
		{
			"paidAt":  "2024-02-02",
			"txn":     "TX-9",
			"status":  "failed",
			"payload": map[string]interface{}{"order_id": "O1", "amount_paid": 15.5},
		},
		{
			"event_id":   "e-ref",
			"refundedAt": "2024-02-03",
			"reason":     "customer_request",
			"vendor_id":  "vendor_beta",
			"payload":    map[string]interface{}{"amount_refunded": 7.25},
		},
	}

	facts := Reconcile(records)

	wantOrder := OrderFact{
		OrderID:       "O1",
		CustomerEmail: strPtr("b@example.com"),
		VendorID:      "eu-west",
		OrderDate:     strPtr("2024-02-01"),
		OrderAmount:   15.5,
	}
	if !reflect.DeepEqual(facts.Orders, []OrderFact{wantOrder}) {
		t.Errorf("Orders = %+v, want %+v", facts.Orders, wantOrder)
	}

	wantPayment := PaymentFact{
		PaymentID:  "TX-9",
		OrderID:    strPtr("O1"),
		VendorID:   DefaultUnknownVendor,
		AmountPaid: 15.5,
		Status:     "failed",
		PaidAt:     strPtr("2024-02-02"),
	}
	if !reflect.DeepEqual(facts.Payments, []PaymentFact{wantPayment}) {
		t.Errorf("Payments = %+v, want %+v", facts.Payments, wantPayment)
	}

	wantRefund := RefundFact{
		RefundID:       "e-ref",
		VendorID:       "vendor_beta",
		AmountRefunded: 7.25,
		RefundedAt:     strPtr("2024-02-03"),
		Reason:         strPtr("customer_request"),
	}
	if !reflect.DeepEqual(facts.Refunds, []RefundFact{wantRefund}) {
		t.Errorf("Refunds = %+v, want %+v", facts.Refunds, wantRefund)
	}
}

func TestReconcile_SyntheticIDs(t *testing.T) {
	records := []events.RawEvent{
		{"shipment_id": "S1"},
		{"paid_at": "2024-01-01"},
		{"refund_reason": "late"},
	}

	facts := Reconcile(records)
	if facts.Payments[0].PaymentID != "1" {
		t.Errorf("PaymentID = %q, want batch position 1", facts.Payments[0].PaymentID)
	}
	if facts.Refunds[0].RefundID != "2" {
		t.Errorf("RefundID = %q, want batch position 2", facts.Refunds[0].RefundID)
	}

	custom := NewReconciler(DefaultPolicy(), WithSyntheticID(func(seq int) string {
		return "synthetic-" + SequenceID(seq)
	})).Reconcile(records)
	if custom.Payments[0].PaymentID != "synthetic-1" {
		t.Errorf("PaymentID = %q, want synthetic-1", custom.Payments[0].PaymentID)
	}
}

func TestReconcile_Policy(t *testing.T) {
	r := NewReconciler(Policy{UnknownVendor: "n/a", PaymentStatus: "unknown"})
	facts := r.Reconcile([]events.RawEvent{{"transaction_id": "T1"}})

	got := facts.Payments[0]
	if got.VendorID != "n/a" || got.Status != "unknown" {
		t.Errorf("payment = %+v, want policy defaults", got)
	}
}

func TestReconcile_PartitionCompleteness(t *testing.T) {
	records := []events.RawEvent{
		{"order_id": "O1"},
		{"order_id": "O1", "transaction_id": "T1"},
		{"order_id": "O1", "refundAmount": 3},
		{"order_id": "O2", "payment_id": "P2"},
		{"event_id": "ship"},
		{},
		{"payload": "garbage"},
	}

	facts := Reconcile(records)
	if got := facts.Total() + facts.Excluded; got != len(records) {
		t.Errorf("rows %d + excluded %d != %d records", facts.Total(), facts.Excluded, len(records))
	}
	if facts.Excluded != 4 {
		t.Errorf("Excluded = %d, want 4", facts.Excluded)
	}
}

func TestReconcile_EmptyInput(t *testing.T) {
	facts := Reconcile(nil)
	if facts.Orders == nil || facts.Payments == nil || facts.Refunds == nil {
		t.Fatal("expected empty, non-nil tables")
	}
	if facts.Total() != 0 || facts.Excluded != 0 {
		t.Errorf("facts = %+v, want empty", facts)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	records := []events.RawEvent{
		{"event_id": "e1", "order_id": "O1", "amount": 10.0},
		{"event_id": "e2", "txRef": "R", "payload": map[string]interface{}{"amount": 4.0}},
		{"event_id": "e1", "order_id": "O1", "amount": 10.0},
	}

	r := NewReconciler(DefaultPolicy())
	first := r.Reconcile(records)
	second := r.Reconcile(records)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Reconcile not idempotent:\n%+v\n%+v", first, second)
	}
	if len(first.Orders) != 2 {
		t.Errorf("duplicate event ids should both be kept, got %d orders", len(first.Orders))
	}
}

func TestReconcile_PreservesOrder(t *testing.T) {
	facts := Reconcile([]events.RawEvent{
		{"order_id": "A"},
		{"transaction_id": "T"},
		{"order_id": "B"},
		{"order_id": "C"},
	})

	var ids []string
	for _, o := range facts.Orders {
		ids = append(ids, o.OrderID)
	}
	if !reflect.DeepEqual(ids, []string{"A", "B", "C"}) {
		t.Errorf("order ids = %v, want [A B C]", ids)
	}
}

func TestReconcile_AmountsAreFinite(t *testing.T) {
	inputs := []struct {
		name  string
		value interface{}
	}{
		{"NaN string", "NaN"},
		{"Infinity string", "Infinity"},
		{"lower inf string", "inf"},
		{"out of range string", "1e400"},
		{"positive inf float", math.Inf(1)},
		{"negative inf float", math.Inf(-1)},
		{"inf json number", json.Number("Inf")},
	}

	for _, in := range inputs {
		t.Run(in.name, func(t *testing.T) {
			facts := Reconcile([]events.RawEvent{
				{"order_id": "O1", "amount": in.value},
				{"transaction_id": "T1", "amountPaid": in.value},
				{"refundAmount": in.value},
			})
			if len(facts.Orders) != 1 || len(facts.Payments) != 1 || len(facts.Refunds) != 1 {
				t.Fatalf("facts = %+v, want one row per table", facts)
			}

			amounts := map[string]float64{
				"order_amount":    facts.Orders[0].OrderAmount,
				"amount_paid":     facts.Payments[0].AmountPaid,
				"amount_refunded": facts.Refunds[0].AmountRefunded,
			}
			for col, v := range amounts {
				if v != 0 {
					t.Errorf("%s = %v, want 0", col, v)
				}
			}
		})
	}
}
