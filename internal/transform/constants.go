package transform

// Fallback values used when no candidate field resolves.
// Policy can override them per run; see config.Policy.
const (
	// DefaultUnknownVendor is the vendor_id assigned when a record carries no vendor signal.
	DefaultUnknownVendor = "unknown_vendor"

	// DefaultPaymentStatus is assumed for payments that report no status.
	DefaultPaymentStatus = "success"

	// DefaultAmount is the monetary value used when no amount field resolves.
	DefaultAmount = 0.0
)

// Policy holds the reconciliation fallbacks.
type Policy struct {
	UnknownVendor string
	PaymentStatus string
	Amount        float64
}

// DefaultPolicy returns the policy built from the package defaults.
func DefaultPolicy() Policy {
	return Policy{
		UnknownVendor: DefaultUnknownVendor,
		PaymentStatus: DefaultPaymentStatus,
		Amount:        DefaultAmount,
	}
}

// withDefaults fills empty string fields from the package defaults.
func (p Policy) withDefaults() Policy {
	if p.UnknownVendor == "" {
		p.UnknownVendor = DefaultUnknownVendor
	}
	if p.PaymentStatus == "" {
		p.PaymentStatus = DefaultPaymentStatus
	}
	return p
}
