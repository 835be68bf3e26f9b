package enums

// PaymentSessionStatus is the lifecycle of a hosted-checkout session record.
// The pending -> completed edge is the single idempotency boundary for
// payment verification: it is crossed at most once.
type PaymentSessionStatus string

const (
	PaymentSessionStatusPending   PaymentSessionStatus = "pending"
	PaymentSessionStatusCompleted PaymentSessionStatus = "completed"
	PaymentSessionStatusFailed    PaymentSessionStatus = "failed"
	PaymentSessionStatusExpired   PaymentSessionStatus = "expired"
)
