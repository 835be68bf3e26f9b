package enums

import (
	"fmt"
	"strings"
)

// SubOrderStatus tracks a vendor sub-order through fulfillment.
type SubOrderStatus string

const (
	SubOrderStatusPending    SubOrderStatus = "pending"
	SubOrderStatusProcessing SubOrderStatus = "processing"
	SubOrderStatusShipped    SubOrderStatus = "shipped"
	SubOrderStatusDelivered  SubOrderStatus = "delivered"
	SubOrderStatusCancelled  SubOrderStatus = "cancelled"
)

// subOrderStatusRank orders the forward chain; cancelled sits outside it.
var subOrderStatusRank = map[SubOrderStatus]int{
	SubOrderStatusPending:    0,
	SubOrderStatusProcessing: 1,
	SubOrderStatusShipped:    2,
	SubOrderStatusDelivered:  3,
}

// IsValid reports whether the status is a known value.
func (s SubOrderStatus) IsValid() bool {
	switch s {
	case SubOrderStatusPending, SubOrderStatusProcessing, SubOrderStatusShipped,
		SubOrderStatusDelivered, SubOrderStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s SubOrderStatus) IsTerminal() bool {
	return s == SubOrderStatusDelivered || s == SubOrderStatusCancelled
}

// Rank returns the position in the forward chain and whether the status is on it.
func (s SubOrderStatus) Rank() (int, bool) {
	rank, ok := subOrderStatusRank[s]
	return rank, ok
}

// ParseSubOrderStatus normalizes and validates a raw status string.
func ParseSubOrderStatus(raw string) (SubOrderStatus, error) {
	status := SubOrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.IsValid() {
		return "", fmt.Errorf("unknown sub-order status %q", raw)
	}
	return status, nil
}
