package orders

import (
	"github.com/google/uuid"

	"github.com/mercaura/mercaura-backend/pkg/enums"
	pkgerrors "github.com/mercaura/mercaura-backend/pkg/errors"
)

// forwardNext encodes the single-step fulfillment chain. Cancellation is the
// only transition outside the chain and is handled separately.
var forwardNext = map[enums.SubOrderStatus]enums.SubOrderStatus{
	enums.SubOrderStatusPending:    enums.SubOrderStatusProcessing,
	enums.SubOrderStatusProcessing: enums.SubOrderStatusShipped,
	enums.SubOrderStatusShipped:    enums.SubOrderStatusDelivered,
}

// CanTransition reports whether current -> next is a legal move.
func CanTransition(current, next enums.SubOrderStatus) bool {
	if next == enums.SubOrderStatusCancelled {
		return IsCancellable(current)
	}
	return forwardNext[current] == next
}

// ValidateTransition rejects anything but the immediate next forward state,
// or cancellation from the cancellable window. The error carries both the
// current and the attempted state.
func ValidateTransition(current, next enums.SubOrderStatus) error {
	if CanTransition(current, next) {
		return nil
	}
	if next == enums.SubOrderStatusCancelled {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").
			WithDetails(map[string]any{
				"current":   current,
				"attempted": next,
			})
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "illegal status transition").
		WithDetails(map[string]any{
			"current":   current,
			"attempted": next,
		})
}

// IsCancellable reports whether a sub-order can still be cancelled.
func IsCancellable(current enums.SubOrderStatus) bool {
	return current == enums.SubOrderStatusPending || current == enums.SubOrderStatusProcessing
}

// Actor identifies the caller for scope checks.
type Actor struct {
	UserID   uuid.UUID
	Role     enums.MemberRole
	VendorID *uuid.UUID
}

// CanManageSubOrder is the vendor-scope predicate: admins manage everything,
// vendors only their own sub-orders, customers never manage fulfillment.
func CanManageSubOrder(actor Actor, subOrderVendorID uuid.UUID) bool {
	switch actor.Role {
	case enums.MemberRoleAdmin:
		return true
	case enums.MemberRoleVendor:
		return actor.VendorID != nil && *actor.VendorID == subOrderVendorID
	default:
		return false
	}
}

// CanCancelSubOrder: the owning customer, the owning vendor, or an admin.
func CanCancelSubOrder(actor Actor, parentUserID, subOrderVendorID uuid.UUID) bool {
	switch actor.Role {
	case enums.MemberRoleAdmin:
		return true
	case enums.MemberRoleVendor:
		return actor.VendorID != nil && *actor.VendorID == subOrderVendorID
	case enums.MemberRoleCustomer:
		return actor.UserID == parentUserID
	default:
		return false
	}
}
