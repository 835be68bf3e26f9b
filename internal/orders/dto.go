package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercaura/mercaura-backend/pkg/db/models"
	"github.com/mercaura/mercaura-backend/pkg/enums"
	"github.com/mercaura/mercaura-backend/pkg/types"
)

// LineItemDTO is one frozen order line.
type LineItemDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int       `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	TotalCents     int       `json:"total_cents"`
}

// SubOrderDTO is one vendor's slice of a parent order.
type SubOrderDTO struct {
	ID            uuid.UUID            `json:"id"`
	VendorID      uuid.UUID            `json:"vendor_id"`
	Status        enums.SubOrderStatus `json:"status"`
	SubtotalCents int                  `json:"subtotal_cents"`
	CancelledAt   *time.Time           `json:"cancelled_at,omitempty"`
	Items         []LineItemDTO        `json:"items"`
	CreatedAt     time.Time            `json:"created_at"`
}

// ParentOrderDTO is the customer view of an order with derived status.
type ParentOrderDTO struct {
	ID              uuid.UUID            `json:"id"`
	Status          enums.SubOrderStatus `json:"status"`
	PaymentMethod   enums.PaymentMethod  `json:"payment_method"`
	IsPaid          bool                 `json:"is_paid"`
	PaidAt          *time.Time           `json:"paid_at,omitempty"`
	ReceiptURL      *string              `json:"receipt_url,omitempty"`
	ShippingAddress types.Address        `json:"shipping_address"`
	TotalCents      int                  `json:"total_cents"`
	SubOrders       []SubOrderDTO        `json:"sub_orders"`
	CreatedAt       time.Time            `json:"created_at"`
}

// VendorSubOrderDTO is the vendor view: the sub-order plus the customer and
// shipping details pulled off the parent.
type VendorSubOrderDTO struct {
	SubOrderDTO
	ParentOrderID   uuid.UUID           `json:"parent_order_id"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	IsPaid          bool                `json:"is_paid"`
	CustomerName    string              `json:"customer_name"`
	CustomerEmail   string              `json:"customer_email"`
	ShippingAddress types.Address       `json:"shipping_address"`
}

// ParentOrderList is a cursor page of a customer's orders.
type ParentOrderList struct {
	Orders     []ParentOrderDTO `json:"orders"`
	NextCursor *string          `json:"next_cursor,omitempty"`
}

// VendorOrderList is a cursor page of a vendor's sub-orders.
type VendorOrderList struct {
	Orders     []VendorSubOrderDTO `json:"orders"`
	NextCursor *string             `json:"next_cursor,omitempty"`
}

func toLineItemDTO(item models.OrderLineItem) LineItemDTO {
	return LineItemDTO{
		ProductID:      item.ProductID,
		Name:           item.Name,
		UnitPriceCents: item.UnitPriceCents,
		Qty:            item.Qty,
		TotalCents:     item.TotalCents,
	}
}

func toSubOrderDTO(sub models.SubOrder) SubOrderDTO {
	dto := SubOrderDTO{
		ID:            sub.ID,
		VendorID:      sub.VendorID,
		Status:        sub.Status,
		SubtotalCents: sub.SubtotalCents,
		CancelledAt:   sub.CancelledAt,
		Items:         make([]LineItemDTO, 0, len(sub.Items)),
		CreatedAt:     sub.CreatedAt,
	}
	for _, item := range sub.Items {
		dto.Items = append(dto.Items, toLineItemDTO(item))
	}
	return dto
}

// ToParentOrderDTO maps the stored graph to the customer response shape.
func ToParentOrderDTO(order models.ParentOrder) ParentOrderDTO {
	dto := ParentOrderDTO{
		ID:              order.ID,
		Status:          order.Status(),
		PaymentMethod:   order.PaymentMethod,
		IsPaid:          order.IsPaid,
		PaidAt:          order.PaidAt,
		ReceiptURL:      order.ReceiptURL,
		ShippingAddress: order.ShippingAddress,
		TotalCents:      order.TotalCents,
		SubOrders:       make([]SubOrderDTO, 0, len(order.SubOrders)),
		CreatedAt:       order.CreatedAt,
	}
	for _, sub := range order.SubOrders {
		dto.SubOrders = append(dto.SubOrders, toSubOrderDTO(sub))
	}
	return dto
}

func toVendorSubOrderDTO(sub models.SubOrder) VendorSubOrderDTO {
	dto := VendorSubOrderDTO{
		SubOrderDTO:   toSubOrderDTO(sub),
		ParentOrderID: sub.ParentOrderID,
	}
	if sub.ParentOrder != nil {
		dto.PaymentMethod = sub.ParentOrder.PaymentMethod
		dto.IsPaid = sub.ParentOrder.IsPaid
		dto.ShippingAddress = sub.ParentOrder.ShippingAddress
		if sub.ParentOrder.User != nil {
			dto.CustomerName = sub.ParentOrder.User.FirstName + " " + sub.ParentOrder.User.LastName
			dto.CustomerEmail = sub.ParentOrder.User.Email
		}
	}
	return dto
}
