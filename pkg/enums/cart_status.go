package enums

// CartStatus marks whether a cart is still shoppable.
type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
)
