package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercaura/mercaura-backend/pkg/db/models"
)

// CartDTO is the cart payload returned to clients.
type CartDTO struct {
	ID        uuid.UUID `json:"id,omitempty"`
	Items     []ItemDTO `json:"items"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ItemDTO is one cart line.
type ItemDTO struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

func toCartDTO(record *models.CartRecord) CartDTO {
	dto := CartDTO{
		ID:        record.ID,
		Items:     make([]ItemDTO, 0, len(record.Items)),
		UpdatedAt: record.UpdatedAt,
	}
	for _, item := range record.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return dto
}
