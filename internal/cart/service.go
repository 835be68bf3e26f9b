package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercaura/mercaura-backend/pkg/db/models"
	pkgerrors "github.com/mercaura/mercaura-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes cart persistence operations.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	ReplaceCart(ctx context.Context, userID uuid.UUID, input ReplaceCartInput) (*CartDTO, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

// ReplaceCartInput is the full desired cart contents.
type ReplaceCartInput struct {
	Items []ItemInput
}

// ItemInput is one requested cart line.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type service struct {
	repo        *Repository
	tx          txRunner
	maxItems    int
	maxQty      int
}

// ServiceParams collects the cart service dependencies.
type ServiceParams struct {
	Repo            *Repository
	Tx              txRunner
	MaxItemsPerCart int
	MaxQtyPerItem   int
}

// NewService builds a cart service backed by the provided stack.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	maxItems := params.MaxItemsPerCart
	if maxItems <= 0 {
		maxItems = 100
	}
	maxQty := params.MaxQtyPerItem
	if maxQty <= 0 {
		maxQty = 50
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		maxItems: maxItems,
		maxQty:   maxQty,
	}, nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	record, err := s.repo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if record == nil {
		return &CartDTO{Items: []ItemDTO{}}, nil
	}
	dto := toCartDTO(record)
	return &dto, nil
}

func (s *service) ReplaceCart(ctx context.Context, userID uuid.UUID, input ReplaceCartInput) (*CartDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	items, err := s.validateItems(input.Items)
	if err != nil {
		return nil, err
	}

	var out *CartDTO
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		record, err := repo.FindActiveByUserID(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
		}
		if record == nil {
			record, err = repo.CreateActive(ctx, userID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating cart")
			}
		}
		if err := repo.ReplaceItems(ctx, record.ID, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "replacing cart items")
		}
		record, err = repo.FindActiveByUserID(ctx, userID)
		if err != nil || record == nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading cart")
		}
		dto := toCartDTO(record)
		out = &dto
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	record, err := s.repo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading cart")
	}
	if record == nil {
		return nil
	}
	if err := s.repo.ClearItems(ctx, record.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clearing cart")
	}
	return nil
}

func (s *service) validateItems(inputs []ItemInput) ([]models.CartItem, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart must contain at least one item")
	}
	if len(inputs) > s.maxItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "too many cart items")
	}

	seen := make(map[uuid.UUID]int, len(inputs))
	items := make([]models.CartItem, 0, len(inputs))
	for _, in := range inputs {
		if in.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
		}
		if in.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if in.Quantity > s.maxQty {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity exceeds the per-item limit")
		}
		// duplicate product lines collapse into one
		if pos, ok := seen[in.ProductID]; ok {
			items[pos].Quantity += in.Quantity
			continue
		}
		seen[in.ProductID] = len(items)
		items = append(items, models.CartItem{
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
		})
	}
	return items, nil
}
