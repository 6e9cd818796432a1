package repository

import (
	"context"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
}
