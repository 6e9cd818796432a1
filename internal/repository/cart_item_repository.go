package repository

import (
	"context"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
)

type CartItemRepository interface {
	ListByUserID(ctx context.Context, userID int64) ([]model.CartItem, error)
	// 同一商品でもまとめずに1行追加する
	Create(ctx context.Context, item model.CartItem) (model.CartItem, error)
	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	DeleteByID(ctx context.Context, cartItemID int64) error
	DeleteByUserID(ctx context.Context, userID int64) error
	IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error)
}
