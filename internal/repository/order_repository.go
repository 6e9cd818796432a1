package repository

import (
	"context"
	"time"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
	"github.com/shopspring/decimal"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	// 明細もPreloadして返す
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	SetPaymentIntentID(ctx context.Context, orderID int64, paymentIntentID string) error

	// PAIDの注文のうちsince以降のもの
	ListPaidSince(ctx context.Context, since time.Time) ([]model.Order, error)
	// 期間内のPAID注文の売上合計
	SumPaidBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
