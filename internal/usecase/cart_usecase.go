package usecase

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
	"github.com/rs-labo46/ec-shop-api/internal/logging"
	"github.com/rs-labo46/ec-shop-api/internal/metrics"
	repo "github.com/rs-labo46/ec-shop-api/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartUsecase は /cart の業務ロジックです。
type CartUsecase struct {
	tx           repo.TransactionManager
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
	metrics      *metrics.Metrics
}

func NewCartUsecase(
	tx repo.TransactionManager,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
	m *metrics.Metrics,
) *CartUsecase {
	return &CartUsecase{
		tx:           tx,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
		metrics:      m,
	}
}

// price は現在の商品価格
type CartItemResponse struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartResponse struct {
	Items []CartItemResponse `json:"items"`
	Total decimal.Decimal    `json:"total"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

type CheckoutInput struct {
	ShippingAddress string
	PaymentMethod   string
}

func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.buildCartResponse(ctx, userID)
}

// AddToCart は明細を1行追加する（同じ商品でもまとめない）。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartItemResponse, error) {
	if userID <= 0 {
		return CartItemResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartItemResponse{}, validationError("invalid product_id")
	}
	if in.Quantity < 1 {
		return CartItemResponse{}, validationError("invalid quantity")
	}

	// 商品チェック（販売中のみ）
	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartItemResponse{}, notFound("product")
	}
	if err != nil {
		return CartItemResponse{}, dbError(err)
	}
	if !p.IsAvailable {
		return CartItemResponse{}, validationError("product %d is not available", p.ID)
	}

	item, err := u.cartItemRepo.Create(ctx, model.CartItem{
		UserID:    userID,
		ProductID: p.ID,
		Quantity:  in.Quantity,
	})
	if err != nil {
		return CartItemResponse{}, dbError(err)
	}
	return toCartItemResponse(item, p), nil
}

// RemoveFromCart は自分の明細だけ消せる（他人の明細は404）。
func (u *CartUsecase) RemoveFromCart(ctx context.Context, userID int64, cartItemID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return validationError("invalid cart item id")
	}

	owned, err := u.cartItemRepo.IsOwnedByUser(ctx, cartItemID, userID)
	if err != nil {
		return dbError(err)
	}
	if !owned {
		return notFound("cart item")
	}

	err = u.cartItemRepo.DeleteByID(ctx, cartItemID)
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("cart item")
	}
	if err != nil {
		return dbError(err)
	}
	return nil
}

// Checkout はカートの中身で注文を作り、カートを空にする。
func (u *CartUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cartItems, err := r.CartItems().ListByUserID(ctx, userID)
		if err != nil {
			return dbError(err)
		}

		//一覧と同じく削除済み商品の明細は注文に含めない（カートからは消える）
		items := make([]OrderItemInput, 0, len(cartItems))
		for _, ci := range cartItems {
			_, err := r.Products().FindByID(ctx, ci.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				continue
			}
			if err != nil {
				return dbError(err)
			}
			items = append(items, OrderItemInput{ProductID: ci.ProductID, Quantity: ci.Quantity})
		}
		if len(items) == 0 {
			return validationError("cart is empty")
		}

		o, err := placeOrder(ctx, r, userID, CreateOrderInput{
			Items:           items,
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   in.PaymentMethod,
		})
		if err != nil {
			return err
		}

		//注文できたらカートをクリア
		if err := r.CartItems().DeleteByUserID(ctx, userID); err != nil {
			return dbError(err)
		}
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	u.metrics.OrderCreated()
	logging.FromContext(ctx).Info("cart checked out",
		zap.Int64("order_id", out.ID),
		zap.Int64("user_id", userID),
	)
	return out, nil
}

// 明細に現在の商品名・価格を付けて返す
func (u *CartUsecase) buildCartResponse(ctx context.Context, userID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, dbError(err)
	}

	resp := CartResponse{Items: make([]CartItemResponse, 0, len(items)), Total: decimal.Zero}
	for _, it := range items {
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			//削除済み商品の明細は表示しない
			continue
		}
		if err != nil {
			return CartResponse{}, dbError(err)
		}

		row := toCartItemResponse(it, p)
		resp.Items = append(resp.Items, row)
		resp.Total = resp.Total.Add(row.LineTotal)
	}
	return resp, nil
}

func toCartItemResponse(it model.CartItem, p model.Product) CartItemResponse {
	return CartItemResponse{
		ID:        it.ID,
		ProductID: it.ProductID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  it.Quantity,
		LineTotal: p.Price.Mul(decimal.NewFromInt(it.Quantity)),
	}
}
