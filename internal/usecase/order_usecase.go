package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
	"github.com/rs-labo46/ec-shop-api/internal/logging"
	"github.com/rs-labo46/ec-shop-api/internal/metrics"
	repo "github.com/rs-labo46/ec-shop-api/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderUsecase struct {
	tx      repo.TransactionManager
	orders  repo.OrderRepository
	metrics *metrics.Metrics
}

func NewOrderUsecase(tx repo.TransactionManager, orders repo.OrderRepository, m *metrics.Metrics) *OrderUsecase {
	return &OrderUsecase{tx: tx, orders: orders, metrics: m}
}

type OrderItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type CreateOrderInput struct {
	Items           []OrderItemInput
	ShippingAddress string
	PaymentMethod   string
}

type OrderListOutput struct {
	Items []model.Order `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// CreateOrder は現在の価格で注文を作り、在庫を確保してPENDINGで保存する。
func (u *OrderUsecase) CreateOrder(ctx context.Context, userID int64, in CreateOrderInput) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := placeOrder(ctx, r, userID, in)
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	u.metrics.OrderCreated()
	logging.FromContext(ctx).Info("order created",
		zap.Int64("order_id", out.ID),
		zap.Int64("user_id", userID),
		zap.String("total", out.TotalAmount.StringFixed(2)),
	)
	return out, nil
}

// placeOrder はトランザクション内で注文と明細を作る（カートのcheckoutと共通）
func placeOrder(ctx context.Context, r repo.TxRepos, userID int64, in CreateOrderInput) (model.Order, error) {
	if len(in.Items) == 0 {
		return model.Order{}, validationError("order must contain at least one item")
	}

	items := make([]model.OrderItem, 0, len(in.Items))
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return model.Order{}, validationError("invalid quantity for product %d", it.ProductID)
		}

		p, err := r.Products().FindByID(ctx, it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return model.Order{}, validationError("product %d not found", it.ProductID)
		}
		if err != nil {
			return model.Order{}, dbError(err)
		}
		if !p.IsAvailable {
			return model.Order{}, validationError("product %d is not available", it.ProductID)
		}

		//在庫が足りるときだけ減算
		ok, err := r.Inventory().DecreaseStockIfEnough(ctx, p.ID, it.Quantity)
		if err != nil {
			return model.Order{}, dbError(err)
		}
		if !ok {
			return model.Order{}, insufficientStock(p.ID)
		}

		//価格と商品名はスナップショット
		oi := model.OrderItem{
			ProductID:           p.ID,
			ProductNameSnapshot: p.Name,
			UnitPrice:           p.Price,
			Quantity:            it.Quantity,
		}
		oi.Subtotal = oi.LineTotal()
		items = append(items, oi)
	}

	now := time.Now()
	order := model.Order{
		UserID:          userID,
		OrderDate:       now,
		TotalAmount:     model.SumItems(items),
		Status:          model.OrderStatusPending,
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		PaymentMethod:   strings.TrimSpace(in.PaymentMethod),
	}

	orderID, err := r.Orders().Create(ctx, order)
	if err != nil {
		return model.Order{}, dbError(err)
	}
	if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
		return model.Order{}, dbError(err)
	}

	order.ID = orderID
	order.Items = items
	return order, nil
}

// GetOrder は本人かADMINのみ。
func (u *OrderUsecase) GetOrder(ctx context.Context, actor model.Actor, orderID int64) (model.Order, error) {
	if orderID <= 0 {
		return model.Order{}, validationError("invalid order id")
	}

	o, err := u.findOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if err := requireAccess(actor, o.UserID); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (u *OrderUsecase) ListUserOrders(ctx context.Context, userID int64, page int, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	page, limit, err := normalizePage(page, limit)
	if err != nil {
		return OrderListOutput{}, err
	}

	orders, total, err := u.orders.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return OrderListOutput{}, dbError(err)
	}
	return OrderListOutput{Items: orders, Total: total, Page: page, Limit: limit}, nil
}

// CancelOrder は現在のstatusに関係なくCANCELLEDにする。
// 在庫戻しと返金はしない（PaymentIntentのキャンセルは決済側で行う）。
func (u *OrderUsecase) CancelOrder(ctx context.Context, actor model.Actor, orderID int64) (model.Order, error) {
	if orderID <= 0 {
		return model.Order{}, validationError("invalid order id")
	}

	o, err := u.findOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if err := requireAccess(actor, o.UserID); err != nil {
		return model.Order{}, err
	}

	if err := u.setStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
		return model.Order{}, err
	}
	o.Status = model.OrderStatusCancelled

	logging.FromContext(ctx).Info("order cancelled",
		zap.Int64("order_id", orderID),
		zap.Int64("actor_user_id", actor.UserID),
	)
	return o, nil
}

// ProcessPayment は保存済みのPaymentIntent IDから注文を探してPAIDにする。
func (u *OrderUsecase) ProcessPayment(ctx context.Context, paymentIntentID string) (model.Order, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return model.Order{}, validationError("paymentIntentId is required")
	}

	o, err := u.orders.FindByPaymentIntentID(ctx, paymentIntentID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, notFound("order for payment intent " + paymentIntentID)
	}
	if err != nil {
		return model.Order{}, dbError(err)
	}

	if err := u.setStatus(ctx, o.ID, model.OrderStatusPaid); err != nil {
		return model.Order{}, err
	}
	o.Status = model.OrderStatusPaid

	logging.FromContext(ctx).Info("order paid",
		zap.Int64("order_id", o.ID),
		zap.String("payment_intent_id", paymentIntentID),
	)
	return o, nil
}

// UpdateOrderStatus は管理者によるstatusの上書き。遷移のチェックはしない。
func (u *OrderUsecase) UpdateOrderStatus(ctx context.Context, adminUserID int64, orderID int64, status string) (model.Order, error) {
	if adminUserID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return model.Order{}, validationError("invalid order id")
	}
	newStatus, ok := model.ParseOrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !ok {
		return model.Order{}, validationError("invalid status %q", status)
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("order")
		}
		if err != nil {
			return dbError(err)
		}

		before := o.Status
		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			return dbError(err)
		}

		//監査ログ（UPDATE_ORDER_STATUS）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   auditJSON(map[string]model.OrderStatus{"status": before}),
			AfterJSON:    auditJSON(map[string]model.OrderStatus{"status": newStatus}),
			CreatedAt:    time.Now(),
		}); err != nil {
			return dbError(err)
		}

		o.Status = newStatus
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}

// 管理者用の注文一覧
func (u *OrderUsecase) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	page, limit, err := normalizePage(f.Page, f.Limit)
	if err != nil {
		return OrderListOutput{}, err
	}
	f.Page, f.Limit = page, limit

	if f.Status != "" {
		st, ok := model.ParseOrderStatus(strings.ToUpper(f.Status))
		if !ok {
			return OrderListOutput{}, validationError("invalid status %q", f.Status)
		}
		f.Status = string(st)
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return OrderListOutput{}, validationError("from must be before to")
	}

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return OrderListOutput{}, dbError(err)
	}
	return OrderListOutput{Items: orders, Total: total, Page: page, Limit: limit}, nil
}

// since以降に支払い済みになった注文
func (u *OrderUsecase) RecentPaidOrders(ctx context.Context, since time.Time) ([]model.Order, error) {
	if since.IsZero() {
		return nil, validationError("since is required")
	}
	orders, err := u.orders.ListPaidSince(ctx, since)
	if err != nil {
		return nil, dbError(err)
	}
	return orders, nil
}

// 期間内のPAID注文の売上合計
func (u *OrderUsecase) Revenue(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	if from.IsZero() || to.IsZero() {
		return decimal.Zero, validationError("start and end are required")
	}
	if from.After(to) {
		return decimal.Zero, validationError("start must be before end")
	}
	total, err := u.orders.SumPaidBetween(ctx, from, to)
	if err != nil {
		return decimal.Zero, dbError(err)
	}
	return total, nil
}

func (u *OrderUsecase) findOrder(ctx context.Context, orderID int64) (model.Order, error) {
	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, notFound("order")
	}
	if err != nil {
		return model.Order{}, dbError(err)
	}
	return o, nil
}

func (u *OrderUsecase) setStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	err := u.orders.UpdateStatus(ctx, orderID, status)
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("order")
	}
	if err != nil {
		return dbError(err)
	}
	return nil
}

// page/limitの既定値と上限
func normalizePage(page, limit int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = 20
	}
	if page < 1 {
		return 0, 0, validationError("invalid page")
	}
	if limit < 1 || limit > 100 {
		return 0, 0, validationError("invalid limit")
	}
	return page, limit, nil
}
