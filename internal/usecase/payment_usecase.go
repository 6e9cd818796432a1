package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
	"github.com/rs-labo46/ec-shop-api/internal/gateway"
	"github.com/rs-labo46/ec-shop-api/internal/logging"
	"github.com/rs-labo46/ec-shop-api/internal/metrics"
	repo "github.com/rs-labo46/ec-shop-api/internal/repository"

	"go.uber.org/zap"
)

// 決済の結果を注文に反映する側（OrderUsecase）
type orderLifecycle interface {
	ProcessPayment(ctx context.Context, paymentIntentID string) (model.Order, error)
	CancelOrder(ctx context.Context, actor model.Actor, orderID int64) (model.Order, error)
}

// PaymentUsecase は注文と決済ゲートウェイの橋渡し。
type PaymentUsecase struct {
	gw        gateway.Gateway
	users     repo.UserRepository
	orders    repo.OrderRepository
	lifecycle orderLifecycle
	currency  string
	metrics   *metrics.Metrics
}

func NewPaymentUsecase(
	gw gateway.Gateway,
	users repo.UserRepository,
	orders repo.OrderRepository,
	lifecycle orderLifecycle,
	currency string,
	m *metrics.Metrics,
) *PaymentUsecase {
	if currency == "" {
		currency = "usd"
	}
	return &PaymentUsecase{
		gw:        gw,
		users:     users,
		orders:    orders,
		lifecycle: lifecycle,
		currency:  strings.ToLower(currency),
		metrics:   m,
	}
}

type PaymentIntentOutput struct {
	PaymentIntentID string               `json:"paymentIntentId"`
	ClientSecret    string               `json:"clientSecret,omitempty"`
	Status          gateway.IntentStatus `json:"status"`
	Amount          int64                `json:"amount"`
	Currency        string               `json:"currency"`
}

type ConfirmPaymentOutput struct {
	Order   model.Order `json:"order"`
	Message string      `json:"message"`
}

// EnsureCustomer はユーザーのゲートウェイ顧客IDを返す。
// 無ければ作成してユーザーに保存する（作成は1回だけ）。
func (u *PaymentUsecase) EnsureCustomer(ctx context.Context, user *model.User) (string, error) {
	if user.HasGatewayCustomer() {
		return user.GatewayCustomerID, nil
	}

	customerID, err := u.gw.CreateCustomer(ctx, gateway.CustomerInput{
		Email: user.Email,
		Name:  user.FullName(),
		Phone: user.Phone,
	})
	if err != nil {
		return "", u.gatewayFailed(ctx, "create_customer", err)
	}

	if err := u.users.SetGatewayCustomerID(ctx, user.ID, customerID); err != nil {
		return "", dbError(err)
	}
	user.GatewayCustomerID = customerID

	logging.FromContext(ctx).Info("gateway customer created",
		zap.Int64("user_id", user.ID),
		zap.String("customer_id", customerID),
	)
	return customerID, nil
}

// CreatePaymentIntent は注文の合計金額でPaymentIntentを作り、IDを注文に保存する。
func (u *PaymentUsecase) CreatePaymentIntent(ctx context.Context, actor model.Actor, orderID int64) (PaymentIntentOutput, error) {
	if orderID <= 0 {
		return PaymentIntentOutput{}, validationError("invalid order id")
	}

	order, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return PaymentIntentOutput{}, notFound("order")
	}
	if err != nil {
		return PaymentIntentOutput{}, dbError(err)
	}
	if err := requireAccess(actor, order.UserID); err != nil {
		return PaymentIntentOutput{}, err
	}
	if order.Status != model.OrderStatusPending {
		return PaymentIntentOutput{}, validationError("order %d is %s", order.ID, order.Status)
	}

	//顧客は注文の持ち主で作る（ADMINが代行しても同じ）
	owner, err := u.users.FindByID(ctx, order.UserID)
	if errors.Is(err, repo.ErrUserNotFound) {
		return PaymentIntentOutput{}, notFound("user")
	}
	if err != nil {
		return PaymentIntentOutput{}, dbError(err)
	}

	customerID, err := u.EnsureCustomer(ctx, owner)
	if err != nil {
		return PaymentIntentOutput{}, err
	}

	amount, err := gateway.ToMinorUnits(order.TotalAmount, u.currency)
	if err != nil {
		return PaymentIntentOutput{}, validationError("%v", err)
	}

	pi, err := u.gw.CreatePaymentIntent(ctx, gateway.PaymentIntentInput{
		Amount:      amount,
		Currency:    u.currency,
		CustomerID:  customerID,
		Description: fmt.Sprintf("Order #%d", order.ID),
		Metadata: map[string]string{
			gateway.MetadataOrderID: strconv.FormatInt(order.ID, 10),
			gateway.MetadataUserID:  strconv.FormatInt(owner.ID, 10),
		},
	})
	if err != nil {
		return PaymentIntentOutput{}, u.gatewayFailed(ctx, "create_payment_intent", err)
	}

	//processPaymentで引けるようにIDを保存
	if err := u.orders.SetPaymentIntentID(ctx, order.ID, pi.ID); err != nil {
		return PaymentIntentOutput{}, dbError(err)
	}

	logging.FromContext(ctx).Info("payment intent created",
		zap.Int64("order_id", order.ID),
		zap.String("payment_intent_id", pi.ID),
		zap.Int64("amount", pi.Amount),
	)
	return toPaymentIntentOutput(pi), nil
}

// ConfirmPayment は指定の支払い方法で確定する。succeededなら注文をPAIDにする。
func (u *PaymentUsecase) ConfirmPayment(ctx context.Context, actor model.Actor, paymentIntentID string, paymentMethod string) (ConfirmPaymentOutput, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	paymentMethod = strings.TrimSpace(paymentMethod)
	if paymentIntentID == "" {
		return ConfirmPaymentOutput{}, validationError("paymentIntentId is required")
	}
	if paymentMethod == "" {
		return ConfirmPaymentOutput{}, validationError("paymentMethod is required")
	}

	if _, err := u.ownedOrder(ctx, actor, paymentIntentID); err != nil {
		return ConfirmPaymentOutput{}, err
	}

	pi, err := u.gw.ConfirmPaymentIntent(ctx, paymentIntentID, paymentMethod)
	if err != nil {
		return ConfirmPaymentOutput{}, u.gatewayFailed(ctx, "confirm_payment_intent", err)
	}

	if pi.Status != gateway.IntentSucceeded {
		u.metrics.Payment(metrics.PaymentFailed)
		logging.FromContext(ctx).Warn("payment not succeeded",
			zap.String("payment_intent_id", paymentIntentID),
			zap.String("status", string(pi.Status)),
		)
		return ConfirmPaymentOutput{}, validationError("payment failed: status %s", pi.Status)
	}

	order, err := u.lifecycle.ProcessPayment(ctx, paymentIntentID)
	if err != nil {
		return ConfirmPaymentOutput{}, err
	}
	u.metrics.Payment(metrics.PaymentSucceeded)

	return ConfirmPaymentOutput{Order: order, Message: "Payment successful"}, nil
}

// CancelPayment はゲートウェイ側でキャンセルしてから注文もCANCELLEDにする。
func (u *PaymentUsecase) CancelPayment(ctx context.Context, actor model.Actor, paymentIntentID string) (PaymentIntentOutput, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return PaymentIntentOutput{}, validationError("paymentIntentId is required")
	}

	order, err := u.ownedOrder(ctx, actor, paymentIntentID)
	if err != nil {
		return PaymentIntentOutput{}, err
	}

	pi, err := u.gw.CancelPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return PaymentIntentOutput{}, u.gatewayFailed(ctx, "cancel_payment_intent", err)
	}

	if _, err := u.lifecycle.CancelOrder(ctx, actor, order.ID); err != nil {
		return PaymentIntentOutput{}, err
	}
	u.metrics.Payment(metrics.PaymentCancelled)

	return toPaymentIntentOutput(pi), nil
}

// PaymentStatus は毎回ゲートウェイに問い合わせる（キャッシュしない）
func (u *PaymentUsecase) PaymentStatus(ctx context.Context, actor model.Actor, paymentIntentID string) (PaymentIntentOutput, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return PaymentIntentOutput{}, validationError("paymentIntentId is required")
	}

	if _, err := u.ownedOrder(ctx, actor, paymentIntentID); err != nil {
		return PaymentIntentOutput{}, err
	}

	pi, err := u.RetrievePaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return PaymentIntentOutput{}, err
	}
	out := toPaymentIntentOutput(pi)
	out.ClientSecret = ""
	return out, nil
}

func (u *PaymentUsecase) RetrievePaymentIntent(ctx context.Context, paymentIntentID string) (gateway.PaymentIntent, error) {
	pi, err := u.gw.RetrievePaymentIntent(ctx, paymentIntentID)
	if err != nil {
		return gateway.PaymentIntent{}, u.gatewayFailed(ctx, "retrieve_payment_intent", err)
	}
	return pi, nil
}

// PaymentIntentに紐づく注文を取得して、本人かADMINか確認する
func (u *PaymentUsecase) ownedOrder(ctx context.Context, actor model.Actor, paymentIntentID string) (model.Order, error) {
	order, err := u.orders.FindByPaymentIntentID(ctx, paymentIntentID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, notFound("order for payment intent " + paymentIntentID)
	}
	if err != nil {
		return model.Order{}, dbError(err)
	}
	if err := requireAccess(actor, order.UserID); err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (u *PaymentUsecase) gatewayFailed(ctx context.Context, op string, err error) error {
	u.metrics.GatewayError(op)
	logging.FromContext(ctx).Warn("gateway call failed", zap.String("op", op), zap.Error(err))
	return gatewayError(err)
}

func toPaymentIntentOutput(pi gateway.PaymentIntent) PaymentIntentOutput {
	return PaymentIntentOutput{
		PaymentIntentID: pi.ID,
		ClientSecret:    pi.ClientSecret,
		Status:          pi.Status,
		Amount:          pi.Amount,
		Currency:        pi.Currency,
	}
}
