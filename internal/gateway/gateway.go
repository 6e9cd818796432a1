package gateway

import (
	"context"
	"fmt"
)

// IntentStatus はゲートウェイ側のPaymentIntentの状態。
type IntentStatus string

const (
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentRequiresAction        IntentStatus = "requires_action"
	IntentProcessing            IntentStatus = "processing"
	IntentSucceeded             IntentStatus = "succeeded"
	IntentCanceled              IntentStatus = "canceled"
)

// メタデータのキー
const (
	MetadataOrderID = "order_id"
	MetadataUserID  = "user_id"
)

type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       IntentStatus
	Amount       int64
	Currency     string
	Metadata     map[string]string
}

type CustomerInput struct {
	Email string
	Name  string
	Phone string
}

type PaymentIntentInput struct {
	// 最小通貨単位（USDならセント）
	Amount      int64
	Currency    string
	CustomerID  string
	Description string
	Metadata    map[string]string
}

type ProductInput struct {
	Name        string
	Description string
	// 最小通貨単位
	UnitAmount int64
	Currency   string
}

type ProductRef struct {
	ProductID string
	PriceID   string
}

// Gateway はホスト型決済サービスの窓口。
// APIキーは実装側が1つだけ持つ。
type Gateway interface {
	CreateCustomer(ctx context.Context, in CustomerInput) (string, error)
	CreatePaymentIntent(ctx context.Context, in PaymentIntentInput) (PaymentIntent, error)
	ConfirmPaymentIntent(ctx context.Context, paymentIntentID string, paymentMethod string) (PaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, paymentIntentID string) (PaymentIntent, error)
	CancelPaymentIntent(ctx context.Context, paymentIntentID string) (PaymentIntent, error)

	CreateProduct(ctx context.Context, in ProductInput) (ProductRef, error)
	DeleteProduct(ctx context.Context, gatewayProductID string) error
}

// Error はゲートウェイ呼び出しの失敗。Reasonはプロバイダのメッセージ。
type Error struct {
	Op     string
	Code   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway %s: %s (%s)", e.Op, e.Reason, e.Code)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}
