package testutil

import (
	"context"

	"github.com/rs-labo46/ec-shop-api/internal/gateway"

	"github.com/stretchr/testify/mock"
)

// GatewayMock はgateway.Gatewayのtestifyモック。
type GatewayMock struct{ mock.Mock }

var _ gateway.Gateway = (*GatewayMock)(nil)

func (m *GatewayMock) CreateCustomer(ctx context.Context, in gateway.CustomerInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) CreatePaymentIntent(ctx context.Context, in gateway.PaymentIntentInput) (gateway.PaymentIntent, error) {
	args := m.Called(ctx, in)
	pi, _ := args.Get(0).(gateway.PaymentIntent)
	return pi, args.Error(1)
}

func (m *GatewayMock) ConfirmPaymentIntent(ctx context.Context, paymentIntentID string, paymentMethod string) (gateway.PaymentIntent, error) {
	args := m.Called(ctx, paymentIntentID, paymentMethod)
	pi, _ := args.Get(0).(gateway.PaymentIntent)
	return pi, args.Error(1)
}

func (m *GatewayMock) RetrievePaymentIntent(ctx context.Context, paymentIntentID string) (gateway.PaymentIntent, error) {
	args := m.Called(ctx, paymentIntentID)
	pi, _ := args.Get(0).(gateway.PaymentIntent)
	return pi, args.Error(1)
}

func (m *GatewayMock) CancelPaymentIntent(ctx context.Context, paymentIntentID string) (gateway.PaymentIntent, error) {
	args := m.Called(ctx, paymentIntentID)
	pi, _ := args.Get(0).(gateway.PaymentIntent)
	return pi, args.Error(1)
}

func (m *GatewayMock) CreateProduct(ctx context.Context, in gateway.ProductInput) (gateway.ProductRef, error) {
	args := m.Called(ctx, in)
	ref, _ := args.Get(0).(gateway.ProductRef)
	return ref, args.Error(1)
}

func (m *GatewayMock) DeleteProduct(ctx context.Context, gatewayProductID string) error {
	args := m.Called(ctx, gatewayProductID)
	return args.Error(0)
}
