package usecase_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
	repo "github.com/rs-labo46/ec-shop-api/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func assertErrContains(t *testing.T, err error, sub string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got nil", sub)
	}
	if !strings.Contains(err.Error(), sub) {
		t.Fatalf("expected error containing %q, got %q", sub, err.Error())
	}
}

// =====================
// UserRepositoryのモック
// =====================

type UserRepoMock struct{ mock.Mock }

var _ repo.UserRepository = (*UserRepoMock)(nil)

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *UserRepoMock) List(ctx context.Context) ([]model.User, error) {
	panic("not used in usecase tests")
}

func (m *UserRepoMock) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) SetGatewayCustomerID(ctx context.Context, userID int64, customerID string) error {
	args := m.Called(ctx, userID, customerID)
	return args.Error(0)
}

func (m *UserRepoMock) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

func (m *UserRepoMock) Disable(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// =====================
// OrderRepositoryのモック
// =====================

type OrderRepoMock struct{ mock.Mock }

var _ repo.OrderRepository = (*OrderRepoMock)(nil)

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (model.Order, error) {
	args := m.Called(ctx, paymentIntentID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) SetPaymentIntentID(ctx context.Context, orderID int64, paymentIntentID string) error {
	args := m.Called(ctx, orderID, paymentIntentID)
	return args.Error(0)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	panic("not used in payment tests")
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	panic("not used in payment tests")
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	panic("not used in payment tests")
}

func (m *OrderRepoMock) ListPaidSince(ctx context.Context, since time.Time) ([]model.Order, error) {
	panic("not used in payment tests")
}

func (m *OrderRepoMock) SumPaidBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	panic("not used in payment tests")
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	panic("not used in payment tests")
}

// =====================
// 注文側（ProcessPayment/CancelOrder）のモック
// =====================

type LifecycleMock struct{ mock.Mock }

func (m *LifecycleMock) ProcessPayment(ctx context.Context, paymentIntentID string) (model.Order, error) {
	args := m.Called(ctx, paymentIntentID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *LifecycleMock) CancelOrder(ctx context.Context, actor model.Actor, orderID int64) (model.Order, error) {
	args := m.Called(ctx, actor, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}
