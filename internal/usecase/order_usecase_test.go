package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
	gormrepo "github.com/rs-labo46/ec-shop-api/internal/infra/repository"
	repo "github.com/rs-labo46/ec-shop-api/internal/repository"
	"github.com/rs-labo46/ec-shop-api/internal/testutil"
	"github.com/rs-labo46/ec-shop-api/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// =====================
// SQLite上で注文フローを通す
// =====================

type orderFixture struct {
	db     *gorm.DB
	orders *gormrepo.OrderGormRepository
	uc     *usecase.OrderUsecase
	user   model.User
	admin  model.User
}

func newOrderFixture(t *testing.T) orderFixture {
	t.Helper()
	gdb := testutil.NewTestDB(t)
	orders := gormrepo.NewOrderGormRepository(gdb)
	return orderFixture{
		db:     gdb,
		orders: orders,
		uc:     usecase.NewOrderUsecase(gormrepo.NewTxManagerGorm(gdb), orders, nil),
		user:   testutil.SeedUser(t, gdb, "buyer@example.com", model.RoleUser),
		admin:  testutil.SeedUser(t, gdb, "admin@example.com", model.RoleAdmin),
	}
}

func (f orderFixture) actor() model.Actor {
	return model.Actor{UserID: f.user.ID, Role: model.RoleUser}
}

func (f orderFixture) adminActor() model.Actor {
	return model.Actor{UserID: f.admin.ID, Role: model.RoleAdmin}
}

func TestCreateOrder_TotalsAndReservesStock(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	a := testutil.SeedProduct(t, f.db, "A", "10.00", 5)
	b := testutil.SeedProduct(t, f.db, "B", "5.00", 5)

	o, err := f.uc.CreateOrder(ctx, f.user.ID, usecase.CreateOrderInput{
		Items: []usecase.OrderItemInput{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 1},
		},
		ShippingAddress: "1 Main St",
		PaymentMethod:   "card",
	})
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.True(t, decimal.RequireFromString("25.00").Equal(o.TotalAmount), "total=%s", o.TotalAmount)
	assert.True(t, model.SumItems(o.Items).Equal(o.TotalAmount))
	assert.Equal(t, int64(3), testutil.StockOf(t, f.db, a.ID))
	assert.Equal(t, int64(4), testutil.StockOf(t, f.db, b.ID))

	got, err := f.uc.GetOrder(ctx, f.actor(), o.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, "1 Main St", got.ShippingAddress)
}

func TestCreateOrder_EmptyItems(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.uc.CreateOrder(context.Background(), f.user.ID, usecase.CreateOrderInput{})
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

func TestCreateOrder_InvalidQuantityAndUnknownProduct(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, f.db, "A", "10.00", 5)

	_, err := f.uc.CreateOrder(ctx, f.user.ID, usecase.CreateOrderInput{
		Items: []usecase.OrderItemInput{{ProductID: p.ID, Quantity: 0}},
	})
	assert.ErrorIs(t, err, usecase.ErrValidation)

	_, err = f.uc.CreateOrder(ctx, f.user.ID, usecase.CreateOrderInput{
		Items: []usecase.OrderItemInput{{ProductID: 9999, Quantity: 1}},
	})
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

func TestCreateOrder_InsufficientStockRollsBackEverything(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	a := testutil.SeedProduct(t, f.db, "A", "10.00", 5)
	b := testutil.SeedProduct(t, f.db, "B", "5.00", 1)

	_, err := f.uc.CreateOrder(ctx, f.user.ID, usecase.CreateOrderInput{
		Items: []usecase.OrderItemInput{
			{ProductID: a.ID, Quantity: 2},
			{ProductID: b.ID, Quantity: 3},
		},
	})
	assert.ErrorIs(t, err, usecase.ErrInsufficientStock)

	//先に減らしたAも戻っている
	assert.Equal(t, int64(5), testutil.StockOf(t, f.db, a.ID))
	assert.Equal(t, int64(1), testutil.StockOf(t, f.db, b.ID))

	var count int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetOrder_AccessControl(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, f.db, "A", "10.00", 5)
	stranger := testutil.SeedUser(t, f.db, "stranger@example.com", model.RoleUser)

	o, err := f.uc.CreateOrder(ctx, f.user.ID, usecase.CreateOrderInput{
		Items: []usecase.OrderItemInput{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.uc.GetOrder(ctx, model.Actor{UserID: stranger.ID, Role: model.RoleUser}, o.ID)
	assert.ErrorIs(t, err, usecase.ErrForbidden)

	_, err = f.uc.GetOrder(ctx, f.adminActor(), o.ID)
	assert.NoError(t, err)

	_, err = f.uc.GetOrder(ctx, f.actor(), 424242)
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestProcessPayment_MarksPaid(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, f.db, "A", "10.00", 5)

	o, err := f.uc.CreateOrder(ctx, f.user.ID, usecase.CreateOrderInput{
		Items: []usecase.OrderItemInput{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, f.orders.SetPaymentIntentID(ctx, o.ID, "pi_paid"))

	paid, err := f.uc.ProcessPayment(ctx, "pi_paid")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, paid.Status)

	got, err := f.uc.GetOrder(ctx, f.actor(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPaid, got.Status)

	_, err = f.uc.ProcessPayment(ctx, "pi_missing")
	assert.ErrorIs(t, err, usecase.ErrNotFound)
}

func TestCancelOrder_OverwritesAnyStatusAndIsRepeatable(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, f.db, "A", "10.00", 5)

	o, err := f.uc.CreateOrder(ctx, f.user.ID, usecase.CreateOrderInput{
		Items: []usecase.OrderItemInput{{ProductID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)

	//配送済みでもキャンセルできる
	_, err = f.uc.UpdateOrderStatus(ctx, f.admin.ID, o.ID, "delivered")
	require.NoError(t, err)

	c, err := f.uc.CancelOrder(ctx, f.actor(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, c.Status)

	c, err = f.uc.CancelOrder(ctx, f.actor(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, c.Status)

	//在庫は戻さない
	assert.Equal(t, int64(3), testutil.StockOf(t, f.db, p.ID))
}

func TestUpdateOrderStatus_ValidatesAndAudits(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, f.db, "A", "10.00", 5)

	o, err := f.uc.CreateOrder(ctx, f.user.ID, usecase.CreateOrderInput{
		Items: []usecase.OrderItemInput{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.uc.UpdateOrderStatus(ctx, f.admin.ID, o.ID, "LOST")
	assert.ErrorIs(t, err, usecase.ErrValidation)

	updated, err := f.uc.UpdateOrderStatus(ctx, f.admin.ID, o.ID, "SHIPPED")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, updated.Status)

	_, err = f.uc.UpdateOrderStatus(ctx, f.admin.ID, 777, "SHIPPED")
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	logs, err := gormrepo.NewAuditLogGormRepository(f.db).List(ctx, repo.AuditLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionUpdateOrderStatus, logs[0].Action)
	assert.JSONEq(t, `{"status":"PENDING"}`, logs[0].BeforeJSON)
	assert.JSONEq(t, `{"status":"SHIPPED"}`, logs[0].AfterJSON)
}

func TestListUserOrders_Paging(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	p := testutil.SeedProduct(t, f.db, "A", "1.00", 50)

	for i := 0; i < 3; i++ {
		_, err := f.uc.CreateOrder(ctx, f.user.ID, usecase.CreateOrderInput{
			Items: []usecase.OrderItemInput{{ProductID: p.ID, Quantity: 1}},
		})
		require.NoError(t, err)
	}

	out, err := f.uc.ListUserOrders(ctx, f.user.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Total)
	assert.Equal(t, 1, out.Page)
	assert.Equal(t, 20, out.Limit)

	_, err = f.uc.ListUserOrders(ctx, f.user.ID, 1, 500)
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

func TestRevenue_ValidatesRange(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := f.uc.Revenue(ctx, now, now.Add(-time.Hour))
	assert.ErrorIs(t, err, usecase.ErrValidation)

	total, err := f.uc.Revenue(ctx, now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}
