package usecase_test

import (
	"context"
	"testing"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
	gormrepo "github.com/rs-labo46/ec-shop-api/internal/infra/repository"
	"github.com/rs-labo46/ec-shop-api/internal/testutil"
	"github.com/rs-labo46/ec-shop-api/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newCartUsecase(gdb *gorm.DB) *usecase.CartUsecase {
	return usecase.NewCartUsecase(
		gormrepo.NewTxManagerGorm(gdb),
		gormrepo.NewCartItemGormRepository(gdb),
		gormrepo.NewProductGormRepository(gdb),
		nil,
	)
}

func TestCart_AddDoesNotMergeAndTotals(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	uc := newCartUsecase(gdb)
	ctx := context.Background()
	u := testutil.SeedUser(t, gdb, "buyer@example.com", model.RoleUser)
	p := testutil.SeedProduct(t, gdb, "Notebook", "3.25", 10)

	row, err := uc.AddToCart(ctx, u.ID, usecase.AddCartInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("6.50").Equal(row.LineTotal))

	_, err = uc.AddToCart(ctx, u.ID, usecase.AddCartInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	cart, err := uc.GetCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.True(t, decimal.RequireFromString("9.75").Equal(cart.Total), "total=%s", cart.Total)
}

func TestCart_AddRejectsMissingOrUnavailableProduct(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	uc := newCartUsecase(gdb)
	ctx := context.Background()
	u := testutil.SeedUser(t, gdb, "buyer@example.com", model.RoleUser)
	p := testutil.SeedProduct(t, gdb, "Old", "1.00", 10)
	require.NoError(t, gdb.Model(&model.Product{}).Where("id = ?", p.ID).Update("is_available", false).Error)

	_, err := uc.AddToCart(ctx, u.ID, usecase.AddCartInput{ProductID: 9999, Quantity: 1})
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	_, err = uc.AddToCart(ctx, u.ID, usecase.AddCartInput{ProductID: p.ID, Quantity: 1})
	assert.ErrorIs(t, err, usecase.ErrValidation)

	_, err = uc.AddToCart(ctx, u.ID, usecase.AddCartInput{ProductID: p.ID, Quantity: 0})
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

func TestCart_RemoveOnlyOwnItems(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	uc := newCartUsecase(gdb)
	ctx := context.Background()
	owner := testutil.SeedUser(t, gdb, "owner@example.com", model.RoleUser)
	other := testutil.SeedUser(t, gdb, "other@example.com", model.RoleUser)
	p := testutil.SeedProduct(t, gdb, "Lamp", "20.00", 10)

	row, err := uc.AddToCart(ctx, owner.ID, usecase.AddCartInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	//他人の明細は存在しない扱い
	err = uc.RemoveFromCart(ctx, other.ID, row.ID)
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	require.NoError(t, uc.RemoveFromCart(ctx, owner.ID, row.ID))
	assert.ErrorIs(t, uc.RemoveFromCart(ctx, owner.ID, row.ID), usecase.ErrNotFound)
}

func TestCart_CheckoutCreatesOrderAndClearsCart(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	uc := newCartUsecase(gdb)
	ctx := context.Background()
	u := testutil.SeedUser(t, gdb, "buyer@example.com", model.RoleUser)
	a := testutil.SeedProduct(t, gdb, "A", "10.00", 5)
	b := testutil.SeedProduct(t, gdb, "B", "5.00", 5)

	_, err := uc.AddToCart(ctx, u.ID, usecase.AddCartInput{ProductID: a.ID, Quantity: 2})
	require.NoError(t, err)
	_, err = uc.AddToCart(ctx, u.ID, usecase.AddCartInput{ProductID: b.ID, Quantity: 1})
	require.NoError(t, err)

	o, err := uc.Checkout(ctx, u.ID, usecase.CheckoutInput{ShippingAddress: "1 Main St", PaymentMethod: "card"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.True(t, decimal.RequireFromString("25.00").Equal(o.TotalAmount))
	assert.Equal(t, int64(3), testutil.StockOf(t, gdb, a.ID))

	cart, err := uc.GetCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = uc.Checkout(ctx, u.ID, usecase.CheckoutInput{})
	assert.ErrorIs(t, err, usecase.ErrValidation)
}

func TestCart_CheckoutShortStockKeepsCart(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	uc := newCartUsecase(gdb)
	ctx := context.Background()
	u := testutil.SeedUser(t, gdb, "buyer@example.com", model.RoleUser)
	p := testutil.SeedProduct(t, gdb, "Rare", "99.00", 1)

	_, err := uc.AddToCart(ctx, u.ID, usecase.AddCartInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)

	_, err = uc.Checkout(ctx, u.ID, usecase.CheckoutInput{})
	assert.ErrorIs(t, err, usecase.ErrInsufficientStock)

	cart, err := uc.GetCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Equal(t, int64(1), testutil.StockOf(t, gdb, p.ID))
}

func TestCart_CheckoutSkipsDeletedProducts(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	uc := newCartUsecase(gdb)
	ctx := context.Background()
	u := testutil.SeedUser(t, gdb, "buyer@example.com", model.RoleUser)
	a := testutil.SeedProduct(t, gdb, "A", "10.00", 5)
	b := testutil.SeedProduct(t, gdb, "B", "4.00", 5)

	_, err := uc.AddToCart(ctx, u.ID, usecase.AddCartInput{ProductID: a.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = uc.AddToCart(ctx, u.ID, usecase.AddCartInput{ProductID: b.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, gormrepo.NewProductGormRepository(gdb).SoftDelete(ctx, b.ID))

	cart, err := uc.GetCart(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)

	//見えている明細だけで注文できる
	o, err := uc.Checkout(ctx, u.ID, usecase.CheckoutInput{ShippingAddress: "1 Main St"})
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, a.ID, o.Items[0].ProductID)
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.TotalAmount))

	var left int64
	require.NoError(t, gdb.Model(&model.CartItem{}).Where("user_id = ?", u.ID).Count(&left).Error)
	assert.Zero(t, left)
}

func TestCart_CheckoutOnlyDeletedProductsIsEmpty(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	uc := newCartUsecase(gdb)
	ctx := context.Background()
	u := testutil.SeedUser(t, gdb, "buyer@example.com", model.RoleUser)
	p := testutil.SeedProduct(t, gdb, "Gone", "4.00", 5)

	_, err := uc.AddToCart(ctx, u.ID, usecase.AddCartInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, gormrepo.NewProductGormRepository(gdb).SoftDelete(ctx, p.ID))

	_, err = uc.Checkout(ctx, u.ID, usecase.CheckoutInput{})
	assert.ErrorIs(t, err, usecase.ErrValidation)
	assertErrContains(t, err, "cart is empty")
}
