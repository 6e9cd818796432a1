package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs-labo46/ec-shop-api/internal/config"
	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
	"github.com/rs-labo46/ec-shop-api/internal/gateway"
	"github.com/rs-labo46/ec-shop-api/internal/handler"
	gormrepo "github.com/rs-labo46/ec-shop-api/internal/infra/repository"
	"github.com/rs-labo46/ec-shop-api/internal/metrics"
	"github.com/rs-labo46/ec-shop-api/internal/server"
	"github.com/rs-labo46/ec-shop-api/internal/testutil"
	"github.com/rs-labo46/ec-shop-api/internal/usecase"
	"github.com/rs-labo46/ec-shop-api/internal/validator"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// =====================
// テスト用にアプリ全体を組み立てる（DBはSQLite、ゲートウェイはモック）
// =====================

type app struct {
	e  *echo.Echo
	db *gorm.DB
	gw *testutil.GatewayMock
}

func newApp(t *testing.T) app {
	t.Helper()

	gdb := testutil.NewTestDB(t)
	gw := &testutil.GatewayMock{}
	cfg := config.Config{JWTSecret: "server-test-secret", JWTAccessTTL: time.Hour, Currency: "usd"}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	userRepo := gormrepo.NewUserGormRepository(gdb)
	productRepo := gormrepo.NewProductGormRepository(gdb)
	orderRepo := gormrepo.NewOrderGormRepository(gdb)
	auditRepo := gormrepo.NewAuditLogGormRepository(gdb)
	txm := gormrepo.NewTxManagerGorm(gdb)

	hasher := usecase.NewBcryptPasswordHasher(bcrypt.MinCost)
	userUC := usecase.NewUserUsecase(userRepo, validator.NewUserValidator(), hasher, hasher,
		usecase.NewJWTIssuer(cfg.JWTSecret, cfg.JWTAccessTTL), txm)
	productUC := usecase.NewProductUsecase(txm, productRepo, gormrepo.NewInventoryGormRepository(gdb), gw, cfg.Currency)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, m)
	cartUC := usecase.NewCartUsecase(txm, gormrepo.NewCartItemGormRepository(gdb), productRepo, m)
	paymentUC := usecase.NewPaymentUsecase(gw, userRepo, orderRepo, orderUC, cfg.Currency, m)

	e := server.New(cfg, zap.NewNop(), m, reg, userRepo, server.Handlers{
		User:         handler.NewUserHandler(userUC),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Order:        handler.NewOrderHandler(orderUC, cartUC),
		AdminOrder:   handler.NewAdminOrderHandler(orderUC, usecase.NewAuditLogUsecase(auditRepo)),
		Payment:      handler.NewPaymentHandler(paymentUC),
		Cart:         handler.NewCartHandler(cartUC),
	})
	return app{e: e, db: gdb, gw: gw}
}

func (a app) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func (a app) registerAndLogin(t *testing.T, email string) (string, int64) {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/users/register", "", map[string]string{
		"firstName": "Ann",
		"lastName":  "Lee",
		"email":     email,
		"password":  "s3cure-pass",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var user model.User
	decode(t, rec, &user)

	return a.login(t, email, "s3cure-pass"), user.ID
}

func (a app) login(t *testing.T, email, password string) string {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/users/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out usecase.LoginOutput
	decode(t, rec, &out)
	require.NotEmpty(t, out.Token.AccessToken)
	return out.Token.AccessToken
}

// 管理者はDBに直接作ってからログインする
func (a app) adminToken(t *testing.T) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass-1"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, a.db.Create(&model.User{
		FirstName:    "Root",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Enabled:      true,
	}).Error)
	return a.login(t, "admin@example.com", "admin-pass-1")
}

// =====================
// 注文から決済まで
// =====================

func TestOrderToPaymentFlow(t *testing.T) {
	a := newApp(t)
	token, userID := a.registerAndLogin(t, "ann@example.com")
	pa := testutil.SeedProduct(t, a.db, "A", "10.00", 5)
	pb := testutil.SeedProduct(t, a.db, "B", "5.00", 5)

	rec := a.do(t, http.MethodPost, "/api/orders", token, map[string]interface{}{
		"items": []map[string]int64{
			{"product_id": pa.ID, "quantity": 2},
			{"product_id": pb.ID, "quantity": 1},
		},
		"shippingAddress": "1 Main St",
		"paymentMethod":   "card",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var order model.Order
	decode(t, rec, &order)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.True(t, decimal.RequireFromString("25").Equal(order.TotalAmount))

	a.gw.On("CreateCustomer", mock.Anything, mock.Anything).Return("cus_1", nil).Once()
	a.gw.On("CreatePaymentIntent", mock.Anything, mock.MatchedBy(func(in gateway.PaymentIntentInput) bool {
		return in.Amount == 2500 && in.CustomerID == "cus_1" &&
			in.Metadata["order_id"] == strconv.FormatInt(order.ID, 10) &&
			in.Metadata["user_id"] == strconv.FormatInt(userID, 10)
	})).Return(gateway.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret", Status: gateway.IntentRequiresPaymentMethod, Amount: 2500, Currency: "usd"}, nil).Once()
	a.gw.On("ConfirmPaymentIntent", mock.Anything, "pi_1", "pm_card_visa").
		Return(gateway.PaymentIntent{ID: "pi_1", Status: gateway.IntentSucceeded}, nil).Once()

	rec = a.do(t, http.MethodPost, "/api/payments/create-payment-intent", token, map[string]int64{"orderId": order.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pi usecase.PaymentIntentOutput
	decode(t, rec, &pi)
	assert.Equal(t, "pi_1", pi.PaymentIntentID)
	assert.Equal(t, "pi_1_secret", pi.ClientSecret)

	//支払い方法が無ければ400
	rec = a.do(t, http.MethodPost, "/api/payments/confirm-payment", token, map[string]string{"paymentIntentId": "pi_1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/payments/confirm-payment?paymentIntentId=pi_1&paymentMethod=pm_card_visa", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var confirmed usecase.ConfirmPaymentOutput
	decode(t, rec, &confirmed)
	assert.Equal(t, model.OrderStatusPaid, confirmed.Order.Status)

	rec = a.do(t, http.MethodGet, "/api/orders/"+strconv.FormatInt(order.ID, 10), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &order)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
	assert.Len(t, order.Items, 2)

	a.gw.AssertExpectations(t)
}

func TestCreateOrder_InsufficientStockIs400(t *testing.T) {
	a := newApp(t)
	token, _ := a.registerAndLogin(t, "ann@example.com")
	p := testutil.SeedProduct(t, a.db, "A", "10.00", 1)

	rec := a.do(t, http.MethodPost, "/api/orders", token, map[string]interface{}{
		"items": []map[string]int64{{"product_id": p.ID, "quantity": 2}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient stock")
	assert.Equal(t, int64(1), testutil.StockOf(t, a.db, p.ID))
}

func TestGatewayFailureIs400(t *testing.T) {
	a := newApp(t)
	token, _ := a.registerAndLogin(t, "ann@example.com")
	p := testutil.SeedProduct(t, a.db, "A", "10.00", 5)

	rec := a.do(t, http.MethodPost, "/api/orders", token, map[string]interface{}{
		"items": []map[string]int64{{"product_id": p.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var order model.Order
	decode(t, rec, &order)

	a.gw.On("CreateCustomer", mock.Anything, mock.Anything).
		Return("", &gateway.Error{Op: "create customer", Reason: "Invalid API Key provided"})

	rec = a.do(t, http.MethodPost, "/api/payments/create-payment-intent", token, map[string]int64{"orderId": order.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid API Key provided")
}

// =====================
// 権限
// =====================

func TestOrderAccessAndAdminRoutes(t *testing.T) {
	a := newApp(t)
	owner, _ := a.registerAndLogin(t, "owner@example.com")
	stranger, _ := a.registerAndLogin(t, "stranger@example.com")
	admin := a.adminToken(t)
	p := testutil.SeedProduct(t, a.db, "A", "10.00", 5)

	rec := a.do(t, http.MethodPost, "/api/orders", owner, map[string]interface{}{
		"items": []map[string]int64{{"product_id": p.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var order model.Order
	decode(t, rec, &order)
	path := "/api/orders/" + strconv.FormatInt(order.ID, 10)

	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, path, stranger, nil).Code)
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, path, admin, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, path, "", nil).Code)

	//ステータス変更はADMINのみ
	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodPatch, path+"/status?status=SHIPPED", owner, nil).Code)
	rec = a.do(t, http.MethodPatch, path+"/status?status=SHIPPED", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	//本人のキャンセルは状態に関係なく通る
	rec = a.do(t, http.MethodPost, path+"/cancel", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &order)
	assert.Equal(t, model.OrderStatusCancelled, order.Status)

	rec = a.do(t, http.MethodGet, "/api/admin/audit-logs?action=UPDATE_ORDER_STATUS", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs []model.AuditLog
	decode(t, rec, &logs)
	assert.Len(t, logs, 1)
}

func TestChangePasswordRevokesOldToken(t *testing.T) {
	a := newApp(t)
	token, _ := a.registerAndLogin(t, "ann@example.com")

	rec := a.do(t, http.MethodPost, "/api/users/change-password", token, map[string]string{
		"oldPassword": "s3cure-pass",
		"newPassword": "brand-new-pass",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/api/users/profile", token, nil).Code)

	fresh := a.login(t, "ann@example.com", "brand-new-pass")
	assert.Equal(t, http.StatusOK, a.do(t, http.MethodGet, "/api/users/profile", fresh, nil).Code)
}

// =====================
// 公開ルート
// =====================

func TestPublicRoutes(t *testing.T) {
	a := newApp(t)
	testutil.SeedProduct(t, a.db, "Blue Shirt", "20.00", 3)

	rec := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/products/search?q=shirt", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list usecase.ProductListOutput
	decode(t, rec, &list)
	assert.Equal(t, int64(1), list.Total)

	rec = a.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")

	//在庫僅少はADMINのみ
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/api/products/low-stock", "", nil).Code)
}
