package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
	"github.com/rs-labo46/ec-shop-api/internal/gateway"
	"github.com/rs-labo46/ec-shop-api/internal/logging"
	repo "github.com/rs-labo46/ec-shop-api/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductUsecase struct {
	tx            repo.TransactionManager
	productRepo   repo.ProductRepository
	inventoryRepo repo.InventoryRepository
	gw            gateway.Gateway
	currency      string
}

// DI
func NewProductUsecase(
	tx repo.TransactionManager,
	productRepo repo.ProductRepository,
	inventoryRepo repo.InventoryRepository,
	gw gateway.Gateway,
	currency string,
) *ProductUsecase {
	if currency == "" {
		currency = "usd"
	}
	return &ProductUsecase{
		tx:            tx,
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		gw:            gw,
		currency:      strings.ToLower(currency),
	}
}

// GET /productsの入力
type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	Category string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// 販売中の商品一覧（検索・カテゴリ絞り込みも同じ入口）
func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	page, limit, err := normalizePage(in.Page, in.Limit)
	if err != nil {
		return ProductListOutput{}, err
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, validationError("q too long")
	}

	items, total, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:          page,
		Limit:         limit,
		Q:             strings.TrimSpace(in.Q),
		Category:      strings.TrimSpace(in.Category),
		AvailableOnly: true,
	})
	if err != nil {
		return ProductListOutput{}, dbError(err)
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	}, nil
}

// name/descriptionの部分一致
func (u *ProductUsecase) SearchProducts(ctx context.Context, q string, page, limit int) (ProductListOutput, error) {
	if strings.TrimSpace(q) == "" {
		return ProductListOutput{}, validationError("q is required")
	}
	return u.ListProducts(ctx, ListProductsInput{Page: page, Limit: limit, Q: q})
}

func (u *ProductUsecase) ListByCategory(ctx context.Context, category string, page, limit int) (ProductListOutput, error) {
	if strings.TrimSpace(category) == "" {
		return ProductListOutput{}, validationError("category is required")
	}
	return u.ListProducts(ctx, ListProductsInput{Page: page, Limit: limit, Category: category})
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, validationError("invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFound("product")
	}
	if err != nil {
		return model.Product{}, dbError(err)
	}
	return p, nil
}

// 在庫僅少（販売中で在庫10未満）
func (u *ProductUsecase) ListLowStock(ctx context.Context) ([]model.Product, error) {
	items, err := u.productRepo.ListLowStock(ctx, model.LowStockThreshold)
	if err != nil {
		return nil, dbError(err)
	}
	return items, nil
}

type AdminProductInput struct {
	Name        string
	Description string
	ImageURL    string
	Price       decimal.Decimal
	Stock       int64
	Category    string
	IsAvailable bool
}

// currencyに合わない桁の価格は受け付けない
func (in AdminProductInput) validate(currency string) error {
	if strings.TrimSpace(in.Name) == "" {
		return validationError("name required")
	}
	if !in.Price.IsPositive() {
		return validationError("price must be > 0")
	}
	exp, err := gateway.MinorUnitExponent(currency)
	if err != nil {
		return validationError("%v", err)
	}
	if !in.Price.Equal(in.Price.Truncate(exp)) {
		return validationError("price must have at most %d decimal places", exp)
	}
	if in.Stock < 0 {
		return validationError("stock must be >= 0")
	}
	if strings.TrimSpace(in.Category) == "" {
		return validationError("category required")
	}
	return nil
}

// 商品を作成し、ゲートウェイにも商品と価格を作る。
func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in AdminProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := in.validate(u.currency); err != nil {
		return model.Product{}, err
	}

	unitAmount, err := gateway.ToMinorUnits(in.Price, u.currency)
	if err != nil {
		return model.Product{}, validationError("%v", err)
	}

	ref, err := u.gw.CreateProduct(ctx, gateway.ProductInput{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		UnitAmount:  unitAmount,
		Currency:    u.currency,
	})
	if err != nil {
		return model.Product{}, gatewayError(err)
	}

	p, err := u.productRepo.Create(ctx, model.Product{
		Name:             strings.TrimSpace(in.Name),
		Description:      in.Description,
		ImageURL:         in.ImageURL,
		Price:            in.Price,
		Stock:            in.Stock,
		Category:         strings.TrimSpace(in.Category),
		IsAvailable:      in.IsAvailable,
		GatewayProductID: ref.ProductID,
		GatewayPriceID:   ref.PriceID,
	})
	if err != nil {
		//DBに入らなかったらゲートウェイ側を消しておく
		if delErr := u.gw.DeleteProduct(ctx, ref.ProductID); delErr != nil {
			logging.FromContext(ctx).Warn("gateway product cleanup failed",
				zap.String("gateway_product_id", ref.ProductID),
				zap.Error(delErr),
			)
		}
		return model.Product{}, dbError(err)
	}
	return p, nil
}

// ゲートウェイ側の価格は変更しない
func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in AdminProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.Product{}, validationError("invalid product id")
	}
	if err := in.validate(u.currency); err != nil {
		return model.Product{}, err
	}

	p := model.Product{
		ID:          productID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		ImageURL:    in.ImageURL,
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    strings.TrimSpace(in.Category),
		IsAvailable: in.IsAvailable,
	}
	err := u.productRepo.Update(ctx, p)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFound("product")
	}
	if err != nil {
		return model.Product{}, dbError(err)
	}
	return u.GetProductDetail(ctx, productID)
}

// ゲートウェイの商品を消してから論理削除
func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return validationError("invalid product id")
	}

	p, err := u.GetProductDetail(ctx, productID)
	if err != nil {
		return err
	}

	if p.GatewayProductID != "" {
		if err := u.gw.DeleteProduct(ctx, p.GatewayProductID); err != nil {
			return gatewayError(err)
		}
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		err := r.Products().SoftDelete(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("product")
		}
		if err != nil {
			return dbError(err)
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionDeleteProduct,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   auditJSON(p),
			AfterJSON:    "{}",
			CreatedAt:    time.Now(),
		}); err != nil {
			return dbError(err)
		}
		return nil
	})
}

// UpdateStock は在庫をqtyだけ減らす。足りなければ在庫は変えずに失敗する。
func (u *ProductUsecase) UpdateStock(ctx context.Context, productID int64, qty int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, validationError("invalid product id")
	}
	if qty < 1 {
		return model.Product{}, validationError("quantity must be >= 1")
	}

	ok, err := u.inventoryRepo.DecreaseStockIfEnough(ctx, productID, qty)
	if err != nil {
		return model.Product{}, dbError(err)
	}
	if !ok {
		//商品が無いのか在庫不足なのかを区別する
		if _, err := u.GetProductDetail(ctx, productID); err != nil {
			return model.Product{}, err
		}
		return model.Product{}, insufficientStock(productID)
	}
	return u.GetProductDetail(ctx, productID)
}

// 在庫の現在値を管理者が設定する（監査ログあり）
func (u *ProductUsecase) AdminUpdateInventory(ctx context.Context, adminUserID int64, productID int64, newStock int64) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.Product{}, validationError("invalid product id")
	}
	if newStock < 0 {
		return model.Product{}, validationError("stock must be >= 0")
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//変更前の在庫（before）
		p, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return notFound("product")
		}
		if err != nil {
			return dbError(err)
		}

		if err := r.Inventory().SetStock(ctx, productID, newStock); err != nil {
			return dbError(err)
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   auditJSON(map[string]int64{"stock": p.Stock}),
			AfterJSON:    auditJSON(map[string]int64{"stock": newStock}),
			CreatedAt:    time.Now(),
		}); err != nil {
			return dbError(err)
		}

		p.Stock = newStock
		out = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return out, nil
}
