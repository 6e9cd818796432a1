package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 在庫がこれ未満なら「在庫僅少」
const LowStockThreshold = 10

type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:varchar(1000)" json:"description"`
	ImageURL    string          `gorm:"type:varchar(500)" json:"image_url"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Stock       int64           `gorm:"not null" json:"stock"`
	Category    string          `gorm:"type:varchar(100);not null;index" json:"category"`
	IsAvailable bool            `gorm:"not null" json:"is_available"`

	//ゲートウェイ側の商品/価格ID
	GatewayProductID string `gorm:"type:varchar(255)" json:"gateway_product_id,omitempty"`
	GatewayPriceID   string `gorm:"type:varchar(255)" json:"gateway_price_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
