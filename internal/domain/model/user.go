package model

import "time"

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName    string `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName     string `gorm:"type:varchar(100);not null" json:"last_name"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;not null" json:"-"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	Phone        string `gorm:"type:varchar(30)" json:"phone"`
	Address      string `gorm:"type:varchar(500)" json:"address"`

	//決済ゲートウェイ側の顧客ID（初回の決済で作成）
	GatewayCustomerID string `gorm:"type:varchar(255);index" json:"-"`

	//パスワード変更で+1（古いトークンを無効化）
	TokenVersion int `gorm:"not null;default:0" json:"-"`

	//falseなら論理削除済み
	Enabled bool `gorm:"not null;default:true" json:"enabled"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (u User) HasGatewayCustomer() bool {
	return u.GatewayCustomerID != ""
}
