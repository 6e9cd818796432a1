package repository

import (
	"context"
	"errors"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
)

// ユーザーが見つかりませんを統一
var ErrUserNotFound = errors.New("user not found")

// email重複
var ErrDuplicateEmail = errors.New("email already registered")

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	//メールからユーザーを一件取得する。
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]model.User, error)
	// プロフィール項目などの更新
	Update(ctx context.Context, user *model.User) error
	SetGatewayCustomerID(ctx context.Context, userID int64, customerID string) error
	// パスワード更新とtoken_version+1を同時に行う
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	// enabled=falseにする（論理削除）
	Disable(ctx context.Context, userID int64) error
}
