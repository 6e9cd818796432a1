package repository

import (
	"context"
	"errors"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
	domainrepo "github.com/rs-labo46/ec-shop-api/internal/repository"

	"gorm.io/gorm"
)

type userGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

// Create はユーザーを新規作成
func (r *userGormRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domainrepo.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *userGormRepository) findOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var u model.User

	err := r.db.WithContext(ctx).
		Where(query, arg).
		First(&u).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainrepo.ErrUserNotFound
		}
		return nil, err
	}

	return &u, nil
}

// emailでユーザーを1件取得
func (r *userGormRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

// IDでユーザーを1件取得
func (r *userGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *userGormRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userGormRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("id asc").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// プロフィール項目を更新。
func (r *userGormRepository) Update(ctx context.Context, user *model.User) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"first_name":    user.FirstName,
			"last_name":     user.LastName,
			"phone":         user.Phone,
			"address":       user.Address,
			"last_login_at": user.LastLoginAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainrepo.ErrUserNotFound
	}
	return nil
}

func (r *userGormRepository) SetGatewayCustomerID(ctx context.Context, userID int64, customerID string) error {
	return r.updateColumns(ctx, userID, map[string]interface{}{
		"gateway_customer_id": customerID,
	})
}

// パスワードを更新し、token_versionを+1 します。
func (r *userGormRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	return r.updateColumns(ctx, userID, map[string]interface{}{
		"password_hash": passwordHash,
		"token_version": gorm.Expr("token_version + ?", 1),
	})
}

// enabled=falseにする。token_versionも上げて発行済みトークンを無効化
func (r *userGormRepository) Disable(ctx context.Context, userID int64) error {
	return r.updateColumns(ctx, userID, map[string]interface{}{
		"enabled":       false,
		"token_version": gorm.Expr("token_version + ?", 1),
	})
}

func (r *userGormRepository) updateColumns(ctx context.Context, userID int64, cols map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		UpdateColumns(cols)

	if res.Error != nil {
		return res.Error
	}

	// 0件更新は「対象がない」
	if res.RowsAffected == 0 {
		return domainrepo.ErrUserNotFound
	}
	return nil
}
