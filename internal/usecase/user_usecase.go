package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
	"github.com/rs-labo46/ec-shop-api/internal/logging"
	repo "github.com/rs-labo46/ec-shop-api/internal/repository"

	"go.uber.org/zap"
)

// usecaseがValidatorInterfaceに依存する約束
type UserValidator interface {
	ValidateRegister(in RegisterInput) error
	ValidateLogin(email string, password string) error
	ValidateProfile(in ProfileInput) error
	ValidateChangePassword(oldPassword string, newPassword string) error
}

type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type ProfileInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type TokenDTO struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type LoginOutput struct {
	User  model.User `json:"user"`
	Token TokenDTO   `json:"token"`
}

type UserUsecase struct {
	users     repo.UserRepository
	validator UserValidator
	hasher    PasswordHasher
	verifier  PasswordVerifier
	issuer    AccessTokenIssuer
	tx        repo.TransactionManager
}

func NewUserUsecase(
	users repo.UserRepository,
	validator UserValidator,
	hasher PasswordHasher,
	verifier PasswordVerifier,
	issuer AccessTokenIssuer,
	tx repo.TransactionManager,
) *UserUsecase {
	return &UserUsecase{
		users:     users,
		validator: validator,
		hasher:    hasher,
		verifier:  verifier,
		issuer:    issuer,
		tx:        tx,
	}
}

// 会員登録。emailは一意。
func (u *UserUsecase) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := u.validator.ValidateRegister(in); err != nil {
		return model.User{}, validationError("%s", err.Error())
	}

	exists, err := u.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return model.User{}, dbError(err)
	}
	if exists {
		return model.User{}, NewHTTPError(http.StatusConflict, "email already registered")
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, &HTTPError{Status: http.StatusInternalServerError, Message: "internal error", Kind: ErrInternal, Err: err}
	}

	user := &model.User{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        in.Email,
		PasswordHash: pwHash,
		Role:         model.RoleUser,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		Enabled:      true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		//同時登録で一意制約に当たった場合
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return model.User{}, NewHTTPError(http.StatusConflict, "email already registered")
		}
		return model.User{}, dbError(err)
	}

	logging.FromContext(ctx).Info("user registered", zap.Int64("user_id", user.ID))
	return *user, nil
}

// ログインしてアクセストークンを発行
func (u *UserUsecase) Login(ctx context.Context, email string, password string) (LoginOutput, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := u.validator.ValidateLogin(email, password); err != nil {
		return LoginOutput{}, validationError("%s", err.Error())
	}

	user, err := u.users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrUserNotFound) {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return LoginOutput{}, dbError(err)
	}

	//論理削除済みはログイン不可
	if !user.Enabled {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if !u.verifier.Verify(password, user.PasswordHash) {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	now := time.Now()
	token, exp, err := u.issuer.Issue(user.ID, user.Role, user.TokenVersion, now)
	if err != nil {
		return LoginOutput{}, &HTTPError{Status: http.StatusInternalServerError, Message: "internal error", Kind: ErrInternal, Err: err}
	}

	//最終ログイン時刻更新
	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		return LoginOutput{}, dbError(err)
	}

	return LoginOutput{
		User: *user,
		Token: TokenDTO{
			AccessToken:  token,
			TokenType:    "Bearer",
			ExpiresIn:    int(exp.Sub(now).Seconds()),
			TokenVersion: user.TokenVersion,
		},
	}, nil
}

// 本人かADMINのみ取得できる
func (u *UserUsecase) GetUser(ctx context.Context, actor model.Actor, userID int64) (model.User, error) {
	if err := requireAccess(actor, userID); err != nil {
		return model.User{}, err
	}
	user, err := u.find(ctx, userID)
	if err != nil {
		return model.User{}, err
	}
	return *user, nil
}

func (u *UserUsecase) UpdateUser(ctx context.Context, actor model.Actor, userID int64, in ProfileInput) (model.User, error) {
	if err := requireAccess(actor, userID); err != nil {
		return model.User{}, err
	}
	if err := u.validator.ValidateProfile(in); err != nil {
		return model.User{}, validationError("%s", err.Error())
	}

	user, err := u.find(ctx, userID)
	if err != nil {
		return model.User{}, err
	}

	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Phone = strings.TrimSpace(in.Phone)
	user.Address = strings.TrimSpace(in.Address)
	if err := u.users.Update(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return model.User{}, notFound("user")
		}
		return model.User{}, dbError(err)
	}
	return *user, nil
}

// 旧パスワードを確認してから変更する。発行済みトークンは無効になる。
func (u *UserUsecase) ChangePassword(ctx context.Context, actor model.Actor, oldPassword string, newPassword string) error {
	if actor.UserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := u.validator.ValidateChangePassword(oldPassword, newPassword); err != nil {
		return validationError("%s", err.Error())
	}

	user, err := u.find(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !u.verifier.Verify(oldPassword, user.PasswordHash) {
		return validationError("current password is incorrect")
	}

	pwHash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return &HTTPError{Status: http.StatusInternalServerError, Message: "internal error", Kind: ErrInternal, Err: err}
	}
	if err := u.users.UpdatePassword(ctx, user.ID, pwHash); err != nil {
		return dbError(err)
	}
	return nil
}

// 論理削除（enabled=false）。ADMINが他人を消したときは監査ログを残す。
func (u *UserUsecase) DeleteUser(ctx context.Context, actor model.Actor, userID int64) error {
	if err := requireAccess(actor, userID); err != nil {
		return err
	}
	if _, err := u.find(ctx, userID); err != nil {
		return err
	}

	//無効化と監査ログは同じトランザクション
	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Users().Disable(ctx, userID); err != nil {
			if errors.Is(err, repo.ErrUserNotFound) {
				return notFound("user")
			}
			return dbError(err)
		}

		if actor.UserID == userID {
			return nil
		}
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			Action:       model.AuditActionDisableUser,
			ResourceType: model.AuditResourceUser,
			ResourceID:   userID,
			BeforeJSON:   auditJSON(map[string]bool{"enabled": true}),
			AfterJSON:    auditJSON(map[string]bool{"enabled": false}),
			CreatedAt:    time.Now(),
		}); err != nil {
			return dbError(err)
		}
		return nil
	})
}

// 管理者用の一覧
func (u *UserUsecase) ListUsers(ctx context.Context, actor model.Actor) ([]model.User, error) {
	if !actor.Role.IsAdmin() {
		return nil, NewHTTPError(http.StatusForbidden, "admin only")
	}
	users, err := u.users.List(ctx)
	if err != nil {
		return nil, dbError(err)
	}
	return users, nil
}

func (u *UserUsecase) find(ctx context.Context, userID int64) (*model.User, error) {
	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrUserNotFound) {
		return nil, notFound("user")
	}
	if err != nil {
		return nil, dbError(err)
	}
	return user, nil
}
