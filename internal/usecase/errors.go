package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs-labo46/ec-shop-api/internal/domain/model"
	"github.com/rs-labo46/ec-shop-api/internal/gateway"
)

// エラーの種類。HTTPErrorはerrors.Isでこれに一致する。
var (
	//400 入力不正
	ErrValidation = errors.New("validation error")
	//400 在庫不足
	ErrInsufficientStock = errors.New("insufficient stock")
	//400 決済ゲートウェイ失敗
	ErrGateway = errors.New("payment gateway error")
	//401 認証失敗
	ErrUnauthorized = errors.New("unauthorized")
	//403 権限
	ErrForbidden = errors.New("forbidden")
	//404
	ErrNotFound = errors.New("not found")
	//409 競合
	ErrConflict = errors.New("conflict")
	//500
	ErrInternal = errors.New("internal error")
)

// HTTPError はhandlerでそのままレスポンスにするエラー。
// Kindはエラーの種類、Errは内部の原因（レスポンスには出さない）。
type HTTPError struct {
	Status  int
	Message string
	Kind    error
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewHTTPError はstatusからKindを決める。
func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
		Kind:    kindOf(status),
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func kindOf(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrValidation
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrInternal
	}
}

func validationError(format string, args ...any) error {
	return NewHTTPError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return NewHTTPError(http.StatusNotFound, what+" not found")
}

func dbError(err error) error {
	return &HTTPError{Status: http.StatusInternalServerError, Message: "db error", Kind: ErrInternal, Err: err}
}

func insufficientStock(productID int64) error {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("insufficient stock for product %d", productID),
		Kind:    ErrInsufficientStock,
	}
}

// ゲートウェイの失敗はすべて400で返す（リトライしない）
func gatewayError(err error) error {
	reason := err.Error()
	var ge *gateway.Error
	if errors.As(err, &ge) && ge.Reason != "" {
		reason = ge.Reason
	}
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Message: "payment gateway error: " + reason,
		Kind:    ErrGateway,
		Err:     err,
	}
}

// 所有者本人かADMINでなければ403
func requireAccess(actor model.Actor, ownerUserID int64) error {
	if actor.UserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if !actor.CanAccess(ownerUserID) {
		return NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return nil
}

// 監査ログ用のJSON
func auditJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
