package validator

import (
	"errors"
	"regexp"
	"strings"

	"github.com/rs-labo46/ec-shop-api/internal/usecase"
)

var (
	ErrEmailRequired     = errors.New("email is required")
	ErrInvalidEmail      = errors.New("invalid email format")
	ErrPasswordRequired  = errors.New("password is required")
	ErrPasswordTooShort  = errors.New("password must be at least 8 characters")
	ErrWeakPassword      = errors.New("password is too common")
	ErrFirstNameRequired = errors.New("firstName is required")
	ErrFieldTooLong      = errors.New("field too long")
	ErrSamePassword      = errors.New("new password must differ from current password")
)

const minPasswordLen = 8

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// よくある弱いパスワード
var weakPasswords = map[string]struct{}{
	"password":    {},
	"password123": {},
	"12345678":    {},
	"123456789":   {},
	"1234567890":  {},
	"qwertyuiop":  {},
	"letmein123":  {},
	"admin123":    {},
}

type userValidator struct{}

// Usecaseは interface を依存注入
func NewUserValidator() usecase.UserValidator {
	return &userValidator{}
}

// 会員登録の入力を検証
func (v *userValidator) ValidateRegister(in usecase.RegisterInput) error {
	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if err := validatePassword(in.Password); err != nil {
		return err
	}
	return v.ValidateProfile(usecase.ProfileInput{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Phone:     in.Phone,
		Address:   in.Address,
	})
}

// ログインの入力を検証
func (v *userValidator) ValidateLogin(email string, password string) error {
	if err := validateEmail(email); err != nil {
		return err
	}
	if password == "" {
		return ErrPasswordRequired
	}
	return nil
}

func (v *userValidator) ValidateProfile(in usecase.ProfileInput) error {
	if strings.TrimSpace(in.FirstName) == "" {
		return ErrFirstNameRequired
	}
	if len(in.FirstName) > 100 || len(in.LastName) > 100 || len(in.Phone) > 30 || len(in.Address) > 500 {
		return ErrFieldTooLong
	}
	return nil
}

func (v *userValidator) ValidateChangePassword(oldPassword string, newPassword string) error {
	if oldPassword == "" {
		return ErrPasswordRequired
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if oldPassword == newPassword {
		return ErrSamePassword
	}
	return nil
}

func validateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	if len(email) > 255 || !emailRe.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if len(password) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if _, ok := weakPasswords[strings.ToLower(password)]; ok {
		return ErrWeakPassword
	}
	return nil
}
