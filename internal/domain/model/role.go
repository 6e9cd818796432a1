package model

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole は文字列をRoleに変換する。未知の値はfalse。
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// Actor はリクエストを実行している認証済みユーザー。
type Actor struct {
	UserID int64
	Role   Role
}

// CanAccess は所有者本人かADMINならtrue。
// 注文・ユーザーなど所有者を持つリソースの権限チェックはすべてここを通す。
func (a Actor) CanAccess(ownerUserID int64) bool {
	if a.UserID <= 0 {
		return false
	}
	return a.Role.IsAdmin() || a.UserID == ownerUserID
}
