package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// 管理画面に入れるのはADMINだけ
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// 顧客アカウント（ゲスト購入もできるので注文とは紐づけない）
// 管理者はADMIN_EMAILで起動時に作られる
type User struct {
	ID           int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string     `gorm:"type:varchar(255);not null;default:''" json:"name"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"column:password_hash;not null" json:"-"`
	Role         Role       `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	TokenVersion int        `gorm:"not null;default:0" json:"token_version"`
	IsActive     bool       `gorm:"not null;default:true" json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// パスワード再設定。生のトークンはメールにだけ載せ、DBにはsha256を置く
	ResetTokenHash      *string    `gorm:"type:varchar(64);index" json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
}

// 再設定トークンが期限内か（期限ちょうどは無効）
func (u *User) ResetTokenValidAt(now time.Time) bool {
	return u.ResetTokenHash != nil && u.ResetTokenExpiresAt != nil && now.Before(*u.ResetTokenExpiresAt)
}

// 発行時のtvがDBと違う or 停止中ならそのトークンは使えない
func (u *User) AcceptsTokenVersion(tv int) bool {
	return u.IsActive && u.TokenVersion == tv
}
