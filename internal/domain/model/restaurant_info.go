package model

import "time"

// 店舗情報（1行だけ持つ）
type RestaurantInfo struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Tagline   string    `gorm:"type:varchar(512)" json:"tagline"`
	LogoURL   string    `gorm:"type:varchar(1024)" json:"logoUrl"`
	Phone     string    `gorm:"type:varchar(50)" json:"phone"`
	Address   string    `gorm:"type:varchar(512);not null;default:''" json:"address"`
	Email     string    `gorm:"type:varchar(255);not null;default:''" json:"email"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
