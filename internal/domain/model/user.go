package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// 注文の持ち主。認証・トークン発行は外部なのでパスワード類は持たない。
type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string `gorm:"type:varchar(255);not null" json:"name"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Phone     string `gorm:"type:varchar(30)" json:"phone"`
	Role      Role   `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
