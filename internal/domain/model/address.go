package model

import "time"

type AddressType string

const (
	AddressTypeShipping AddressType = "SHIPPING"
)

// 配送先住所。(user_id, type) で1件だけ持つ。
// 更新はupsert（あれば更新、無ければ作成）で、重複行は作らない。
type Address struct {
	ID     int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64       `gorm:"not null;uniqueIndex:idx_addresses_user_type" json:"user_id"`
	Type   AddressType `gorm:"type:varchar(20);not null;uniqueIndex:idx_addresses_user_type" json:"type"`

	//番地など
	Line1 string `gorm:"type:varchar(255);not null" json:"line1"`

	//市区町村
	City string `gorm:"type:varchar(255);not null" json:"city"`

	//郵便番号
	PostalCode string `gorm:"type:varchar(20);not null" json:"postal_code"`

	//国
	Country string `gorm:"type:varchar(100)" json:"country"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
