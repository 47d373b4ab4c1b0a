package model

import "time"

type DiscountType string

const (
	//小計に対する割合引き
	DiscountTypePercentage DiscountType = "PERCENTAGE"
	//固定額引き
	DiscountTypeFixed DiscountType = "FIXED"
	//送料無料（送料分だけ引く）
	DiscountTypeShipping DiscountType = "SHIPPING"
)

// 割引コード。カタログ側が所有し、買い物客は検証するだけで変更しない。
// カートに同時に適用できるのは1つ（重ね掛け無し）。
type Discount struct {
	ID   int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Code string `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`

	Type DiscountType `gorm:"type:varchar(20);not null" json:"type"`

	//PERCENTAGEなら%、FIXED/SHIPPINGなら金額
	Value int64 `gorm:"not null" json:"value"`

	//適用に必要な最低購入額
	MinPurchase int64 `gorm:"not null;default:0" json:"min_purchase"`

	//利用回数の上限（0は無制限）
	MaxUses   int64 `gorm:"not null;default:0" json:"max_uses"`
	UsedCount int64 `gorm:"not null;default:0" json:"used_count"`

	//nilなら無期限
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`

	IsActive bool `gorm:"not null;default:true" json:"is_active"`

	//指定があればそのカテゴリの商品がカートに必要
	ProductCategory string `gorm:"type:varchar(100)" json:"product_category,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
