package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 割引コードの永続化の約束。§9のとおりモジュール変数の配列ではなく
// 注入されたリポジトリ越しに触る。
type DiscountRepository interface {
	FindByCode(ctx context.Context, code string) (model.Discount, error)
	FindByID(ctx context.Context, discountID int64) (model.Discount, error)
	List(ctx context.Context) ([]model.Discount, error)

	//コード重複は ErrDuplicateCode
	Create(ctx context.Context, d model.Discount) (model.Discount, error)
	Delete(ctx context.Context, discountID int64) error

	//使用回数を+1する（注文確定時）
	IncrementUsedCount(ctx context.Context, discountID int64) error
}
