package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 住所(Address)を保存・取得する窓口
type AddressRepository interface {
	//(user_id, type) で1件取得
	FindByUserAndType(ctx context.Context, userID int64, addrType model.AddressType) (model.Address, error)

	//あれば更新、無ければ作成。重複行は作らない。
	Upsert(ctx context.Context, address model.Address) (model.Address, error)
}
