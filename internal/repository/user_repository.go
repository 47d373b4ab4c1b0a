package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 注文の持ち主の取得・連絡先更新だけを約束。
type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	Create(ctx context.Context, user model.User) (model.User, error)
	//連絡先（名前・メール・電話）の部分更新。空のキーは書かない。
	UpdateContact(ctx context.Context, userID int64, fields map[string]interface{}) error
}
