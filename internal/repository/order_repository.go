package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

// 注文一覧の絞り込み・並び替え条件。
// Status/PaymentStatusは正規化済みの値をhandler/usecase側で入れる。
type OrderListFilter struct {
	Page  int
	Limit int

	Status        string
	PaymentStatus string

	//1日分の範囲（Day <= created_at < DayEnd）
	Day    *time.Time
	DayEnd *time.Time

	//date / total / status
	SortBy string
	//asc / desc
	SortOrder string
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	//PATCHで使う部分更新。mapのキーだけを書く。
	UpdateFields(ctx context.Context, orderID int64, fields map[string]interface{}) error

	//管理者用の注文一覧
	List(ctx context.Context, f OrderListFilter) ([]model.Order, int64, error)
}
