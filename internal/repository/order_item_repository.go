package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	//数量だけ更新。価格スナップショットは絶対に触らない。
	UpdateQuantity(ctx context.Context, orderItemID int64, qty int64) error
}
