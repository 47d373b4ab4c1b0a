package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type addressGormRepository struct {
	db *gorm.DB
}

// DI
func NewAddressGormRepository(db *gorm.DB) repo.AddressRepository {
	return &addressGormRepository{db: db}
}

// (user_id, type) で1件取得
func (r *addressGormRepository) FindByUserAndType(ctx context.Context, userID int64, addrType model.AddressType) (model.Address, error) {
	var a model.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, addrType).
		First(&a).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Address{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Address{}, err
	}
	return a, nil
}

// あれば更新、無ければ作成。(user_id, type) のユニーク制約で重複は作れない。
func (r *addressGormRepository) Upsert(ctx context.Context, address model.Address) (model.Address, error) {
	now := time.Now()

	var existing model.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", address.UserID, address.Type).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		address.CreatedAt = now
		address.UpdatedAt = now
		if err := r.db.WithContext(ctx).Create(&address).Error; err != nil {
			return model.Address{}, err
		}
		return address, nil
	}
	if err != nil {
		return model.Address{}, err
	}

	//既存行を更新
	result := r.db.WithContext(ctx).
		Model(&model.Address{}).
		Where("id = ?", existing.ID).
		Select("line1", "city", "postal_code", "country", "updated_at").
		Updates(model.Address{
			Line1:      address.Line1,
			City:       address.City,
			PostalCode: address.PostalCode,
			Country:    address.Country,
			UpdatedAt:  now,
		})
	if result.Error != nil {
		return model.Address{}, result.Error
	}

	existing.Line1 = address.Line1
	existing.City = address.City
	existing.PostalCode = address.PostalCode
	existing.Country = address.Country
	existing.UpdatedAt = now
	return existing, nil
}
