package repository

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type discountGormRepository struct {
	db *gorm.DB
}

func NewDiscountGormRepository(db *gorm.DB) repo.DiscountRepository {
	return &discountGormRepository{db: db}
}

// コードは大文字小文字を区別しない
func (r *discountGormRepository) FindByCode(ctx context.Context, code string) (model.Discount, error) {
	var d model.Discount
	err := r.db.WithContext(ctx).
		Where("UPPER(code) = ?", strings.ToUpper(code)).
		First(&d).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Discount{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Discount{}, err
	}
	return d, nil
}

func (r *discountGormRepository) FindByID(ctx context.Context, discountID int64) (model.Discount, error) {
	var d model.Discount
	err := r.db.WithContext(ctx).Where("id = ?", discountID).First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Discount{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Discount{}, err
	}
	return d, nil
}

func (r *discountGormRepository) List(ctx context.Context) ([]model.Discount, error) {
	var list []model.Discount
	if err := r.db.WithContext(ctx).Order("id asc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *discountGormRepository) Create(ctx context.Context, d model.Discount) (model.Discount, error) {
	//コードの重複チェック（ユニーク制約より先に分かりやすいエラーにする）
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Discount{}).
		Where("UPPER(code) = ?", strings.ToUpper(d.Code)).
		Count(&count).Error; err != nil {
		return model.Discount{}, err
	}
	if count > 0 {
		return model.Discount{}, repo.ErrDuplicateCode
	}

	if err := r.db.WithContext(ctx).Create(&d).Error; err != nil {
		//同時作成との競合はユニーク制約で拾う
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.Discount{}, repo.ErrDuplicateCode
		}
		return model.Discount{}, err
	}
	return d, nil
}

func (r *discountGormRepository) Delete(ctx context.Context, discountID int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ?", discountID).
		Delete(&model.Discount{})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *discountGormRepository) IncrementUsedCount(ctx context.Context, discountID int64) error {
	res := r.db.WithContext(ctx).Model(&model.Discount{}).
		Where("id = ?", discountID).
		Update("used_count", gorm.Expr("used_count + 1"))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
