package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionStoreのgorm実装。1キー1行で丸ごと上書きする。
type sessionGormStore struct {
	db *gorm.DB
}

func NewSessionGormStore(db *gorm.DB) repo.SessionStore {
	return &sessionGormStore{db: db}
}

func (s *sessionGormStore) Load(ctx context.Context, key string) (string, error) {
	var rec model.SessionRecord
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", repo.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return rec.Value, nil
}

func (s *sessionGormStore) Save(ctx context.Context, key string, value string) error {
	rec := model.SessionRecord{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}

	//upsert（あればvalueを上書き）
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&rec).Error
}

func (s *sessionGormStore) Delete(ctx context.Context, key string) error {
	//無くてもエラーにしない
	return s.db.WithContext(ctx).
		Where("key = ?", key).
		Delete(&model.SessionRecord{}).Error
}
