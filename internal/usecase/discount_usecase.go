package usecase

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// DiscountUsecase は割引コードの検証・金額計算・カタログ管理を持ちます。
type DiscountUsecase struct {
	discounts repo.DiscountRepository
	auditRepo repo.AuditLogRepository
}

func NewDiscountUsecase(discounts repo.DiscountRepository, auditRepo repo.AuditLogRepository) *DiscountUsecase {
	return &DiscountUsecase{discounts: discounts, auditRepo: auditRepo}
}

// OAS: ValidateDiscountRequest
type ValidateDiscountInput struct {
	Code              string
	CartSubtotal      int64
	ProductCategories []string
}

// コードを検証して割引を返す。失敗理由は人間が読めるメッセージで返す。
// チェックの順番: 存在→有効期限→回数上限→最低購入額→カテゴリ。
func (u *DiscountUsecase) Validate(ctx context.Context, in ValidateDiscountInput) (model.Discount, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return model.Discount{}, NewHTTPError(http.StatusBadRequest, "code is required")
	}

	d, err := u.discounts.FindByCode(ctx, code)
	if err == repo.ErrNotFound {
		return model.Discount{}, NewHTTPError(http.StatusNotFound, "discount code not found")
	}
	if err != nil {
		return model.Discount{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if !d.IsActive {
		//無効化されたコードは存在しない扱い
		return model.Discount{}, NewHTTPError(http.StatusNotFound, "discount code not found")
	}

	if d.ExpiryDate != nil && time.Now().After(*d.ExpiryDate) {
		return model.Discount{}, NewHTTPError(http.StatusBadRequest, "discount code has expired")
	}

	if d.MaxUses > 0 && d.UsedCount >= d.MaxUses {
		return model.Discount{}, NewHTTPError(http.StatusBadRequest, "discount usage limit reached")
	}

	if in.CartSubtotal < d.MinPurchase {
		return model.Discount{}, NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("minimum purchase of %d required", d.MinPurchase))
	}

	if d.ProductCategory != "" {
		match := false
		for _, c := range in.ProductCategories {
			if strings.EqualFold(c, d.ProductCategory) {
				match = true
				break
			}
		}
		if !match {
			return model.Discount{}, NewHTTPError(http.StatusBadRequest, "discount not applicable to items in cart")
		}
	}

	return d, nil
}

// 割引額の計算。値引きは対象額を超えない。
func ComputeDiscountAmount(d model.Discount, subtotal int64, shippingCost int64) int64 {
	switch d.Type {
	case model.DiscountTypePercentage:
		amount := subtotal * d.Value / 100
		if amount > subtotal {
			amount = subtotal
		}
		return amount
	case model.DiscountTypeFixed:
		if d.Value > subtotal {
			return subtotal
		}
		return d.Value
	case model.DiscountTypeShipping:
		if d.Value > shippingCost {
			return shippingCost
		}
		return d.Value
	}
	return 0
}

// OAS: CreateDiscountRequest
type CreateDiscountInput struct {
	Code            string
	Type            string
	Value           int64
	MinPurchase     int64
	MaxUses         int64
	ExpiryDate      *time.Time
	ProductCategory string
}

// 割引コード作成（管理者）。コード重複は409。
func (u *DiscountUsecase) Create(ctx context.Context, actorAdminUserID int64, in CreateDiscountInput) (model.Discount, error) {
	if actorAdminUserID <= 0 {
		return model.Discount{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		return model.Discount{}, NewHTTPError(http.StatusBadRequest, "code is required")
	}

	dType := model.DiscountType(strings.ToUpper(strings.TrimSpace(in.Type)))
	switch dType {
	case model.DiscountTypePercentage, model.DiscountTypeFixed, model.DiscountTypeShipping:
		// OK
	default:
		return model.Discount{}, NewHTTPError(http.StatusBadRequest, "invalid type: must be one of PERCENTAGE, FIXED, SHIPPING")
	}

	if in.Value <= 0 {
		return model.Discount{}, NewHTTPError(http.StatusBadRequest, "invalid value")
	}
	if dType == model.DiscountTypePercentage && in.Value > 100 {
		return model.Discount{}, NewHTTPError(http.StatusBadRequest, "percentage value must be 100 or less")
	}
	if in.MinPurchase < 0 || in.MaxUses < 0 {
		return model.Discount{}, NewHTTPError(http.StatusBadRequest, "invalid value")
	}

	created, err := u.discounts.Create(ctx, model.Discount{
		Code:            code,
		Type:            dType,
		Value:           in.Value,
		MinPurchase:     in.MinPurchase,
		MaxUses:         in.MaxUses,
		ExpiryDate:      in.ExpiryDate,
		IsActive:        true,
		ProductCategory: strings.TrimSpace(in.ProductCategory),
	})
	if err == repo.ErrDuplicateCode {
		return model.Discount{}, NewHTTPError(http.StatusConflict, "discount code already exists")
	}
	if err != nil {
		return model.Discount{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//監査ログ（CREATE_DISCOUNT）
	afterJSON := `{"code":"` + created.Code + `","type":"` + string(created.Type) + `"}`
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorAdminUserID,
		Action:       model.AuditActionCreateDiscount,
		ResourceType: model.AuditResourceDiscount,
		ResourceID:   created.ID,
		AfterJSON:    afterJSON,
		CreatedAt:    time.Now(),
	}); err != nil {
		return model.Discount{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return created, nil
}

// 割引コード削除（管理者）。
func (u *DiscountUsecase) Delete(ctx context.Context, actorAdminUserID int64, discountID int64) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if discountID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	d, err := u.discounts.FindByID(ctx, discountID)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := u.discounts.Delete(ctx, discountID); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//監査ログ（DELETE_DISCOUNT）
	beforeJSON := `{"code":"` + d.Code + `"}`
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorAdminUserID,
		Action:       model.AuditActionDeleteDiscount,
		ResourceType: model.AuditResourceDiscount,
		ResourceID:   discountID,
		BeforeJSON:   beforeJSON,
		CreatedAt:    time.Now(),
	}); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return nil
}

// 一覧（管理者）。
func (u *DiscountUsecase) List(ctx context.Context) ([]model.Discount, error) {
	list, err := u.discounts.List(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return list, nil
}
