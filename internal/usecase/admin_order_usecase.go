package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/sirupsen/logrus"
)

// AdminOrderUsecase は注文の閲覧と部分更新（PATCH）を持ちます。
// PATCHの複数の書き込みは1トランザクションで確定する（途中失敗で中途半端に
// 残さない）。
type AdminOrderUsecase struct {
	tx        repo.TransactionManager
	auditRepo repo.AuditLogRepository
	log       *logrus.Logger
}

func NewAdminOrderUsecase(tx repo.TransactionManager, auditRepo repo.AuditLogRepository, log *logrus.Logger) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, auditRepo: auditRepo, log: log}
}

// UIのラベルから正規のステータスへの読み替え表。
// 大文字小文字は区別しない。
var orderStatusAliases = map[string]model.OrderStatus{
	"pending":    model.OrderStatusProcessing,
	"processing": model.OrderStatusProcessing,
	"shipped":    model.OrderStatusShipped,
	"completed":  model.OrderStatusDelivered,
	"delivered":  model.OrderStatusDelivered,
	"cancelled":  model.OrderStatusCancelled,
	"canceled":   model.OrderStatusCancelled,
}

var paymentStatusAliases = map[string]model.PaymentStatus{
	"pending":   model.PaymentStatusPending,
	"unpaid":    model.PaymentStatusPending,
	"paid":      model.PaymentStatusPaid,
	"completed": model.PaymentStatusPaid,
	"refunded":  model.PaymentStatusRefunded,
	"failed":    model.PaymentStatusFailed,
}

// OAS: AdminOrderItem
type AdminOrderItemView struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type CustomerView struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ShippingAddressView struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
}

// 平坦化した注文ビュー。totalは保存値ではなく明細から再計算した値。
type AdminOrderView struct {
	ID            int64                `json:"id"`
	OrderNumber   string               `json:"order_number"`
	UserID        int64                `json:"user_id"`
	Status        string               `json:"status"`
	PaymentStatus string               `json:"payment_status"`
	Total         int64                `json:"total"`
	Items         []AdminOrderItemView `json:"items"`
	Customer      *CustomerView        `json:"customer,omitempty"`
	Address       *ShippingAddressView `json:"shipping_address,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int64 `json:"pages"`
}

type AdminOrderListOutput struct {
	Orders     []AdminOrderView `json:"orders"`
	Pagination Pagination       `json:"pagination"`
}

// GET /admin/orders の入力。
type AdminOrderListInput struct {
	Status        string
	PaymentStatus string
	//YYYY-MM-DD（その日1日分）
	Date      string
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// 注文詳細。明細・ユーザー・配送先住所をまとめて1ビューにする。
func (u *AdminOrderUsecase) Get(ctx context.Context, orderID int64) (AdminOrderView, error) {
	if orderID <= 0 {
		return AdminOrderView{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out AdminOrderView

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toAdminOrderView(o, items)

		//持ち主のユーザー（消えていても注文は見せる）
		if usr, err := r.Users().FindByID(ctx, o.UserID); err == nil {
			out.Customer = &CustomerView{Name: usr.Name, Email: usr.Email, Phone: usr.Phone}
		} else if err != repo.ErrNotFound {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//配送先住所（無ければ省略）
		if a, err := r.Addresses().FindByUserAndType(ctx, o.UserID, model.AddressTypeShipping); err == nil {
			out.Address = &ShippingAddressView{
				Address:    a.Line1,
				City:       a.City,
				PostalCode: a.PostalCode,
				Country:    a.Country,
			}
		} else if err != repo.ErrNotFound {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})

	if err != nil {
		return AdminOrderView{}, err
	}
	return out, nil
}

// 注文一覧。ステータスはUIラベルから読み替え、日付は1日分の範囲にする。
func (u *AdminOrderUsecase) List(ctx context.Context, in AdminOrderListInput) (AdminOrderListOutput, error) {
	if in.Page < 1 {
		in.Page = 1
	}
	if in.Limit < 1 || in.Limit > 100 {
		in.Limit = 20
	}

	f := repo.OrderListFilter{
		Page:      in.Page,
		Limit:     in.Limit,
		SortBy:    in.SortBy,
		SortOrder: in.SortOrder,
	}

	if in.Status != "" {
		s, ok := normalizeOrderStatus(in.Status)
		if !ok {
			return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status filter")
		}
		f.Status = string(s)
	}

	if in.PaymentStatus != "" {
		s, ok := normalizePaymentStatus(in.PaymentStatus)
		if !ok {
			return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment status filter")
		}
		f.PaymentStatus = string(s)
	}

	if in.Date != "" {
		day, err := time.Parse("2006-01-02", in.Date)
		if err != nil {
			return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid date")
		}
		end := day.Add(24 * time.Hour)
		f.Day = &day
		f.DayEnd = &end
	}

	var out AdminOrderListOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().List(ctx, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		views := make([]AdminOrderView, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			views = append(views, toAdminOrderView(o, items))
		}

		pages := total / int64(in.Limit)
		if total%int64(in.Limit) != 0 {
			pages++
		}

		out = AdminOrderListOutput{
			Orders: views,
			Pagination: Pagination{
				Total: total,
				Page:  in.Page,
				Limit: in.Limit,
				Pages: pages,
			},
		}
		return nil
	})

	if err != nil {
		return AdminOrderListOutput{}, err
	}
	return out, nil
}

type CustomerPatch struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

type ItemQuantityPatch struct {
	ID       int64 `json:"id"`
	Quantity int64 `json:"quantity"`
}

type ShippingAddressPatch struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// PATCH /admin/orders/{id} の入力。nil/空のキーは触らない。
type PatchOrderInput struct {
	Status          *string
	PaymentStatus   *string
	Customer        *CustomerPatch
	Items           []ItemQuantityPatch
	ShippingAddress *ShippingAddressPatch
	Notes           string
}

// 部分更新。ステータスの検証は書き込みの前に済ませ、不正なら何も変えない。
// 明細の数量を変えたら、注文のtotalは「全明細」のロック済み価格から再計算する。
func (u *AdminOrderUsecase) Patch(ctx context.Context, actorAdminUserID int64, orderID int64, in PatchOrderInput) error {
	if actorAdminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	//書き込み前の検証。失敗したら一切触らない。
	var newStatus *model.OrderStatus
	if in.Status != nil {
		s := strings.ToUpper(strings.TrimSpace(*in.Status))
		if !model.ValidOrderStatus(s) {
			return NewHTTPError(http.StatusBadRequest,
				"invalid status: must be one of "+strings.Join(model.OrderStatusValues, ", "))
		}
		v := model.OrderStatus(s)
		newStatus = &v
	}

	var newPayment *model.PaymentStatus
	if in.PaymentStatus != nil {
		s := strings.ToUpper(strings.TrimSpace(*in.PaymentStatus))
		if !model.ValidPaymentStatus(s) {
			return NewHTTPError(http.StatusBadRequest,
				"invalid payment status: must be one of "+strings.Join(model.PaymentStatusValues, ", "))
		}
		v := model.PaymentStatus(s)
		newPayment = &v
	}

	for _, ip := range in.Items {
		if ip.ID <= 0 {
			return NewHTTPError(http.StatusBadRequest, "invalid item id")
		}
		if ip.Quantity < 1 {
			return NewHTTPError(http.StatusBadRequest, "invalid item quantity")
		}
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		orderFields := map[string]interface{}{}

		//明細の数量更新→全明細からtotal再計算
		if len(in.Items) > 0 {
			items, err := r.OrderItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			byID := make(map[int64]*model.OrderItem, len(items))
			for i := range items {
				byID[items[i].ID] = &items[i]
			}

			for _, ip := range in.Items {
				it, ok := byID[ip.ID]
				if !ok {
					//この注文の明細ではない
					return NewHTTPError(http.StatusNotFound, "order item not found")
				}
				if err := r.OrderItems().UpdateQuantity(ctx, ip.ID, ip.Quantity); err != nil {
					if err == repo.ErrNotFound {
						return NewHTTPError(http.StatusNotFound, "order item not found")
					}
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				it.Quantity = ip.Quantity
			}

			//指定された明細だけでなく全明細で合計を取り直す
			var total int64 = 0
			for _, it := range items {
				total += it.UnitPriceSnapshot * it.Quantity
			}
			orderFields["total"] = total
		}

		//連絡先の部分更新
		if in.Customer != nil {
			userFields := map[string]interface{}{}
			if in.Customer.Name != nil && strings.TrimSpace(*in.Customer.Name) != "" {
				userFields["name"] = strings.TrimSpace(*in.Customer.Name)
			}
			if in.Customer.Email != nil && strings.TrimSpace(*in.Customer.Email) != "" {
				userFields["email"] = strings.TrimSpace(*in.Customer.Email)
			}
			if in.Customer.Phone != nil && strings.TrimSpace(*in.Customer.Phone) != "" {
				userFields["phone"] = strings.TrimSpace(*in.Customer.Phone)
			}
			if len(userFields) > 0 {
				if err := r.Users().UpdateContact(ctx, o.UserID, userFields); err != nil {
					if err == repo.ErrNotFound {
						return NewHTTPError(http.StatusNotFound, "user not found")
					}
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
		}

		//配送先住所のupsert（何か1つでも入っていれば）
		if in.ShippingAddress != nil && hasAddressField(*in.ShippingAddress) {
			if _, err := r.Addresses().Upsert(ctx, model.Address{
				UserID:     o.UserID,
				Type:       model.AddressTypeShipping,
				Line1:      in.ShippingAddress.Address,
				City:       in.ShippingAddress.City,
				PostalCode: in.ShippingAddress.PostalCode,
				Country:    in.ShippingAddress.Country,
			}); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if newStatus != nil {
			orderFields["status"] = *newStatus
		}
		if newPayment != nil {
			orderFields["payment_status"] = *newPayment
		}

		if len(orderFields) > 0 {
			if err := r.Orders().UpdateFields(ctx, orderID, orderFields); err != nil {
				if err == repo.ErrNotFound {
					return NewHTTPError(http.StatusNotFound, "not found")
				}
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		//監査ログ（PATCH_ORDER）。notesは専用の保存先が無いのでここに残す。
		before := map[string]interface{}{
			"status":         o.Status,
			"payment_status": o.PaymentStatus,
		}
		after := map[string]interface{}{}
		for k, v := range orderFields {
			after[k] = v
		}
		if in.Notes != "" {
			after["notes"] = in.Notes
		}
		beforeJSON, _ := json.Marshal(before)
		afterJSON, _ := json.Marshal(after)

		if err := u.auditRepo.Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionPatchOrder,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		return nil
	})

	if err != nil {
		return err
	}

	if in.Notes != "" {
		u.log.WithFields(logrus.Fields{
			"order_id": orderID,
			"actor":    actorAdminUserID,
			"notes":    in.Notes,
		}).Info("order patch notes")
	}

	return nil
}

// totalは保存値ではなく明細から毎回計算する。
// 過去の不整合な部分更新で保存値がズレていても読み取りでは正しい値を返す。
func toAdminOrderView(o model.Order, items []model.OrderItem) AdminOrderView {
	views := make([]AdminOrderItemView, 0, len(items))
	var total int64 = 0

	for _, it := range items {
		views = append(views, AdminOrderItemView{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Image:     it.ImageSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
		total += it.UnitPriceSnapshot * it.Quantity
	}

	return AdminOrderView{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Total:         total,
		Items:         views,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func normalizeOrderStatus(s string) (model.OrderStatus, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if st, ok := orderStatusAliases[v]; ok {
		return st, true
	}
	upper := strings.ToUpper(v)
	if model.ValidOrderStatus(upper) {
		return model.OrderStatus(upper), true
	}
	return "", false
}

func normalizePaymentStatus(s string) (model.PaymentStatus, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if st, ok := paymentStatusAliases[v]; ok {
		return st, true
	}
	upper := strings.ToUpper(v)
	if model.ValidPaymentStatus(upper) {
		return model.PaymentStatus(upper), true
	}
	return "", false
}

func hasAddressField(a ShippingAddressPatch) bool {
	return strings.TrimSpace(a.Address) != "" ||
		strings.TrimSpace(a.City) != "" ||
		strings.TrimSpace(a.PostalCode) != "" ||
		strings.TrimSpace(a.Country) != ""
}
