package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CheckoutUsecase は配送→支払い→確認→完了の直線フローを進めます。
// 状態は遷移のたびにSessionStoreへ保存するので、リロードしても同じ
// ステップから再開できます。
type CheckoutUsecase struct {
	sessions  repo.SessionStore
	cart      *CartUsecase
	discounts *DiscountUsecase
	tx        repo.TransactionManager
	log       *logrus.Logger

	taxRate float64
	//速達の固定追加料金
	expressShippingCost int64
}

func NewCheckoutUsecase(
	sessions repo.SessionStore,
	cart *CartUsecase,
	discounts *DiscountUsecase,
	tx repo.TransactionManager,
	log *logrus.Logger,
	taxRate float64,
	expressShippingCost int64,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		sessions:            sessions,
		cart:                cart,
		discounts:           discounts,
		tx:                  tx,
		log:                 log,
		taxRate:             taxRate,
		expressShippingCost: expressShippingCost,
	}
}

// チェックアウトの合計内訳。
// total = subtotal − discount + shipping + tax（taxは割引後の小計に掛ける）。
type CheckoutTotals struct {
	Subtotal       int64 `json:"subtotal"`
	DiscountAmount int64 `json:"discount_amount"`
	ShippingCost   int64 `json:"shipping_cost"`
	TaxAmount      int64 `json:"tax_amount"`
	Total          int64 `json:"total"`
}

// OAS: CheckoutResponse
type CheckoutResponse struct {
	State  model.CheckoutState `json:"state"`
	Totals CheckoutTotals      `json:"totals"`
}

func checkoutKey(sessionID string) string {
	return "checkout:" + sessionID
}

// 現在の状態と合計を返す。完了済みなら完了ビュー（既存の注文番号）を返す。
func (u *CheckoutUsecase) Get(ctx context.Context, sessionID string) (CheckoutResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "missing session")
	}

	state, err := u.loadState(ctx, sessionID)
	if err != nil {
		return CheckoutResponse{}, err
	}
	return u.buildResponse(ctx, sessionID, state)
}

// 配送情報の送信。必須項目を検証して SHIPPING → PAYMENT に進める。
func (u *CheckoutUsecase) SubmitShipping(ctx context.Context, sessionID string, info model.ShippingInfo, method model.ShippingMethod) (CheckoutResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "missing session")
	}

	missing := missingShippingFields(info)
	if len(missing) > 0 {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest,
			"missing required fields: "+strings.Join(missing, ", "))
	}

	switch method {
	case model.ShippingMethodStandard, model.ShippingMethodExpress:
		// OK
	case "":
		method = model.ShippingMethodStandard
	default:
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "invalid shipping method")
	}

	state, err := u.loadState(ctx, sessionID)
	if err != nil {
		return CheckoutResponse{}, err
	}

	if state.Completed {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "checkout already completed")
	}
	if state.Step != model.CheckoutStepShipping {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "invalid step")
	}

	state.ShippingInfo = &info
	state.ShippingMethod = method
	state.Step = model.CheckoutStepPayment

	if err := u.saveState(ctx, sessionID, state); err != nil {
		return CheckoutResponse{}, err
	}
	return u.buildResponse(ctx, sessionID, state)
}

// 支払い確認。外部の決済コラボレータの成功シグナルを受けて PAYMENT → REVIEW。
// カード認証そのものはここではやらない。
func (u *CheckoutUsecase) ConfirmPayment(ctx context.Context, sessionID string) (CheckoutResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "missing session")
	}

	state, err := u.loadState(ctx, sessionID)
	if err != nil {
		return CheckoutResponse{}, err
	}

	if state.Completed {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "checkout already completed")
	}
	if state.Step != model.CheckoutStepPayment {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "invalid step")
	}

	state.Step = model.CheckoutStepReview

	if err := u.saveState(ctx, sessionID, state); err != nil {
		return CheckoutResponse{}, err
	}
	return u.buildResponse(ctx, sessionID, state)
}

// 利用規約への同意フラグ。
func (u *CheckoutUsecase) AcceptTerms(ctx context.Context, sessionID string, accepted bool) (CheckoutResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "missing session")
	}

	state, err := u.loadState(ctx, sessionID)
	if err != nil {
		return CheckoutResponse{}, err
	}
	if state.Completed {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "checkout already completed")
	}

	state.TermsAccepted = accepted

	if err := u.saveState(ctx, sessionID, state); err != nil {
		return CheckoutResponse{}, err
	}
	return u.buildResponse(ctx, sessionID, state)
}

// 割引コードの適用。適用中のコードがあれば置き換える（重ね掛け無し）。
func (u *CheckoutUsecase) ApplyDiscount(ctx context.Context, sessionID string, code string) (CheckoutResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "missing session")
	}

	items, err := u.cart.Items(ctx, sessionID)
	if err != nil {
		return CheckoutResponse{}, err
	}

	d, err := u.discounts.Validate(ctx, ValidateDiscountInput{
		Code:              code,
		CartSubtotal:      Subtotal(items),
		ProductCategories: cartCategories(items),
	})
	if err != nil {
		return CheckoutResponse{}, err
	}

	state, err := u.loadState(ctx, sessionID)
	if err != nil {
		return CheckoutResponse{}, err
	}
	if state.Completed {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "checkout already completed")
	}

	state.DiscountCode = d.Code

	if err := u.saveState(ctx, sessionID, state); err != nil {
		return CheckoutResponse{}, err
	}
	return u.buildResponse(ctx, sessionID, state)
}

// 割引コードを外す。外せば割引前の合計に正確に戻る。
func (u *CheckoutUsecase) RemoveDiscount(ctx context.Context, sessionID string) (CheckoutResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "missing session")
	}

	state, err := u.loadState(ctx, sessionID)
	if err != nil {
		return CheckoutResponse{}, err
	}

	state.DiscountCode = ""

	if err := u.saveState(ctx, sessionID, state); err != nil {
		return CheckoutResponse{}, err
	}
	return u.buildResponse(ctx, sessionID, state)
}

// 1つ前のステップへ戻る。SHIPPINGからは戻れない。
// CONFIRMATIONからも戻れない（確定した注文は取り消せないし、再注文もしない）。
// 入力済みのshippingInfoは戻っても消えない。
func (u *CheckoutUsecase) GoBack(ctx context.Context, sessionID string) (CheckoutResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return CheckoutResponse{}, NewHTTPError(http.StatusBadRequest, "missing session")
	}

	state, err := u.loadState(ctx, sessionID)
	if err != nil {
		return CheckoutResponse{}, err
	}

	if state.Step > model.CheckoutStepShipping && state.Step < model.CheckoutStepConfirmation && !state.Completed {
		state.Step--
		if err := u.saveState(ctx, sessionID, state); err != nil {
			return CheckoutResponse{}, err
		}
	}

	return u.buildResponse(ctx, sessionID, state)
}

// OAS: PlaceOrderResponse
type PlaceOrderResult struct {
	Placed      bool   `json:"placed"`
	OrderID     int64  `json:"order_id,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`

	//前提条件が満たされていないときだけtrue（エラーにはしない）
	PreconditionFailed bool `json:"precondition_failed,omitempty"`

	State  model.CheckoutState `json:"state"`
	Totals CheckoutTotals      `json:"totals"`
}

// 注文確定。
// 前提: termsAccepted && shippingInfoあり。満たさなければ状態を変えず戻る。
// isProcessingPaymentで二重送信を防ぎ、成功・失敗どちらでも必ず解除する。
// 成功時は注文番号を発行して CONFIRMATION へ進み、カートを空にする。
// 失敗時は REVIEW に留まり、カートも触らない。
func (u *CheckoutUsecase) PlaceOrder(ctx context.Context, sessionID string, userID int64) (PlaceOrderResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return PlaceOrderResult{}, NewHTTPError(http.StatusBadRequest, "missing session")
	}

	state, err := u.loadState(ctx, sessionID)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	//完了済みなら既存の注文番号を返すだけ（戻る操作からの再送信で注文を増やさない）
	if state.Completed {
		return PlaceOrderResult{Placed: true, OrderNumber: state.OrderNumber, State: state}, nil
	}

	//前提条件チェック。満たさない場合はエラーではなくフラグで返す。
	if !state.TermsAccepted || state.ShippingInfo == nil || state.Step != model.CheckoutStepReview {
		resp, rerr := u.buildResponse(ctx, sessionID, state)
		if rerr != nil {
			return PlaceOrderResult{}, rerr
		}
		return PlaceOrderResult{Placed: false, PreconditionFailed: true, State: resp.State, Totals: resp.Totals}, nil
	}

	//処理中なら何もしない（連打ガード）
	if state.IsProcessingPayment {
		return PlaceOrderResult{Placed: false, State: state}, nil
	}

	state.IsProcessingPayment = true
	if err := u.saveState(ctx, sessionID, state); err != nil {
		return PlaceOrderResult{}, err
	}

	result, err := u.createOrder(ctx, sessionID, userID, state)

	if err != nil {
		//失敗時: ガード解除、REVIEWに留まる、カートはそのまま
		state.IsProcessingPayment = false
		if serr := u.saveState(ctx, sessionID, state); serr != nil {
			return PlaceOrderResult{}, serr
		}
		return PlaceOrderResult{}, err
	}

	//成功時: 完了フラグと注文番号を保存してからカートを空にする
	state.IsProcessingPayment = false
	state.Step = model.CheckoutStepConfirmation
	state.Completed = true
	state.OrderNumber = result.OrderNumber
	if err := u.saveState(ctx, sessionID, state); err != nil {
		return PlaceOrderResult{}, err
	}

	if err := u.cart.Clear(ctx, sessionID); err != nil {
		return PlaceOrderResult{}, err
	}

	u.log.WithFields(logrus.Fields{
		"order_id":     result.OrderID,
		"order_number": result.OrderNumber,
		"session":      sessionID,
	}).Info("order placed")

	result.State = state
	return result, nil
}

// 注文の作成本体。ユーザー解決・住所upsert・注文・明細・割引使用回数を
// 1トランザクションで確定する。
func (u *CheckoutUsecase) createOrder(ctx context.Context, sessionID string, userID int64, state model.CheckoutState) (PlaceOrderResult, error) {
	items, err := u.cart.Items(ctx, sessionID)
	if err != nil {
		return PlaceOrderResult{}, err
	}
	if len(items) == 0 {
		return PlaceOrderResult{}, NewHTTPError(http.StatusBadRequest, "cart empty")
	}

	totals, discount, err := u.computeTotals(ctx, items, state)
	if err != nil {
		return PlaceOrderResult{}, err
	}

	orderNumber := newOrderNumber()
	info := *state.ShippingInfo

	var out PlaceOrderResult

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//ユーザー解決（未ログインなら配送先メールで探し、無ければ作る）
		uid := userID
		if uid <= 0 {
			usr, err := r.Users().FindByEmail(ctx, info.Email)
			if err == repo.ErrNotFound {
				usr, err = r.Users().Create(ctx, model.User{
					Name:  info.Name,
					Email: info.Email,
					Phone: info.Phone,
					Role:  model.RoleUser,
				})
				if err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			} else if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			uid = usr.ID
		}

		//配送先住所は (user, SHIPPING) で1件だけ持つ
		if _, err := r.Addresses().Upsert(ctx, model.Address{
			UserID:     uid,
			Type:       model.AddressTypeShipping,
			Line1:      info.Address,
			City:       info.City,
			PostalCode: info.PostalCode,
			Country:    info.Country,
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//注文作成
		now := time.Now()
		orderID, err := r.Orders().Create(ctx, model.Order{
			OrderNumber:   orderNumber,
			UserID:        uid,
			Status:        model.OrderStatusProcessing,
			PaymentStatus: model.PaymentStatusPaid,
			Total:         totals.Total,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//明細スナップショット（価格はこの時点でロック）
		orderItems := make([]model.OrderItem, 0, len(items))
		for _, it := range items {
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           it.ProductID,
				ProductNameSnapshot: it.Name,
				ImageSnapshot:       it.Image,
				UnitPriceSnapshot:   it.Price,
				Quantity:            it.Quantity,
				CreatedAt:           now,
			})
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//割引の使用回数を+1
		if discount != nil {
			if err := r.Discounts().IncrementUsedCount(ctx, discount.ID); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		out = PlaceOrderResult{
			Placed:      true,
			OrderID:     orderID,
			OrderNumber: orderNumber,
			Totals:      totals,
		}
		return nil
	})

	if err != nil {
		return PlaceOrderResult{}, err
	}
	return out, nil
}

// 合計計算。
// SHIPPING型の割引は送料から引き、それ以外は小計から引く。
// 税は「小計−小計への割引」に固定レートを掛ける。
func (u *CheckoutUsecase) computeTotals(ctx context.Context, items []model.CartItem, state model.CheckoutState) (CheckoutTotals, *model.Discount, error) {
	subtotal := Subtotal(items)

	var shipping int64 = 0
	if state.ShippingMethod == model.ShippingMethodExpress {
		shipping = u.expressShippingCost
	}

	var discount *model.Discount
	var discountAmount int64 = 0
	var subtotalDiscount int64 = 0

	if state.DiscountCode != "" {
		d, err := u.discounts.Validate(ctx, ValidateDiscountInput{
			Code:              state.DiscountCode,
			CartSubtotal:      subtotal,
			ProductCategories: cartCategories(items),
		})
		if err != nil {
			//適用中に条件を外れたコード（4xx）は無視する。5xxは伝播。
			he, ok := AsHTTPError(err)
			if !ok || he.Status >= http.StatusInternalServerError {
				return CheckoutTotals{}, nil, err
			}
		} else {
			discount = &d
			discountAmount = ComputeDiscountAmount(d, subtotal, shipping)
			if d.Type == model.DiscountTypeShipping {
				shipping -= discountAmount
				if shipping < 0 {
					shipping = 0
				}
			} else {
				subtotalDiscount = discountAmount
			}
		}
	}

	tax := TaxAmount(subtotal-subtotalDiscount, u.taxRate)

	return CheckoutTotals{
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		ShippingCost:   shipping,
		TaxAmount:      tax,
		Total:          subtotal - subtotalDiscount + shipping + tax,
	}, discount, nil
}

func (u *CheckoutUsecase) buildResponse(ctx context.Context, sessionID string, state model.CheckoutState) (CheckoutResponse, error) {
	items, err := u.cart.Items(ctx, sessionID)
	if err != nil {
		return CheckoutResponse{}, err
	}

	totals, _, err := u.computeTotals(ctx, items, state)
	if err != nil {
		return CheckoutResponse{}, err
	}

	return CheckoutResponse{State: state, Totals: totals}, nil
}

func (u *CheckoutUsecase) loadState(ctx context.Context, sessionID string) (model.CheckoutState, error) {
	raw, err := u.sessions.Load(ctx, checkoutKey(sessionID))
	if err == repo.ErrNotFound {
		return model.NewCheckoutState(), nil
	}
	if err != nil {
		return model.CheckoutState{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var state model.CheckoutState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return model.NewCheckoutState(), nil
	}
	if state.Step < model.CheckoutStepShipping || state.Step > model.CheckoutStepConfirmation {
		state.Step = model.CheckoutStepShipping
	}
	return state, nil
}

func (u *CheckoutUsecase) saveState(ctx context.Context, sessionID string, state model.CheckoutState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := u.sessions.Save(ctx, checkoutKey(sessionID), string(raw)); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 必須項目の不足を列挙する。
func missingShippingFields(info model.ShippingInfo) []string {
	var missing []string
	if strings.TrimSpace(info.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(info.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(info.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(info.Address) == "" {
		missing = append(missing, "address")
	}
	if strings.TrimSpace(info.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(info.PostalCode) == "" {
		missing = append(missing, "postal_code")
	}
	return missing
}

func cartCategories(items []model.CartItem) []string {
	cats := make([]string, 0, len(items))
	for _, it := range items {
		if it.Category != "" {
			cats = append(cats, it.Category)
		}
	}
	return cats
}

// 注文番号。時刻＋UUID断片で一意にする。
func newOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(),
		strings.ToUpper(uuid.NewString()[:8]))
}
