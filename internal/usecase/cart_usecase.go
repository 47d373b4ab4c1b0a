package usecase

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// CartUsecase は /cart の業務ロジックです。
// カートはセッション単位で、変更のたびにSessionStoreへ丸ごと保存します。
type CartUsecase struct {
	sessions repo.SessionStore
	//消費税の固定レート（0.10など）
	taxRate float64
}

func NewCartUsecase(sessions repo.SessionStore, taxRate float64) *CartUsecase {
	return &CartUsecase{sessions: sessions, taxRate: taxRate}
}

// OAS: CartResponse
type CartResponse struct {
	Items    []model.CartItem `json:"items"`
	Subtotal int64            `json:"subtotal"`
	//カートページ用の合計（小計＋税）。チェックアウトはもっと細かい合計を別で出す。
	Total int64 `json:"total"`
}

// OAS: AddCartItemRequest
type AddCartItemInput struct {
	ProductID int64
	Name      string
	Price     int64
	Quantity  int64
	Image     string
	Size      string
	Color     string
	Category  string
}

func cartKey(sessionID string) string {
	return "cart:" + sessionID
}

// カート取得（無ければ空で返す）。
func (u *CartUsecase) Get(ctx context.Context, sessionID string) (CartResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "missing session")
	}

	items, err := u.loadItems(ctx, sessionID)
	if err != nil {
		return CartResponse{}, err
	}
	return u.buildResponse(items), nil
}

// カートに追加。同一の (product_id, size, color) は数量加算で1件にマージ。
// 入力さえ正しければ必ず成功する。
func (u *CartUsecase) AddItem(ctx context.Context, sessionID string, in AddCartItemInput) (CartResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "missing session")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}
	if in.Price < 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid price")
	}

	items, err := u.loadItems(ctx, sessionID)
	if err != nil {
		return CartResponse{}, err
	}

	id := model.CartItemID(in.ProductID, in.Size, in.Color)

	merged := false
	for i := range items {
		if items[i].ID == id {
			items[i].Quantity += in.Quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, model.CartItem{
			ID:        id,
			ProductID: in.ProductID,
			Name:      in.Name,
			Price:     in.Price,
			Quantity:  in.Quantity,
			Image:     in.Image,
			Size:      in.Size,
			Color:     in.Color,
			Category:  in.Category,
		})
	}

	if err := u.saveItems(ctx, sessionID, items); err != nil {
		return CartResponse{}, err
	}
	return u.buildResponse(items), nil
}

// 数量変更。qty < 1 は削除と同じ扱い。
func (u *CartUsecase) UpdateQuantity(ctx context.Context, sessionID string, itemID string, qty int64) (CartResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "missing session")
	}

	if qty < 1 {
		return u.RemoveItem(ctx, sessionID, itemID)
	}

	items, err := u.loadItems(ctx, sessionID)
	if err != nil {
		return CartResponse{}, err
	}

	for i := range items {
		if items[i].ID == itemID {
			items[i].Quantity = qty
			break
		}
	}

	if err := u.saveItems(ctx, sessionID, items); err != nil {
		return CartResponse{}, err
	}
	return u.buildResponse(items), nil
}

// 明細削除。無ければ何もしない。
func (u *CartUsecase) RemoveItem(ctx context.Context, sessionID string, itemID string) (CartResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "missing session")
	}

	items, err := u.loadItems(ctx, sessionID)
	if err != nil {
		return CartResponse{}, err
	}

	kept := items[:0]
	for _, it := range items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}

	if err := u.saveItems(ctx, sessionID, kept); err != nil {
		return CartResponse{}, err
	}
	return u.buildResponse(kept), nil
}

// 注文確定後に呼ぶ。カートを空にする。
func (u *CartUsecase) Clear(ctx context.Context, sessionID string) error {
	if err := u.sessions.Delete(ctx, cartKey(sessionID)); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 明細一覧を返す（チェックアウトが合計計算に使う）。
func (u *CartUsecase) Items(ctx context.Context, sessionID string) ([]model.CartItem, error) {
	return u.loadItems(ctx, sessionID)
}

func (u *CartUsecase) loadItems(ctx context.Context, sessionID string) ([]model.CartItem, error) {
	raw, err := u.sessions.Load(ctx, cartKey(sessionID))
	if err == repo.ErrNotFound {
		return []model.CartItem{}, nil
	}
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	var items []model.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		//壊れたデータは空扱いで作り直す
		return []model.CartItem{}, nil
	}
	return items, nil
}

func (u *CartUsecase) saveItems(ctx context.Context, sessionID string, items []model.CartItem) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if err := u.sessions.Save(ctx, cartKey(sessionID), string(raw)); err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

// 小計は毎回明細から計算する（キャッシュしない）。
func (u *CartUsecase) buildResponse(items []model.CartItem) CartResponse {
	subtotal := Subtotal(items)
	return CartResponse{
		Items:    items,
		Subtotal: subtotal,
		Total:    subtotal + TaxAmount(subtotal, u.taxRate),
	}
}

// 明細の price × quantity の合計。
func Subtotal(items []model.CartItem) int64 {
	var subtotal int64 = 0
	for _, it := range items {
		subtotal += it.Price * it.Quantity
	}
	return subtotal
}

// 固定レートの税額。金額は最小通貨単位のintなので四捨五入する。
func TaxAmount(base int64, rate float64) int64 {
	if base <= 0 {
		return 0
	}
	return int64(math.Round(float64(base) * rate))
}
