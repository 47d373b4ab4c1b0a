package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"storefront/internal/domain/model"
	infraRepo "storefront/internal/infra/repository"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type checkoutEnv struct {
	uc    *usecase.CheckoutUsecase
	cart  *usecase.CartUsecase
	store *infraRepo.SessionMemoryStore

	tx         *TxManagerMock
	orders     *OrderRepoMock
	orderItems *OrderItemRepoMock
	users      *UserRepoMock
	addresses  *AddressRepoMock
	discounts  *DiscountRepoMock
}

func newCheckoutEnv() *checkoutEnv {
	store := infraRepo.NewSessionMemoryStore()
	cart := usecase.NewCartUsecase(store, 0.10)

	discounts := new(DiscountRepoMock)
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)
	users := new(UserRepoMock)
	addresses := new(AddressRepoMock)

	tx := &TxManagerMock{Repos: &TxReposStub{
		orders:     orders,
		orderItems: orderItems,
		users:      users,
		addresses:  addresses,
		discounts:  discounts,
	}}

	log := logrus.New()
	log.SetOutput(io.Discard)

	uc := usecase.NewCheckoutUsecase(
		store, cart,
		usecase.NewDiscountUsecase(discounts, new(AuditRepoMock)),
		tx, log, 0.10, 1500,
	)

	return &checkoutEnv{
		uc: uc, cart: cart, store: store,
		tx: tx, orders: orders, orderItems: orderItems,
		users: users, addresses: addresses, discounts: discounts,
	}
}

func validShippingInfo() model.ShippingInfo {
	return model.ShippingInfo{
		Name:       "山田太郎",
		Email:      "taro@example.com",
		Phone:      "090-0000-0000",
		Address:    "1-2-3 Chiyoda",
		City:       "Tokyo",
		PostalCode: "100-0001",
		Country:    "JP",
	}
}

// REVIEWまで進めた状態を作る共通ヘルパー
func advanceToReview(t *testing.T, env *checkoutEnv, sessionID string) {
	t.Helper()
	ctx := context.Background()

	_, err := env.cart.AddItem(ctx, sessionID, addInput(1, 500, 2, "M", "black"))
	assert.NoError(t, err)

	_, err = env.uc.SubmitShipping(ctx, sessionID, validShippingInfo(), model.ShippingMethodStandard)
	assert.NoError(t, err)

	_, err = env.uc.ConfirmPayment(ctx, sessionID)
	assert.NoError(t, err)
}

func TestCheckout_InitialStateIsShipping(t *testing.T) {
	env := newCheckoutEnv()

	out, err := env.uc.Get(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Equal(t, model.CheckoutStepShipping, out.State.Step)
	assert.False(t, out.State.Completed)
}

func TestCheckout_SubmitShippingAdvancesToPayment(t *testing.T) {
	env := newCheckoutEnv()
	ctx := context.Background()

	out, err := env.uc.SubmitShipping(ctx, "s1", validShippingInfo(), model.ShippingMethodExpress)
	assert.NoError(t, err)
	assert.Equal(t, model.CheckoutStepPayment, out.State.Step)
	assert.NotNil(t, out.State.ShippingInfo)
	assert.Equal(t, "taro@example.com", out.State.ShippingInfo.Email)
	assert.Equal(t, model.ShippingMethodExpress, out.State.ShippingMethod)
	//速達は固定料金
	assert.Equal(t, int64(1500), out.Totals.ShippingCost)
}

func TestCheckout_SubmitShippingMissingFields(t *testing.T) {
	env := newCheckoutEnv()

	info := validShippingInfo()
	info.Email = ""
	info.PostalCode = "  "

	_, err := env.uc.SubmitShipping(context.Background(), "s1", info, model.ShippingMethodStandard)
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)
	assert.Contains(t, he.Message, "email")
	assert.Contains(t, he.Message, "postal_code")

	//失敗時は状態が進まない
	out, err := env.uc.Get(context.Background(), "s1")
	assert.NoError(t, err)
	assert.Equal(t, model.CheckoutStepShipping, out.State.Step)
}

func TestCheckout_ConfirmPaymentRequiresPaymentStep(t *testing.T) {
	env := newCheckoutEnv()

	_, err := env.uc.ConfirmPayment(context.Background(), "s1")
	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, 400, he.Status)
}

func TestCheckout_GoBackKeepsShippingInfo(t *testing.T) {
	env := newCheckoutEnv()
	ctx := context.Background()

	advanceToReview(t, env, "s1")

	out, err := env.uc.GoBack(ctx, "s1")
	assert.NoError(t, err)
	assert.Equal(t, model.CheckoutStepPayment, out.State.Step)
	//戻っても入力済みの配送先は消えない
	assert.NotNil(t, out.State.ShippingInfo)
	assert.Equal(t, "taro@example.com", out.State.ShippingInfo.Email)

	out, err = env.uc.GoBack(ctx, "s1")
	assert.NoError(t, err)
	assert.Equal(t, model.CheckoutStepShipping, out.State.Step)

	//SHIPPINGからはこれ以上戻れない
	out, err = env.uc.GoBack(ctx, "s1")
	assert.NoError(t, err)
	assert.Equal(t, model.CheckoutStepShipping, out.State.Step)
}

func TestCheckout_PlaceOrderWithoutTermsIsFlaggedNoop(t *testing.T) {
	env := newCheckoutEnv()
	ctx := context.Background()

	advanceToReview(t, env, "s1")

	res, err := env.uc.PlaceOrder(ctx, "s1", 0)
	assert.NoError(t, err)
	assert.False(t, res.Placed)
	assert.True(t, res.PreconditionFailed)

	//状態は変わらず、カートもそのまま
	out, err := env.uc.Get(ctx, "s1")
	assert.NoError(t, err)
	assert.Equal(t, model.CheckoutStepReview, out.State.Step)
	assert.False(t, out.State.Completed)

	items, err := env.cart.Items(ctx, "s1")
	assert.NoError(t, err)
	assert.Len(t, items, 1)
	env.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCheckout_PlaceOrderSuccess(t *testing.T) {
	env := newCheckoutEnv()
	ctx := context.Background()

	advanceToReview(t, env, "s1")
	_, err := env.uc.AcceptTerms(ctx, "s1", true)
	assert.NoError(t, err)

	env.tx.On("WithinTx", mock.Anything).Return(nil)
	env.users.On("FindByEmail", mock.Anything, "taro@example.com").Return(model.User{}, repo.ErrNotFound)
	env.users.On("Create", mock.Anything, mock.Anything).Return(model.User{ID: 42, Email: "taro@example.com"}, nil)
	env.addresses.On("Upsert", mock.Anything, mock.MatchedBy(func(a model.Address) bool {
		return a.UserID == 42 && a.Type == model.AddressTypeShipping && a.City == "Tokyo"
	})).Return(model.Address{ID: 1}, nil)
	env.orders.On("Create", mock.Anything, mock.Anything).Return(int64(10), nil)
	env.orderItems.On("CreateBulk", mock.Anything, int64(10), mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 1 && items[0].UnitPriceSnapshot == 500 && items[0].Quantity == 2
	})).Return(nil)

	res, err := env.uc.PlaceOrder(ctx, "s1", 0)
	assert.NoError(t, err)
	assert.True(t, res.Placed)
	assert.Equal(t, int64(10), res.OrderID)
	assert.True(t, strings.HasPrefix(res.OrderNumber, "ORD-"))
	assert.Equal(t, model.CheckoutStepConfirmation, res.State.Step)
	assert.True(t, res.State.Completed)
	assert.False(t, res.State.IsProcessingPayment)

	//成功したらカートは空
	items, err := env.cart.Items(ctx, "s1")
	assert.NoError(t, err)
	assert.Empty(t, items)

	env.orders.AssertExpectations(t)
	env.orderItems.AssertExpectations(t)
	env.addresses.AssertExpectations(t)
}

// 完了後の再送信は既存の注文番号を返すだけで、注文は増えない
func TestCheckout_PlaceOrderAfterCompletionReturnsSameNumber(t *testing.T) {
	env := newCheckoutEnv()
	ctx := context.Background()

	advanceToReview(t, env, "s1")
	_, err := env.uc.AcceptTerms(ctx, "s1", true)
	assert.NoError(t, err)

	env.tx.On("WithinTx", mock.Anything).Return(nil)
	env.users.On("FindByEmail", mock.Anything, mock.Anything).Return(model.User{ID: 42}, nil)
	env.addresses.On("Upsert", mock.Anything, mock.Anything).Return(model.Address{ID: 1}, nil)
	env.orders.On("Create", mock.Anything, mock.Anything).Return(int64(10), nil)
	env.orderItems.On("CreateBulk", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	first, err := env.uc.PlaceOrder(ctx, "s1", 0)
	assert.NoError(t, err)
	assert.True(t, first.Placed)

	second, err := env.uc.PlaceOrder(ctx, "s1", 0)
	assert.NoError(t, err)
	assert.True(t, second.Placed)
	assert.Equal(t, first.OrderNumber, second.OrderNumber)

	env.orders.AssertNumberOfCalls(t, "Create", 1)
}

// 処理中フラグが立っている間は何もしない
func TestCheckout_PlaceOrderWhileProcessingIsNoop(t *testing.T) {
	env := newCheckoutEnv()
	ctx := context.Background()

	advanceToReview(t, env, "s1")
	_, err := env.uc.AcceptTerms(ctx, "s1", true)
	assert.NoError(t, err)

	//保存済み状態に直接ガードを立てる
	out, err := env.store.Load(ctx, "checkout:s1")
	assert.NoError(t, err)
	var state model.CheckoutState
	assert.NoError(t, json.Unmarshal([]byte(out), &state))
	state.IsProcessingPayment = true
	raw, _ := json.Marshal(state)
	assert.NoError(t, env.store.Save(ctx, "checkout:s1", string(raw)))

	res, err := env.uc.PlaceOrder(ctx, "s1", 0)
	assert.NoError(t, err)
	assert.False(t, res.Placed)
	assert.False(t, res.PreconditionFailed)
	env.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// 失敗してもガードは必ず解除され、REVIEWに留まる
func TestCheckout_PlaceOrderFailureClearsGuard(t *testing.T) {
	env := newCheckoutEnv()
	ctx := context.Background()

	advanceToReview(t, env, "s1")
	_, err := env.uc.AcceptTerms(ctx, "s1", true)
	assert.NoError(t, err)

	env.tx.On("WithinTx", mock.Anything).Return(nil)
	env.users.On("FindByEmail", mock.Anything, mock.Anything).Return(model.User{ID: 42}, nil)
	env.addresses.On("Upsert", mock.Anything, mock.Anything).Return(model.Address{ID: 1}, nil)
	env.orders.On("Create", mock.Anything, mock.Anything).Return(int64(0), errors.New("insert failed"))

	_, err = env.uc.PlaceOrder(ctx, "s1", 0)
	assert.Error(t, err)

	out, gerr := env.uc.Get(ctx, "s1")
	assert.NoError(t, gerr)
	assert.Equal(t, model.CheckoutStepReview, out.State.Step)
	assert.False(t, out.State.Completed)
	assert.False(t, out.State.IsProcessingPayment)

	//カートは残る
	items, ierr := env.cart.Items(ctx, "s1")
	assert.NoError(t, ierr)
	assert.Len(t, items, 1)
}

// price=50×qty=2 の小計100にFIXED 20を適用すると、
// 税は割引後の80に掛かり、合計は 80 + 税 + 送料。
func TestCheckout_FixedDiscountTotals(t *testing.T) {
	env := newCheckoutEnv()
	ctx := context.Background()

	_, err := env.cart.AddItem(ctx, "s1", addInput(1, 50, 2, "", ""))
	assert.NoError(t, err)

	env.discounts.On("FindByCode", mock.Anything, "SAVE20").Return(model.Discount{
		ID:       1,
		Code:     "SAVE20",
		Type:     model.DiscountTypeFixed,
		Value:    20,
		IsActive: true,
	}, nil)

	out, err := env.uc.ApplyDiscount(ctx, "s1", "SAVE20")
	assert.NoError(t, err)
	assert.Equal(t, "SAVE20", out.State.DiscountCode)
	assert.Equal(t, int64(100), out.Totals.Subtotal)
	assert.Equal(t, int64(20), out.Totals.DiscountAmount)
	assert.Equal(t, int64(0), out.Totals.ShippingCost)
	assert.Equal(t, int64(8), out.Totals.TaxAmount)
	assert.Equal(t, int64(88), out.Totals.Total)

	//外せば割引前の合計に正確に戻る
	out, err = env.uc.RemoveDiscount(ctx, "s1")
	assert.NoError(t, err)
	assert.Empty(t, out.State.DiscountCode)
	assert.Equal(t, int64(0), out.Totals.DiscountAmount)
	assert.Equal(t, int64(10), out.Totals.TaxAmount)
	assert.Equal(t, int64(110), out.Totals.Total)
}

// SHIPPING型の割引は送料からだけ引く（小計と税は変わらない）
func TestCheckout_ShippingDiscountReducesShippingOnly(t *testing.T) {
	env := newCheckoutEnv()
	ctx := context.Background()

	_, err := env.cart.AddItem(ctx, "s1", addInput(1, 1000, 1, "", ""))
	assert.NoError(t, err)

	_, err = env.uc.SubmitShipping(ctx, "s1", validShippingInfo(), model.ShippingMethodExpress)
	assert.NoError(t, err)

	env.discounts.On("FindByCode", mock.Anything, "FREESHIP").Return(model.Discount{
		ID:       2,
		Code:     "FREESHIP",
		Type:     model.DiscountTypeShipping,
		Value:    2000,
		IsActive: true,
	}, nil)

	out, err := env.uc.ApplyDiscount(ctx, "s1", "FREESHIP")
	assert.NoError(t, err)
	//割引額は送料を超えない
	assert.Equal(t, int64(1500), out.Totals.DiscountAmount)
	assert.Equal(t, int64(0), out.Totals.ShippingCost)
	assert.Equal(t, int64(1000), out.Totals.Subtotal)
	assert.Equal(t, int64(100), out.Totals.TaxAmount)
	assert.Equal(t, int64(1100), out.Totals.Total)
}

// 適用中に条件を外れたコードは合計計算で静かに無視される
func TestCheckout_StaleDiscountIgnoredInTotals(t *testing.T) {
	env := newCheckoutEnv()
	ctx := context.Background()

	_, err := env.cart.AddItem(ctx, "s1", addInput(1, 1000, 1, "", ""))
	assert.NoError(t, err)

	env.discounts.On("FindByCode", mock.Anything, "GONE").Return(model.Discount{}, repo.ErrNotFound)

	//状態に直接コードを残しておく（適用後に削除されたケース）
	state := model.NewCheckoutState()
	state.DiscountCode = "GONE"
	raw, _ := json.Marshal(state)
	assert.NoError(t, env.store.Save(ctx, "checkout:s1", string(raw)))

	out, err := env.uc.Get(ctx, "s1")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), out.Totals.DiscountAmount)
	assert.Equal(t, int64(1100), out.Totals.Total)
}

// 注文確定で割引の使用回数が+1される
func TestCheckout_PlaceOrderIncrementsDiscountUse(t *testing.T) {
	env := newCheckoutEnv()
	ctx := context.Background()

	advanceToReview(t, env, "s1")
	_, err := env.uc.AcceptTerms(ctx, "s1", true)
	assert.NoError(t, err)

	env.discounts.On("FindByCode", mock.Anything, "SAVE20").Return(model.Discount{
		ID:       7,
		Code:     "SAVE20",
		Type:     model.DiscountTypeFixed,
		Value:    20,
		IsActive: true,
	}, nil)
	env.discounts.On("IncrementUsedCount", mock.Anything, int64(7)).Return(nil)

	_, err = env.uc.ApplyDiscount(ctx, "s1", "SAVE20")
	assert.NoError(t, err)

	env.tx.On("WithinTx", mock.Anything).Return(nil)
	env.users.On("FindByEmail", mock.Anything, mock.Anything).Return(model.User{ID: 42}, nil)
	env.addresses.On("Upsert", mock.Anything, mock.Anything).Return(model.Address{ID: 1}, nil)
	env.orders.On("Create", mock.Anything, mock.Anything).Return(int64(11), nil)
	env.orderItems.On("CreateBulk", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := env.uc.PlaceOrder(ctx, "s1", 0)
	assert.NoError(t, err)
	assert.True(t, res.Placed)

	env.discounts.AssertCalled(t, "IncrementUsedCount", mock.Anything, int64(7))
}
