package model

// チェックアウトの段階。1→4の一方向で、飛ばして進むことはできない。
const (
	CheckoutStepShipping     = 1
	CheckoutStepPayment      = 2
	CheckoutStepReview       = 3
	CheckoutStepConfirmation = 4
)

type ShippingMethod string

const (
	//通常配送（送料0）
	ShippingMethodStandard ShippingMethod = "standard"
	//速達（固定の追加料金）
	ShippingMethodExpress ShippingMethod = "express"
)

// 配送先の入力。submitShippingで必須チェックする。
type ShippingInfo struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
}

// チェックアウトの進行状態。遷移のたびにセッションストアへ丸ごと保存するので、
// リロードしても同じステップから再開できる。
// Completed+OrderNumberは完了後の再表示用（戻ってきても再注文しない）。
type CheckoutState struct {
	Step           int            `json:"step"`
	ShippingInfo   *ShippingInfo  `json:"shipping_info,omitempty"`
	ShippingMethod ShippingMethod `json:"shipping_method,omitempty"`
	TermsAccepted  bool           `json:"terms_accepted"`

	//適用中の割引コード（1つだけ）
	DiscountCode string `json:"discount_code,omitempty"`

	//二重送信ガード
	IsProcessingPayment bool `json:"is_processing_payment"`

	Completed   bool   `json:"completed"`
	OrderNumber string `json:"order_number,omitempty"`
}

// 初期状態
func NewCheckoutState() CheckoutState {
	return CheckoutState{Step: CheckoutStepShipping}
}
