package model

import "fmt"

// カートの明細。セッションストアにJSONで丸ごと保存する（DB行ではない）。
// IDは (product_id, size, color) から決定的に作るので、
// 同じ商品・同じバリエーションの追加は1件にマージされる。
type CartItem struct {
	ID        string `json:"id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	Image     string `json:"image"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	//割引のカテゴリ判定に使う
	Category string `json:"category,omitempty"`
}

// マージキー生成。size/colorが無いバリエーションは空文字のまま。
func CartItemID(productID int64, size, color string) string {
	return fmt.Sprintf("%d-%s-%s", productID, size, color)
}
