// Package model はドメインモデルを定義する。
package model

import "time"

// OrderStatus は注文の配達ステータスを表す。
type OrderStatus string

const (
	// OrderStatusPreparing は調理中ステータス。注文作成時の初期状態。
	OrderStatusPreparing OrderStatus = "preparing"
	// OrderStatusPickup は受け渡し待ちステータス。
	OrderStatusPickup OrderStatus = "pickup"
	// OrderStatusOnTheWay は配達中ステータス。
	OrderStatusOnTheWay OrderStatus = "on the way"
	// OrderStatusDelivered は配達完了ステータス。終端状態。
	OrderStatusDelivered OrderStatus = "delivered"
)

// Next は次のステータスを返す。終端（delivered）では自分自身を返す。
// 遷移は preparing → pickup → on the way → delivered の一方向のみ。
func (s OrderStatus) Next() OrderStatus {
	switch s {
	case OrderStatusPreparing:
		return OrderStatusPickup
	case OrderStatusPickup:
		return OrderStatusOnTheWay
	case OrderStatusOnTheWay:
		return OrderStatusDelivered
	default:
		return s
	}
}

// IsTerminal は終端ステータスかどうかを返す。
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered
}

// Order は注文を表す。
type Order struct {
	ID        string
	UserID    string
	Items     []OrderItem
	Total     float64
	ETAMins   int
	Status    OrderStatus
	Address   string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// OrderItem は注文の明細行を表す。
type OrderItem struct {
	MenuItemID string
	Name       string
	Quantity   int
	Price      float64
}
