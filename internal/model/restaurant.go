// Package model はドメインモデルを定義する。
package model

import "time"

// Restaurant はレストランを表す。
// Ratingは派生値であり、レビューの追加・削除時にRating Aggregatorが
// 再計算して書き込む。クライアントから直接設定されることはない。
type Restaurant struct {
	ID          string
	Name        string
	Cuisine     string
	Rating      float64
	DeliveryFee float64
	ETAMins     int
	Image       string
	Description string
	MenuItems   []MenuItem
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// MenuItem はレストランのメニュー項目を表す。
type MenuItem struct {
	ID          string
	Name        string
	Price       float64
	Description string
	Image       string
	Available   bool
}
