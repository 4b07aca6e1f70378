// Package model はドメインモデルを定義する。
package model

import "time"

// Review はレストランへのレビューを表す。
// 同一の(UserID, RestaurantID)の組に対して最大1件という不変条件を持つ。
type Review struct {
	ID           string
	UserID       string
	RestaurantID string
	Rating       int // 整数スケール（1〜5）
	Text         string // サニタイズ済み
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// ReviewWithAuthor はレビューと投稿者の表示情報を結合したモデル。
// usersテーブルとJOINして取得される。
type ReviewWithAuthor struct {
	Review
	UserName   string
	UserAvatar string
}
