// Package model はドメインモデルを定義する。
package model

import "time"

// Reel はショート動画投稿を表す。
type Reel struct {
	ID           string
	UserID       string
	RestaurantID string // 任意。空文字列の場合は紐付けなし。
	Title        string
	VideoURL     string
	ThumbnailURL string
	// MediaPublicID はメディアホスト上の識別子。削除時に使用する。
	MediaPublicID string
	CreatedAt     time.Time
}

// ReelWithAuthor はリールと投稿者の表示情報、いいね数を結合したモデル。
type ReelWithAuthor struct {
	Reel
	Likes        int
	UserName     string
	UserUsername string
	UserPicture  string
}
