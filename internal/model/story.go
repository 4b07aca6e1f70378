// Package model はドメインモデルを定義する。
package model

import "time"

// Story は24時間で失効する画像投稿を表す。
// ExpiresAtを過ぎたストーリーは一覧から除外され、
// クリーンアップジョブが物理削除する。
type Story struct {
	ID       string
	UserID   string
	ImageURL string
	// MediaPublicID はメディアホスト上の識別子。削除時に使用する。
	MediaPublicID string
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// StoryWithAuthor はストーリーと投稿者の表示情報を結合したモデル。
type StoryWithAuthor struct {
	Story
	UserName     string
	UserUsername string
	UserPicture  string
}
