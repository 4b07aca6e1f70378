// Package model はドメインモデルを定義する。
package model

import (
	"strings"
	"time"
)

// NormalizeUsername はユーザー名を正規化する（前後空白除去 + 小文字化）。
// 一意性判定・保存・検索のすべてが正規化後の値で行われる。
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// User はサービス利用ユーザーを表す。
// SubjectIDは外部IdP（Google）が発行する一意な識別子で、
// 連合認証の正規化済みクレームから設定される。
type User struct {
	ID        string
	SubjectID string
	Email     string
	Name      string
	Picture   string
	Username  string // 正規化済み（trim + 小文字）。未設定の場合は空文字列。
	Bio       string
	Website   string
	Phone     string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// IdentityClaims は外部IdPの資格情報検証後に得られる正規化済みクレーム。
// IDトークン経路・アクセストークン経路のどちらで検証されても同じ形になる。
type IdentityClaims struct {
	SubjectID     string
	Email         string
	Name          string
	Picture       string
	EmailVerified bool
}

// ProfilePatch はプロフィール更新の部分指定を表す。
// nilのフィールドは変更しない。
type ProfilePatch struct {
	Username *string
	Bio      *string
	Website  *string
	Phone    *string
	Picture  *string
}

// IsEmpty は全フィールドが未指定かどうかを返す。
func (p ProfilePatch) IsEmpty() bool {
	return p.Username == nil && p.Bio == nil && p.Website == nil &&
		p.Phone == nil && p.Picture == nil
}
