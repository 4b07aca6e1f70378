// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/feastverse/backend/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
// subject_idとusernameの一意性はストレージ層のUNIQUE制約が最終的に保証し、
// 制約違反はドメインエラー（AlreadyRegistered / UsernameTaken）に変換される。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindBySubjectID は連合IDでユーザーを検索する。見つからない場合はnilを返す。
	FindBySubjectID(ctx context.Context, subjectID string) (*model.User, error)

	// FindByUsername は正規化済みユーザー名でユーザーを検索する。
	// 見つからない場合はnilを返す。呼び出し側が正規化を済ませていること。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	// subject_id重複はAlreadyRegistered、username重複はUsernameTakenを返す。
	Create(ctx context.Context, user *model.User) error

	// UpdateProfile は指定フィールドのみを単一のUPDATEで適用し、
	// updated_atを設定した上で更新後のユーザーを返す。
	// username重複はUsernameTakenを返す。
	UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch, now time.Time) (*model.User, error)

	// FollowRestaurant はレストランをフォローする。冪等。
	FollowRestaurant(ctx context.Context, userID, restaurantID string) error
	// UnfollowRestaurant はレストランのフォローを解除する。冪等。
	UnfollowRestaurant(ctx context.Context, userID, restaurantID string) error
	// SubscribeRestaurant はレストランを購読する。冪等。
	SubscribeRestaurant(ctx context.Context, userID, restaurantID string) error
	// UnsubscribeRestaurant はレストランの購読を解除する。冪等。
	UnsubscribeRestaurant(ctx context.Context, userID, restaurantID string) error
}

// RestaurantRepository はレストランデータの永続化インターフェース。
type RestaurantRepository interface {
	// FindByID は指定IDのレストランをメニュー付きで取得する。
	// 見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Restaurant, error)

	// List はレストラン一覧をメニュー付きで取得する。
	List(ctx context.Context, skip, limit int) ([]*model.Restaurant, error)

	// Create はレストランを作成する。
	Create(ctx context.Context, restaurant *model.Restaurant) error

	// AddMenuItem はレストランにメニュー項目を追加する。
	AddMenuItem(ctx context.Context, restaurantID string, item model.MenuItem) error

	// UpdateRating はレストランの評価を書き込む。
	// Rating Aggregatorのみが呼び出す。他の経路からratingを書き込んではならない。
	UpdateRating(ctx context.Context, restaurantID string, rating float64) error
}

// ReviewRepository はレビューデータの永続化インターフェース。
type ReviewRepository interface {
	// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Review, error)

	// FindByUserAndRestaurant はユーザーIDとレストランIDでレビューを検索する。
	// 見つからない場合はnilを返す。
	FindByUserAndRestaurant(ctx context.Context, userID, restaurantID string) (*model.Review, error)

	// ListByRestaurant はレストランのレビュー一覧を投稿者情報付きで返す。
	ListByRestaurant(ctx context.Context, restaurantID string, limit int) ([]model.ReviewWithAuthor, error)

	// ListByUser はユーザーのレビュー一覧を返す。
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Review, error)

	// ListRatingsByRestaurant はレストランの全レビューのrating値を返す。
	// Rating Aggregatorの再計算入力。
	ListRatingsByRestaurant(ctx context.Context, restaurantID string) ([]int, error)

	// Create はレビューを作成する。
	// (user_id, restaurant_id)の重複はDuplicateReviewを返す。
	Create(ctx context.Context, review *model.Review) error

	// Delete は指定IDのレビューを削除する。
	Delete(ctx context.Context, id string) error
}

// ReelRepository はリールデータの永続化インターフェース。
type ReelRepository interface {
	// FindByID は指定IDのリールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Reel, error)

	// FindWithAuthor は指定IDのリールを投稿者情報・いいね数付きで取得する。
	// 見つからない場合はnilを返す。
	FindWithAuthor(ctx context.Context, id string) (*model.ReelWithAuthor, error)

	// List はリール一覧を投稿者情報・いいね数付きでcreated_at降順に返す。
	List(ctx context.Context, skip, limit int) ([]model.ReelWithAuthor, error)

	// Create はリールを作成する。
	Create(ctx context.Context, reel *model.Reel) error

	// Delete は指定IDのリールを削除する。
	Delete(ctx context.Context, id string) error

	// Like はいいねを追加する。冪等。
	Like(ctx context.Context, userID, reelID string) error

	// Unlike はいいねを取り消す。冪等。
	Unlike(ctx context.Context, userID, reelID string) error

	// CountLikes はリールのいいね数を返す。
	CountLikes(ctx context.Context, reelID string) (int, error)
}

// StoryRepository はストーリーデータの永続化インターフェース。
// 失効済みストーリーの物理削除はクリーンアップジョブが担う。
type StoryRepository interface {
	// ListActive は失効していないストーリーを投稿者情報付きで
	// created_at降順に返す。
	ListActive(ctx context.Context, now time.Time, limit int) ([]model.StoryWithAuthor, error)

	// Create はストーリーを作成する。
	Create(ctx context.Context, story *model.Story) error

	// ListExpired は失効済みストーリーを返す。クリーンアップジョブの入力。
	ListExpired(ctx context.Context, now time.Time) ([]model.Story, error)

	// Delete は指定IDのストーリーを削除する。
	Delete(ctx context.Context, id string) error
}

// OrderRepository は注文データの永続化インターフェース。
type OrderRepository interface {
	// FindByIDAndUser は指定IDかつ指定ユーザーの注文を明細付きで取得する。
	// 見つからない場合はnilを返す。注文は所有ユーザーにのみ見える。
	FindByIDAndUser(ctx context.Context, orderID, userID string) (*model.Order, error)

	// ListByUser はユーザーの注文一覧を明細付きでcreated_at降順に返す。
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.Order, error)

	// Create は注文と明細を同一トランザクションで作成する。
	Create(ctx context.Context, order *model.Order) error

	// UpdateStatus は注文ステータスを更新し、updated_atを設定する。
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus, now time.Time) error
}
