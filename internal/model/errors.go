// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, restaurant, review, order, media, system
	Action   string // ユーザー向け対処方法

	cause error // 診断用の原因エラー。レスポンスには含めない。
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap はラップされた原因エラーを返す。InvalidCredential等の診断用。
func (e *APIError) Unwrap() error {
	return e.cause
}

// WithCause は原因エラーを添付したコピーを返す。
// メッセージには反映せず、ログ・診断のためにのみ保持する。
func (e *APIError) WithCause(cause error) *APIError {
	copied := *e
	copied.cause = cause
	return &copied
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredential  = "INVALID_CREDENTIAL"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeUsernameTaken      = "USERNAME_TAKEN"
	ErrCodeAlreadyRegistered  = "ALREADY_REGISTERED"
	ErrCodeNotRegistered      = "NOT_REGISTERED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeRestaurantNotFound = "RESTAURANT_NOT_FOUND"
	ErrCodeReviewNotFound     = "REVIEW_NOT_FOUND"
	ErrCodeDuplicateReview    = "DUPLICATE_REVIEW"
	ErrCodeReelNotFound       = "REEL_NOT_FOUND"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeUploadFailed       = "UPLOAD_FAILED"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
)

// NewInvalidCredentialError は連合認証の資格情報検証失敗エラーを生成する。
// 原因はWithCauseで添付され、レスポンスには含まれない。
func NewInvalidCredentialError(cause error) *APIError {
	return (&APIError{
		Code:     ErrCodeInvalidCredential,
		Message:  "サインインに失敗しました。",
		Category: "auth",
		Action:   "もう一度サインインしてください。",
	}).WithCause(cause)
}

// NewUnauthorizedError は認証エラーを生成する。
// 署名不一致・不正な形式・期限切れのいずれであっても同一のエラーに集約し、
// 失敗理由を外部に漏らさない。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewUsernameTakenError はユーザー名重複エラーを生成する。
func NewUsernameTakenError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUsernameTaken,
		Message:  fmt.Sprintf("ユーザー名は既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名を選択してください。",
	}
}

// NewAlreadyRegisteredError は登録済みユーザーのサインアップエラーを生成する。
func NewAlreadyRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyRegistered,
		Message:  "このアカウントは既に登録されています。",
		Category: "auth",
		Action:   "ログインをお使いください。",
	}
}

// NewNotRegisteredError は未登録ユーザーのログインエラーを生成する。
func NewNotRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeNotRegistered,
		Message:  "このアカウントは登録されていません。",
		Category: "auth",
		Action:   "先にサインアップしてください。",
	}
}

// NewForbiddenError は所有者以外による変更操作のエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を実行する権限がありません。",
		Category: "auth",
		Action:   "自分が作成したリソースのみ変更できます。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewRestaurantNotFoundError はレストラン未検出エラーを生成する。
func NewRestaurantNotFoundError(restaurantID string) *APIError {
	return &APIError{
		Code:     ErrCodeRestaurantNotFound,
		Message:  fmt.Sprintf("指定されたレストランが見つかりません: %s", restaurantID),
		Category: "restaurant",
		Action:   "レストランIDを確認してください。",
	}
}

// NewReviewNotFoundError はレビュー未検出エラーを生成する。
func NewReviewNotFoundError(reviewID string) *APIError {
	return &APIError{
		Code:     ErrCodeReviewNotFound,
		Message:  fmt.Sprintf("指定されたレビューが見つかりません: %s", reviewID),
		Category: "review",
		Action:   "レビューIDを確認してください。",
	}
}

// NewDuplicateReviewError はレビュー重複エラーを生成する。
// 1ユーザーにつき1レストラン1レビューの不変条件に違反した場合に返す。
func NewDuplicateReviewError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateReview,
		Message:  "このレストランには既にレビューを投稿しています。",
		Category: "review",
		Action:   "既存のレビューを削除してから再投稿してください。",
	}
}

// NewReelNotFoundError はリール未検出エラーを生成する。
func NewReelNotFoundError(reelID string) *APIError {
	return &APIError{
		Code:     ErrCodeReelNotFound,
		Message:  fmt.Sprintf("指定されたリールが見つかりません: %s", reelID),
		Category: "media",
		Action:   "リールIDを確認してください。",
	}
}

// NewOrderNotFoundError は注文未検出エラーを生成する。
func NewOrderNotFoundError(orderID string) *APIError {
	return &APIError{
		Code:     ErrCodeOrderNotFound,
		Message:  fmt.Sprintf("指定された注文が見つかりません: %s", orderID),
		Category: "order",
		Action:   "注文IDを確認してください。",
	}
}

// NewUploadFailedError はメディアアップロード失敗エラーを生成する。
// レコードは作成されないため、リトライで重複は発生しない。
func NewUploadFailedError(cause error) *APIError {
	return (&APIError{
		Code:     ErrCodeUploadFailed,
		Message:  "メディアのアップロードに失敗しました。",
		Category: "media",
		Action:   "しばらく待ってから再度お試しください。",
	}).WithCause(cause)
}

// NewInvalidRequestError はリクエスト検証エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}
