package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/feastverse/backend/internal/model"
)

// CurrentUserGetter は認証済みユーザーの取得インターフェース。
type CurrentUserGetter interface {
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
}

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// UpdateProfile は指定フィールドのみを更新する。
	UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch) (*model.User, error)
	// SetAvatar はアバター画像をアップロードしてプロフィールに反映する。
	SetAvatar(ctx context.Context, userID, filename, contentType string, body io.Reader) (*model.User, error)
	// GetByUsername は公開プロフィールを取得する。
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// FollowRestaurant / UnfollowRestaurant / SubscribeRestaurant /
	// UnsubscribeRestaurant はレストランとの関係を操作する。いずれも冪等。
	FollowRestaurant(ctx context.Context, userID, restaurantID string) error
	UnfollowRestaurant(ctx context.Context, userID, restaurantID string) error
	SubscribeRestaurant(ctx context.Context, userID, restaurantID string) error
	UnsubscribeRestaurant(ctx context.Context, userID, restaurantID string) error
}

// UserHandler はユーザープロフィールのHTTPハンドラー。
type UserHandler struct {
	service       UserServiceInterface
	currentUser   CurrentUserGetter
	uploadMaxSize int64
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, currentUser CurrentUserGetter, uploadMaxSize int64) *UserHandler {
	return &UserHandler{
		service:       service,
		currentUser:   currentUser,
		uploadMaxSize: uploadMaxSize,
	}
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Picture   string     `json:"picture,omitempty"`
	Username  string     `json:"username,omitempty"`
	Bio       string     `json:"bio,omitempty"`
	Website   string     `json:"website,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// publicUserResponse は公開プロフィールのAPIレスポンス。
// メールアドレス・電話番号は本人以外に公開しない。
type publicUserResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Picture  string `json:"picture,omitempty"`
	Username string `json:"username"`
	Bio      string `json:"bio,omitempty"`
	Website  string `json:"website,omitempty"`
}

// toUserResponse はドメインのUserをAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Picture:   user.Picture,
		Username:  user.Username,
		Bio:       user.Bio,
		Website:   user.Website,
		Phone:     user.Phone,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// Me は現在のログインユーザー情報を返す。
// GET /api/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.currentUser.CurrentUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// nilのフィールドは変更されない。
type updateProfileRequest struct {
	Username *string `json:"username"`
	Bio      *string `json:"bio"`
	Website  *string `json:"website"`
	Phone    *string `json:"phone"`
}

// UpdateMe はプロフィールの部分更新を処理する。
// PATCH /api/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, model.ProfilePatch{
		Username: req.Username,
		Bio:      req.Bio,
		Website:  req.Website,
		Phone:    req.Phone,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UploadAvatar はアバター画像のアップロードを処理する。
// POST /api/me/avatar (multipart/form-data, field: file)
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	file, header, ok := openUploadedFile(w, r, h.uploadMaxSize)
	if !ok {
		return
	}
	defer file.Close()

	user, err := h.service.SetAvatar(r.Context(), userID,
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// PublicProfile はユーザー名で公開プロフィールを返す。
// GET /api/users/{username}
func (h *UserHandler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := h.service.GetByUsername(r.Context(), username)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, publicUserResponse{
		ID:       user.ID,
		Name:     user.Name,
		Picture:  user.Picture,
		Username: user.Username,
		Bio:      user.Bio,
		Website:  user.Website,
	})
}

// FollowRestaurant はレストランのフォローを処理する。
// POST /api/restaurants/{id}/follow
func (h *UserHandler) FollowRestaurant(w http.ResponseWriter, r *http.Request) {
	h.relationOp(w, r, h.service.FollowRestaurant)
}

// UnfollowRestaurant はフォロー解除を処理する。
// DELETE /api/restaurants/{id}/follow
func (h *UserHandler) UnfollowRestaurant(w http.ResponseWriter, r *http.Request) {
	h.relationOp(w, r, h.service.UnfollowRestaurant)
}

// SubscribeRestaurant はレストランの購読を処理する。
// POST /api/restaurants/{id}/subscribe
func (h *UserHandler) SubscribeRestaurant(w http.ResponseWriter, r *http.Request) {
	h.relationOp(w, r, h.service.SubscribeRestaurant)
}

// UnsubscribeRestaurant は購読解除を処理する。
// DELETE /api/restaurants/{id}/subscribe
func (h *UserHandler) UnsubscribeRestaurant(w http.ResponseWriter, r *http.Request) {
	h.relationOp(w, r, h.service.UnsubscribeRestaurant)
}

// relationOp はレストランとの関係操作の共通処理。
func (h *UserHandler) relationOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, restaurantID string) error) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	restaurantID := chi.URLParam(r, "id")
	if err := op(r.Context(), userID, restaurantID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
