package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/feastverse/backend/internal/model"
)

// ReelServiceInterface はリールハンドラーが必要とするサービスインターフェース。
type ReelServiceInterface interface {
	// List はリール一覧を投稿者情報・いいね数付きで返す。
	List(ctx context.Context, skip, limit int) ([]model.ReelWithAuthor, error)
	// Get は指定IDのリールを投稿者情報・いいね数付きで取得する。
	Get(ctx context.Context, reelID string) (*model.ReelWithAuthor, error)
	// Upload は動画をアップロードしてからリールを作成する。
	Upload(ctx context.Context, userID, restaurantID, title, filename, contentType string, body io.Reader) (*model.Reel, error)
	// Delete はリールを削除する。
	Delete(ctx context.Context, userID, reelID string) error
	// Like / Unlike はいいねを操作し、最新のいいね数を返す。いずれも冪等。
	Like(ctx context.Context, userID, reelID string) (int, error)
	Unlike(ctx context.Context, userID, reelID string) (int, error)
}

// ReelHandler はリールのHTTPハンドラー。
type ReelHandler struct {
	service       ReelServiceInterface
	uploadMaxSize int64
}

// NewReelHandler はReelHandlerを生成する。
func NewReelHandler(service ReelServiceInterface, uploadMaxSize int64) *ReelHandler {
	return &ReelHandler{
		service:       service,
		uploadMaxSize: uploadMaxSize,
	}
}

// reelResponse はリールのAPIレスポンス。
type reelResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	RestaurantID string    `json:"restaurant_id,omitempty"`
	Title        string    `json:"title"`
	VideoURL     string    `json:"video_url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// reelWithAuthorResponse は投稿者情報・いいね数付きリールのAPIレスポンス。
type reelWithAuthorResponse struct {
	reelResponse
	Likes        int    `json:"likes"`
	UserName     string `json:"user_name"`
	UserUsername string `json:"user_username"`
	UserPicture  string `json:"user_picture,omitempty"`
}

// toReelResponse はドメインのReelをAPIレスポンスに変換する。
func toReelResponse(reel *model.Reel) reelResponse {
	return reelResponse{
		ID:           reel.ID,
		UserID:       reel.UserID,
		RestaurantID: reel.RestaurantID,
		Title:        reel.Title,
		VideoURL:     reel.VideoURL,
		ThumbnailURL: reel.ThumbnailURL,
		CreatedAt:    reel.CreatedAt,
	}
}

// List はリール一覧を返す。
// GET /api/reels?skip=0&limit=50
func (h *ReelHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	reels, err := h.service.List(r.Context(), skip, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]reelWithAuthorResponse, len(reels))
	for i, reel := range reels {
		resp[i] = reelWithAuthorResponse{
			reelResponse: toReelResponse(&reel.Reel),
			Likes:        reel.Likes,
			UserName:     reel.UserName,
			UserUsername: reel.UserUsername,
			UserPicture:  reel.UserPicture,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get はリールの単体取得を処理する。
// GET /api/reels/{id}
func (h *ReelHandler) Get(w http.ResponseWriter, r *http.Request) {
	reelID := chi.URLParam(r, "id")

	reel, err := h.service.Get(r.Context(), reelID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, reelWithAuthorResponse{
		reelResponse: toReelResponse(&reel.Reel),
		Likes:        reel.Likes,
		UserName:     reel.UserName,
		UserUsername: reel.UserUsername,
		UserPicture:  reel.UserPicture,
	})
}

// Upload はリールの投稿を処理する。
// POST /api/reels (multipart/form-data, fields: file, title, restaurant_id)
func (h *ReelHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	file, header, ok := openUploadedFile(w, r, h.uploadMaxSize)
	if !ok {
		return
	}
	defer file.Close()

	title := r.FormValue("title")
	restaurantID := r.FormValue("restaurant_id")

	reel, err := h.service.Upload(r.Context(), userID, restaurantID, title,
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReelResponse(reel))
}

// Delete はリール削除を処理する。
// DELETE /api/reels/{id}
func (h *ReelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	reelID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, reelID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// likesResponse はいいね操作後の最新いいね数のレスポンス。
type likesResponse struct {
	Likes int `json:"likes"`
}

// Like はいいねの追加を処理する。
// POST /api/reels/{id}/like
func (h *ReelHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.likeOp(w, r, h.service.Like)
}

// Unlike はいいねの取り消しを処理する。
// DELETE /api/reels/{id}/like
func (h *ReelHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.likeOp(w, r, h.service.Unlike)
}

// likeOp はいいね操作の共通処理。
func (h *ReelHandler) likeOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, reelID string) (int, error)) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	reelID := chi.URLParam(r, "id")

	likes, err := op(r.Context(), userID, reelID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, likesResponse{Likes: likes})
}
