package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/feastverse/backend/internal/model"
)

// ReviewServiceInterface はレビューハンドラーが必要とするサービスインターフェース。
type ReviewServiceInterface interface {
	// ListByRestaurant はレストランのレビュー一覧を投稿者情報付きで返す。
	ListByRestaurant(ctx context.Context, restaurantID string) ([]model.ReviewWithAuthor, error)
	// ListMine はユーザー自身のレビュー一覧を返す。
	ListMine(ctx context.Context, userID string) ([]*model.Review, error)
	// Create はレビューを投稿し、レストラン評価を再計算する。
	Create(ctx context.Context, userID, restaurantID string, rating int, text string) (*model.Review, error)
	// Delete はレビューを削除し、レストラン評価を再計算する。
	Delete(ctx context.Context, userID, reviewID string) error
}

// ReviewHandler はレビューのHTTPハンドラー。
type ReviewHandler struct {
	service ReviewServiceInterface
}

// NewReviewHandler はReviewHandlerを生成する。
func NewReviewHandler(service ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// reviewResponse はレビューのAPIレスポンス。
type reviewResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	RestaurantID string    `json:"restaurant_id"`
	Rating       int       `json:"rating"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
}

// reviewWithAuthorResponse は投稿者情報付きレビューのAPIレスポンス。
type reviewWithAuthorResponse struct {
	reviewResponse
	UserName   string `json:"user_name"`
	UserAvatar string `json:"user_avatar,omitempty"`
}

// toReviewResponse はドメインのReviewをAPIレスポンスに変換する。
func toReviewResponse(review *model.Review) reviewResponse {
	return reviewResponse{
		ID:           review.ID,
		UserID:       review.UserID,
		RestaurantID: review.RestaurantID,
		Rating:       review.Rating,
		Text:         review.Text,
		CreatedAt:    review.CreatedAt,
	}
}

// ListByRestaurant はレストランのレビュー一覧を返す。
// GET /api/restaurants/{id}/reviews
func (h *ReviewHandler) ListByRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "id")

	reviews, err := h.service.ListByRestaurant(r.Context(), restaurantID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]reviewWithAuthorResponse, len(reviews))
	for i, review := range reviews {
		resp[i] = reviewWithAuthorResponse{
			reviewResponse: toReviewResponse(&review.Review),
			UserName:       review.UserName,
			UserAvatar:     review.UserAvatar,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListMine はログインユーザー自身のレビュー一覧を返す。
// GET /api/me/reviews
func (h *ReviewHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	reviews, err := h.service.ListMine(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]reviewResponse, len(reviews))
	for i, review := range reviews {
		resp[i] = toReviewResponse(review)
	}
	writeJSON(w, http.StatusOK, resp)
}

// createReviewRequest はレビュー投稿リクエストのボディ。
type createReviewRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

// Create はレビュー投稿を処理する。
// POST /api/restaurants/{id}/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	restaurantID := chi.URLParam(r, "id")

	var req createReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	review, err := h.service.Create(r.Context(), userID, restaurantID, req.Rating, req.Text)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReviewResponse(review))
}

// Delete はレビュー削除を処理する。
// DELETE /api/reviews/{id}
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	reviewID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, reviewID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
