package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/feastverse/backend/internal/model"
	"github.com/feastverse/backend/internal/order"
)

// OrderServiceInterface は注文ハンドラーが必要とするサービスインターフェース。
type OrderServiceInterface interface {
	// Create は注文を作成する。初期ステータスはpreparing。
	Create(ctx context.Context, userID string, input order.CreateInput) (*model.Order, error)
	// List はユーザーの注文一覧を返す。
	List(ctx context.Context, userID string) ([]*model.Order, error)
	// Get は指定IDの注文を取得する。
	Get(ctx context.Context, userID, orderID string) (*model.Order, error)
	// Advance は注文ステータスを次の状態へ進める。
	Advance(ctx context.Context, userID, orderID string) (*model.Order, error)
}

// OrderHandler は注文のHTTPハンドラー。
type OrderHandler struct {
	service OrderServiceInterface
}

// NewOrderHandler はOrderHandlerを生成する。
func NewOrderHandler(service OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: service}
}

// orderItemResponse は注文明細のAPIレスポンス。
type orderItemResponse struct {
	MenuItemID string  `json:"menu_item_id,omitempty"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
}

// orderResponse は注文のAPIレスポンス。
type orderResponse struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	Items     []orderItemResponse `json:"items"`
	Total     float64             `json:"total"`
	ETAMins   int                 `json:"eta_mins"`
	Status    string              `json:"status"`
	Address   string              `json:"address"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt *time.Time          `json:"updated_at,omitempty"`
}

// toOrderResponse はドメインのOrderをAPIレスポンスに変換する。
func toOrderResponse(o *model.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Price:      item.Price,
		}
	}
	return orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		Items:     items,
		Total:     o.Total,
		ETAMins:   o.ETAMins,
		Status:    string(o.Status),
		Address:   o.Address,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// createOrderRequest は注文作成リクエストのボディ。
type createOrderRequest struct {
	RestaurantID string                   `json:"restaurant_id"`
	Items        []createOrderItemRequest `json:"items"`
	Total        float64                  `json:"total"`
	ETAMins      int                      `json:"eta_mins"`
	Address      string                   `json:"address"`
}

// createOrderItemRequest は注文明細のリクエスト。
type createOrderItemRequest struct {
	MenuItemID string  `json:"menu_item_id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
}

// Create は注文作成を処理する。
// POST /api/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	items := make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = model.OrderItem{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Price:      item.Price,
		}
	}

	created, err := h.service.Create(r.Context(), userID, order.CreateInput{
		RestaurantID: req.RestaurantID,
		Items:        items,
		Total:        req.Total,
		ETAMins:      req.ETAMins,
		Address:      req.Address,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(created))
}

// List はユーザーの注文一覧を返す。
// GET /api/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	orders, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get は注文の詳細を返す。
// GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	orderID := chi.URLParam(r, "id")

	o, err := h.service.Get(r.Context(), userID, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// Advance は注文ステータスの遷移を処理する。
// POST /api/orders/{id}/advance
func (h *OrderHandler) Advance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	orderID := chi.URLParam(r, "id")

	o, err := h.service.Advance(r.Context(), userID, orderID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
