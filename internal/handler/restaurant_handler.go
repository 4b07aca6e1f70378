package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/feastverse/backend/internal/model"
)

// RestaurantServiceInterface はレストランハンドラーが必要とするサービスインターフェース。
type RestaurantServiceInterface interface {
	// List はレストラン一覧をメニュー付きで返す。
	List(ctx context.Context, skip, limit int) ([]*model.Restaurant, error)
	// Get は指定IDのレストランをメニュー付きで取得する。
	Get(ctx context.Context, id string) (*model.Restaurant, error)
	// Create はレストランを登録する。
	Create(ctx context.Context, restaurant *model.Restaurant) (*model.Restaurant, error)
	// AddMenuItem はレストランにメニュー項目を追加する。
	AddMenuItem(ctx context.Context, restaurantID string, item model.MenuItem) (*model.MenuItem, error)
}

// RestaurantHandler はレストランカタログのHTTPハンドラー。
type RestaurantHandler struct {
	service RestaurantServiceInterface
}

// NewRestaurantHandler はRestaurantHandlerを生成する。
func NewRestaurantHandler(service RestaurantServiceInterface) *RestaurantHandler {
	return &RestaurantHandler{service: service}
}

// menuItemResponse はメニュー項目のAPIレスポンス。
type menuItemResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description,omitempty"`
	Image       string  `json:"image,omitempty"`
	Available   bool    `json:"available"`
}

// restaurantResponse はレストラン情報のAPIレスポンス。
type restaurantResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Cuisine     string             `json:"cuisine,omitempty"`
	Rating      float64            `json:"rating"`
	DeliveryFee float64            `json:"delivery_fee"`
	ETAMins     int                `json:"eta_mins"`
	Image       string             `json:"image,omitempty"`
	Description string             `json:"description,omitempty"`
	MenuItems   []menuItemResponse `json:"menu_items"`
	CreatedAt   time.Time          `json:"created_at"`
}

// toRestaurantResponse はドメインのRestaurantをAPIレスポンスに変換する。
func toRestaurantResponse(restaurant *model.Restaurant) restaurantResponse {
	items := make([]menuItemResponse, len(restaurant.MenuItems))
	for i, item := range restaurant.MenuItems {
		items[i] = menuItemResponse{
			ID:          item.ID,
			Name:        item.Name,
			Price:       item.Price,
			Description: item.Description,
			Image:       item.Image,
			Available:   item.Available,
		}
	}
	return restaurantResponse{
		ID:          restaurant.ID,
		Name:        restaurant.Name,
		Cuisine:     restaurant.Cuisine,
		Rating:      restaurant.Rating,
		DeliveryFee: restaurant.DeliveryFee,
		ETAMins:     restaurant.ETAMins,
		Image:       restaurant.Image,
		Description: restaurant.Description,
		MenuItems:   items,
		CreatedAt:   restaurant.CreatedAt,
	}
}

// List はレストラン一覧を返す。
// GET /api/restaurants?skip=0&limit=50
func (h *RestaurantHandler) List(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	restaurants, err := h.service.List(r.Context(), skip, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]restaurantResponse, len(restaurants))
	for i, restaurant := range restaurants {
		resp[i] = toRestaurantResponse(restaurant)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get はレストラン詳細を返す。
// GET /api/restaurants/{id}
func (h *RestaurantHandler) Get(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "id")

	restaurant, err := h.service.Get(r.Context(), restaurantID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRestaurantResponse(restaurant))
}

// createRestaurantRequest はレストラン登録リクエストのボディ。
type createRestaurantRequest struct {
	Name        string                  `json:"name"`
	Cuisine     string                  `json:"cuisine"`
	DeliveryFee float64                 `json:"delivery_fee"`
	ETAMins     int                     `json:"eta_mins"`
	Image       string                  `json:"image"`
	Description string                  `json:"description"`
	MenuItems   []createMenuItemRequest `json:"menu_items"`
}

// createMenuItemRequest はメニュー項目登録リクエストのボディ。
type createMenuItemRequest struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Available   *bool   `json:"available"`
}

// Create はレストラン登録を処理する。
// POST /api/restaurants
func (h *RestaurantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRestaurantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	items := make([]model.MenuItem, len(req.MenuItems))
	for i, item := range req.MenuItems {
		available := true
		if item.Available != nil {
			available = *item.Available
		}
		items[i] = model.MenuItem{
			Name:        item.Name,
			Price:       item.Price,
			Description: item.Description,
			Image:       item.Image,
			Available:   available,
		}
	}

	restaurant, err := h.service.Create(r.Context(), &model.Restaurant{
		Name:        req.Name,
		Cuisine:     req.Cuisine,
		DeliveryFee: req.DeliveryFee,
		ETAMins:     req.ETAMins,
		Image:       req.Image,
		Description: req.Description,
		MenuItems:   items,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRestaurantResponse(restaurant))
}

// AddMenuItem はメニュー項目の追加を処理する。
// POST /api/restaurants/{id}/menu-items
func (h *RestaurantHandler) AddMenuItem(w http.ResponseWriter, r *http.Request) {
	restaurantID := chi.URLParam(r, "id")

	var req createMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	available := true
	if req.Available != nil {
		available = *req.Available
	}

	item, err := h.service.AddMenuItem(r.Context(), restaurantID, model.MenuItem{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		Image:       req.Image,
		Available:   available,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, menuItemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Price:       item.Price,
		Description: item.Description,
		Image:       item.Image,
		Available:   item.Available,
	})
}
