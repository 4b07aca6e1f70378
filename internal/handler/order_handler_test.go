package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/feastverse/backend/internal/model"
	"github.com/feastverse/backend/internal/order"
)

// mockOrderService はOrderServiceInterfaceのモック実装。
type mockOrderService struct {
	createFn  func(ctx context.Context, userID string, input order.CreateInput) (*model.Order, error)
	listFn    func(ctx context.Context, userID string) ([]*model.Order, error)
	getFn     func(ctx context.Context, userID, orderID string) (*model.Order, error)
	advanceFn func(ctx context.Context, userID, orderID string) (*model.Order, error)
}

func (m *mockOrderService) Create(ctx context.Context, userID string, input order.CreateInput) (*model.Order, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, input)
	}
	return nil, nil
}

func (m *mockOrderService) List(ctx context.Context, userID string) ([]*model.Order, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockOrderService) Get(ctx context.Context, userID, orderID string) (*model.Order, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, orderID)
	}
	return nil, nil
}

func (m *mockOrderService) Advance(ctx context.Context, userID, orderID string) (*model.Order, error) {
	if m.advanceFn != nil {
		return m.advanceFn(ctx, userID, orderID)
	}
	return nil, nil
}

func testOrder() *model.Order {
	return &model.Order{
		ID:     "order-1",
		UserID: "user-123",
		Items: []model.OrderItem{
			{MenuItemID: "menu-1", Name: "Salmon Roll", Quantity: 2, Price: 980},
		},
		Total:   1960,
		ETAMins: 30,
		Status:  model.OrderStatusPreparing,
		Address: "東京都渋谷区1-2-3",
	}
}

// --- POST /api/orders テスト ---

func TestOrderHandler_Create_Success(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(ctx context.Context, userID string, input order.CreateInput) (*model.Order, error) {
			if userID != "user-123" {
				t.Errorf("userID = %q, want %q", userID, "user-123")
			}
			if len(input.Items) != 1 {
				t.Fatalf("len(items) = %d, want 1", len(input.Items))
			}
			if input.Items[0].Quantity != 2 {
				t.Errorf("quantity = %d, want 2", input.Items[0].Quantity)
			}
			return testOrder(), nil
		},
	}
	h := NewOrderHandler(svc)

	body := `{"restaurant_id": "rest-1", "items": [{"menu_item_id": "menu-1", "name": "Salmon Roll", "quantity": 2, "price": 980}], "total": 1960, "eta_mins": 30, "address": "東京都渋谷区1-2-3"}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["status"] != string(model.OrderStatusPreparing) {
		t.Errorf("status = %v, want %q", result["status"], model.OrderStatusPreparing)
	}
}

func TestOrderHandler_Create_EmptyItems_ReturnsBadRequest(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(ctx context.Context, userID string, input order.CreateInput) (*model.Order, error) {
			return nil, model.NewInvalidRequestError("注文の明細がありません")
		},
	}
	h := NewOrderHandler(svc)

	body := `{"items": [], "address": "東京都渋谷区1-2-3"}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString(body))
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- GET /api/orders テスト ---

func TestOrderHandler_List_Success(t *testing.T) {
	svc := &mockOrderService{
		listFn: func(ctx context.Context, userID string) ([]*model.Order, error) {
			return []*model.Order{testOrder()}, nil
		},
	}
	h := NewOrderHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req = withUserID(req, "user-123")
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result []map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("len(result) = %d, want 1", len(result))
	}
}

// --- GET /api/orders/{id} テスト ---

func TestOrderHandler_Get_NotFound(t *testing.T) {
	svc := &mockOrderService{
		getFn: func(ctx context.Context, userID, orderID string) (*model.Order, error) {
			return nil, model.NewOrderNotFoundError(orderID)
		},
	}
	h := NewOrderHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/orders/ghost", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "ghost")
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	resp := parseAPIErrorResponse(t, w)
	if resp["code"] != model.ErrCodeOrderNotFound {
		t.Errorf("code = %q, want %q", resp["code"], model.ErrCodeOrderNotFound)
	}
}

// --- POST /api/orders/{id}/advance テスト ---

func TestOrderHandler_Advance_ReturnsNextStatus(t *testing.T) {
	svc := &mockOrderService{
		advanceFn: func(ctx context.Context, userID, orderID string) (*model.Order, error) {
			o := testOrder()
			o.Status = model.OrderStatusPickup
			return o, nil
		},
	}
	h := NewOrderHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/order-1/advance", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "order-1")
	w := httptest.NewRecorder()

	h.Advance(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["status"] != string(model.OrderStatusPickup) {
		t.Errorf("status = %v, want %q", result["status"], model.OrderStatusPickup)
	}
}

func TestOrderHandler_Advance_Terminal_ReturnsDelivered(t *testing.T) {
	svc := &mockOrderService{
		advanceFn: func(ctx context.Context, userID, orderID string) (*model.Order, error) {
			o := testOrder()
			o.Status = model.OrderStatusDelivered
			return o, nil
		},
	}
	h := NewOrderHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/orders/order-1/advance", nil)
	req = withUserID(req, "user-123")
	req = withChiURLParam(req, "id", "order-1")
	w := httptest.NewRecorder()

	h.Advance(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["status"] != string(model.OrderStatusDelivered) {
		t.Errorf("status = %v, want %q", result["status"], model.OrderStatusDelivered)
	}
}
