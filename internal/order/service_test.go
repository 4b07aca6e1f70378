package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/feastverse/backend/internal/model"
	"github.com/feastverse/backend/internal/repository"
)

// mockOrderRepo はテスト用の注文リポジトリモック。
type mockOrderRepo struct {
	repository.OrderRepository
	findByIDAndUserFunc func(ctx context.Context, orderID, userID string) (*model.Order, error)
	listByUserFunc      func(ctx context.Context, userID string, limit int) ([]*model.Order, error)
	createFunc          func(ctx context.Context, order *model.Order) error
	updateStatusFunc    func(ctx context.Context, orderID string, status model.OrderStatus, now time.Time) error
}

func (m *mockOrderRepo) FindByIDAndUser(ctx context.Context, orderID, userID string) (*model.Order, error) {
	return m.findByIDAndUserFunc(ctx, orderID, userID)
}

func (m *mockOrderRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Order, error) {
	return m.listByUserFunc(ctx, userID, limit)
}

func (m *mockOrderRepo) Create(ctx context.Context, order *model.Order) error {
	return m.createFunc(ctx, order)
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus, now time.Time) error {
	return m.updateStatusFunc(ctx, orderID, status, now)
}

// mockRestaurantRepo はテスト用のレストランリポジトリモック。
type mockRestaurantRepo struct {
	repository.RestaurantRepository
	findByIDFunc func(ctx context.Context, id string) (*model.Restaurant, error)
}

func (m *mockRestaurantRepo) FindByID(ctx context.Context, id string) (*model.Restaurant, error) {
	return m.findByIDFunc(ctx, id)
}

func validInput() CreateInput {
	return CreateInput{
		RestaurantID: "restaurant-1",
		Items: []model.OrderItem{
			{MenuItemID: "item-1", Name: "醤油ラーメン", Quantity: 2, Price: 900},
		},
		Total:   1800,
		ETAMins: 30,
		Address: "東京都千代田区1-1-1",
	}
}

// TestOrderStatus_Next は線形ステータス遷移を確認する。
func TestOrderStatus_Next(t *testing.T) {
	tests := []struct {
		current model.OrderStatus
		want    model.OrderStatus
	}{
		{model.OrderStatusPreparing, model.OrderStatusPickup},
		{model.OrderStatusPickup, model.OrderStatusOnTheWay},
		{model.OrderStatusOnTheWay, model.OrderStatusDelivered},
		{model.OrderStatusDelivered, model.OrderStatusDelivered},
	}

	for _, tt := range tests {
		if got := tt.current.Next(); got != tt.want {
			t.Errorf("Next(%s) = %s, want %s", tt.current, got, tt.want)
		}
	}
}

// TestService_Create は初期ステータスがpreparingになることを確認する。
func TestService_Create(t *testing.T) {
	var created *model.Order
	orders := &mockOrderRepo{
		createFunc: func(ctx context.Context, order *model.Order) error {
			created = order
			return nil
		},
	}
	restaurants := &mockRestaurantRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Restaurant, error) {
			return &model.Restaurant{ID: id}, nil
		},
	}

	svc := NewService(orders, restaurants)
	svc.newID = func() string { return "order-id" }

	order, err := svc.Create(context.Background(), "user-1", validInput())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created == nil {
		t.Fatal("expected order to be created")
	}
	if order.Status != model.OrderStatusPreparing {
		t.Errorf("expected initial status preparing, got %s", order.Status)
	}
	if order.UserID != "user-1" {
		t.Errorf("expected owner user-1, got %s", order.UserID)
	}
}

// TestService_Create_AddressOptional は住所なしの注文が受理されることを確認する。
func TestService_Create_AddressOptional(t *testing.T) {
	var created *model.Order
	orders := &mockOrderRepo{
		createFunc: func(ctx context.Context, order *model.Order) error {
			created = order
			return nil
		},
	}
	restaurants := &mockRestaurantRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Restaurant, error) {
			return &model.Restaurant{ID: id}, nil
		},
	}

	svc := NewService(orders, restaurants)
	svc.newID = func() string { return "order-id" }

	input := validInput()
	input.Address = "  "

	order, err := svc.Create(context.Background(), "user-1", input)
	if err != nil {
		t.Fatalf("Create without address failed: %v", err)
	}
	if created == nil {
		t.Fatal("expected order to be created")
	}
	if order.Address != "" {
		t.Errorf("expected trimmed empty address, got %q", order.Address)
	}
}

// TestService_Create_Validation は不正な入力の拒否を確認する。
func TestService_Create_Validation(t *testing.T) {
	svc := NewService(&mockOrderRepo{}, &mockRestaurantRepo{})

	tests := []struct {
		name   string
		modify func(input *CreateInput)
	}{
		{"no items", func(input *CreateInput) { input.Items = nil }},
		{"zero quantity", func(input *CreateInput) { input.Items[0].Quantity = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.modify(&input)
			_, err := svc.Create(context.Background(), "user-1", input)
			assertAPIErrorCode(t, err, model.ErrCodeInvalidRequest)
		})
	}
}

// TestService_Get_OtherUsersOrder は他ユーザーの注文が
// ORDER_NOT_FOUNDになることを確認する。
func TestService_Get_OtherUsersOrder(t *testing.T) {
	orders := &mockOrderRepo{
		findByIDAndUserFunc: func(ctx context.Context, orderID, userID string) (*model.Order, error) {
			// 所有者の絞り込みはクエリ側で行われるため、他人の注文はnilになる
			return nil, nil
		},
	}

	svc := NewService(orders, &mockRestaurantRepo{})

	_, err := svc.Get(context.Background(), "user-1", "order-of-user-2")
	assertAPIErrorCode(t, err, model.ErrCodeOrderNotFound)
}

// TestService_Advance は線形遷移と終端での冪等性を確認する。
func TestService_Advance(t *testing.T) {
	status := model.OrderStatusPreparing
	orders := &mockOrderRepo{
		findByIDAndUserFunc: func(ctx context.Context, orderID, userID string) (*model.Order, error) {
			return &model.Order{ID: orderID, UserID: userID, Status: status}, nil
		},
		updateStatusFunc: func(ctx context.Context, orderID string, next model.OrderStatus, now time.Time) error {
			status = next
			return nil
		},
	}

	svc := NewService(orders, &mockRestaurantRepo{})

	expected := []model.OrderStatus{
		model.OrderStatusPickup,
		model.OrderStatusOnTheWay,
		model.OrderStatusDelivered,
	}
	for _, want := range expected {
		order, err := svc.Advance(context.Background(), "user-1", "order-1")
		if err != nil {
			t.Fatalf("Advance failed: %v", err)
		}
		if order.Status != want {
			t.Errorf("expected status %s, got %s", want, order.Status)
		}
	}

	// 終端への適用は状態を変えない
	order, err := svc.Advance(context.Background(), "user-1", "order-1")
	if err != nil {
		t.Fatalf("Advance at terminal failed: %v", err)
	}
	if order.Status != model.OrderStatusDelivered {
		t.Errorf("expected terminal status to stay delivered, got %s", order.Status)
	}
}

// TestService_List は注文一覧取得を確認する。
func TestService_List(t *testing.T) {
	orders := &mockOrderRepo{
		listByUserFunc: func(ctx context.Context, userID string, limit int) ([]*model.Order, error) {
			return []*model.Order{{ID: "order-1", UserID: userID}}, nil
		},
	}

	svc := NewService(orders, &mockRestaurantRepo{})

	list, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "order-1" {
		t.Errorf("unexpected list result: %+v", list)
	}
}

// assertAPIErrorCode はエラーが指定コードのAPIErrorであることを確認する。
func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("expected code %s, got %s", code, apiErr.Code)
	}
}
