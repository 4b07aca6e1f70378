// Package order は注文の作成・参照と配達ステータスの遷移を提供する。
package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/feastverse/backend/internal/model"
	"github.com/feastverse/backend/internal/repository"
	"github.com/google/uuid"
)

const defaultListLimit = 50

// Service は注文の操作を提供する。注文は所有ユーザーにのみ見える。
type Service struct {
	orders      repository.OrderRepository
	restaurants repository.RestaurantRepository
	now         func() time.Time
	newID       func() string
}

// NewService はServiceを生成する。
func NewService(orders repository.OrderRepository, restaurants repository.RestaurantRepository) *Service {
	return &Service{
		orders:      orders,
		restaurants: restaurants,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// CreateInput は注文作成の入力。
type CreateInput struct {
	RestaurantID string
	Items        []model.OrderItem
	Total        float64
	ETAMins      int
	Address      string
}

// Create は注文を作成する。初期ステータスはpreparing。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Order, error) {
	if len(input.Items) == 0 {
		return nil, model.NewInvalidRequestError("注文の明細がありません")
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return nil, model.NewInvalidRequestError("数量は1以上で指定してください")
		}
	}

	if input.RestaurantID != "" {
		restaurant, err := s.restaurants.FindByID(ctx, input.RestaurantID)
		if err != nil {
			return nil, fmt.Errorf("failed to find restaurant: %w", err)
		}
		if restaurant == nil {
			return nil, model.NewRestaurantNotFoundError(input.RestaurantID)
		}
	}

	order := &model.Order{
		ID:        s.newID(),
		UserID:    userID,
		Items:     input.Items,
		Total:     input.Total,
		ETAMins:   input.ETAMins,
		Status:    model.OrderStatusPreparing,
		Address:   strings.TrimSpace(input.Address),
		CreatedAt: s.now(),
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return order, nil
}

// List はユーザーの注文一覧を返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID, defaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Get は指定IDの注文を取得する。他ユーザーの注文は存在しないものとして扱う。
func (s *Service) Get(ctx context.Context, userID, orderID string) (*model.Order, error) {
	order, err := s.orders.FindByIDAndUser(ctx, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	if order == nil {
		return nil, model.NewOrderNotFoundError(orderID)
	}
	return order, nil
}

// Advance は注文ステータスを次の状態へ進める。
// 遷移は preparing → pickup → on the way → delivered の一方向のみで、
// 終端（delivered）への適用は状態を変えずに現在の注文を返す。
func (s *Service) Advance(ctx context.Context, userID, orderID string) (*model.Order, error) {
	order, err := s.orders.FindByIDAndUser(ctx, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	if order == nil {
		return nil, model.NewOrderNotFoundError(orderID)
	}

	if order.Status.IsTerminal() {
		return order, nil
	}

	next := order.Status.Next()
	now := s.now()
	if err := s.orders.UpdateStatus(ctx, orderID, next, now); err != nil {
		return nil, err
	}

	order.Status = next
	order.UpdatedAt = &now
	return order, nil
}
