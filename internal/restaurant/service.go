// Package restaurant はレストランカタログの参照と管理を提供する。
package restaurant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/feastverse/backend/internal/model"
	"github.com/feastverse/backend/internal/repository"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// Service はレストランカタログの操作を提供する。
type Service struct {
	restaurants repository.RestaurantRepository
	now         func() time.Time
	newID       func() string
}

// NewService はServiceを生成する。
func NewService(restaurants repository.RestaurantRepository) *Service {
	return &Service{
		restaurants: restaurants,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// List はレストラン一覧をメニュー付きで返す。
// limitが0以下の場合はデフォルト値、上限を超える場合は上限に丸める。
func (s *Service) List(ctx context.Context, skip, limit int) ([]*model.Restaurant, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	restaurants, err := s.restaurants.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	return restaurants, nil
}

// Get は指定IDのレストランをメニュー付きで取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Restaurant, error) {
	restaurant, err := s.restaurants.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find restaurant: %w", err)
	}
	if restaurant == nil {
		return nil, model.NewRestaurantNotFoundError(id)
	}
	return restaurant, nil
}

// Create はレストランを登録する。評価は0.0から始まり、
// レビューが投稿されるまで変化しない。
func (s *Service) Create(ctx context.Context, restaurant *model.Restaurant) (*model.Restaurant, error) {
	if strings.TrimSpace(restaurant.Name) == "" {
		return nil, model.NewInvalidRequestError("レストラン名が空です")
	}

	restaurant.ID = s.newID()
	restaurant.Rating = 0
	restaurant.CreatedAt = s.now()
	for i := range restaurant.MenuItems {
		if restaurant.MenuItems[i].ID == "" {
			restaurant.MenuItems[i].ID = s.newID()
		}
	}

	if err := s.restaurants.Create(ctx, restaurant); err != nil {
		return nil, fmt.Errorf("failed to create restaurant: %w", err)
	}
	return restaurant, nil
}

// AddMenuItem はレストランにメニュー項目を追加する。
func (s *Service) AddMenuItem(ctx context.Context, restaurantID string, item model.MenuItem) (*model.MenuItem, error) {
	if strings.TrimSpace(item.Name) == "" {
		return nil, model.NewInvalidRequestError("メニュー名が空です")
	}

	existing, err := s.restaurants.FindByID(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to find restaurant: %w", err)
	}
	if existing == nil {
		return nil, model.NewRestaurantNotFoundError(restaurantID)
	}

	if item.ID == "" {
		item.ID = s.newID()
	}
	if err := s.restaurants.AddMenuItem(ctx, restaurantID, item); err != nil {
		return nil, fmt.Errorf("failed to add menu item: %w", err)
	}
	return &item, nil
}
