// Package rating はレストラン評価の再計算を提供する。
package rating

import (
	"context"
	"fmt"
	"math"

	"github.com/feastverse/backend/internal/repository"
)

// Aggregator はレビューからレストラン評価を導出する唯一の書き込み経路。
// 評価はレビューの平均を小数第1位に丸めた値で、レビューが0件の場合は0.0になる。
type Aggregator struct {
	reviews     repository.ReviewRepository
	restaurants repository.RestaurantRepository
}

// NewAggregator はAggregatorを生成する。
func NewAggregator(reviews repository.ReviewRepository, restaurants repository.RestaurantRepository) *Aggregator {
	return &Aggregator{reviews: reviews, restaurants: restaurants}
}

// Recompute はレストランの評価を現在の全レビューから再計算して保存する。
// レビューの作成・削除が確定した後に呼び出すこと。
func (a *Aggregator) Recompute(ctx context.Context, restaurantID string) (float64, error) {
	ratings, err := a.reviews.ListRatingsByRestaurant(ctx, restaurantID)
	if err != nil {
		return 0, fmt.Errorf("failed to list ratings: %w", err)
	}

	value := Average(ratings)
	if err := a.restaurants.UpdateRating(ctx, restaurantID, value); err != nil {
		return 0, fmt.Errorf("failed to update rating: %w", err)
	}

	return value, nil
}

// Average はrating値の平均を小数第1位に丸めて返す。空の場合は0.0を返す。
func Average(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0.0
	}
	var sum int
	for _, r := range ratings {
		sum += r
	}
	mean := float64(sum) / float64(len(ratings))
	return math.Round(mean*10) / 10
}
