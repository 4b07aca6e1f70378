// Package review はレビューの投稿・削除と評価再計算の呼び出しを提供する。
package review

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/feastverse/backend/internal/model"
	"github.com/feastverse/backend/internal/rating"
	"github.com/feastverse/backend/internal/repository"
	"github.com/feastverse/backend/internal/security"
	"github.com/google/uuid"
)

const defaultListLimit = 100

// Service はレビューの操作を提供する。
// レビューの作成・削除が確定するたびにRating Aggregatorで
// レストラン評価を再計算する。
type Service struct {
	reviews     repository.ReviewRepository
	restaurants repository.RestaurantRepository
	aggregator  *rating.Aggregator
	sanitizer   security.ContentSanitizerService
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// NewService はServiceを生成する。
func NewService(
	reviews repository.ReviewRepository,
	restaurants repository.RestaurantRepository,
	aggregator *rating.Aggregator,
	sanitizer security.ContentSanitizerService,
	logger *slog.Logger,
) *Service {
	return &Service{
		reviews:     reviews,
		restaurants: restaurants,
		aggregator:  aggregator,
		sanitizer:   sanitizer,
		logger:      logger,
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
	}
}

// ListByRestaurant はレストランのレビュー一覧を投稿者情報付きで返す。
func (s *Service) ListByRestaurant(ctx context.Context, restaurantID string) ([]model.ReviewWithAuthor, error) {
	restaurant, err := s.restaurants.FindByID(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to find restaurant: %w", err)
	}
	if restaurant == nil {
		return nil, model.NewRestaurantNotFoundError(restaurantID)
	}

	reviews, err := s.reviews.ListByRestaurant(ctx, restaurantID, defaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// Create はレビューを投稿し、レストラン評価を再計算する。
// 同一ユーザーが同一レストランに2件目を投稿しようとした場合は
// DuplicateReviewを返す。本文はサニタイズして保存する。
func (s *Service) Create(ctx context.Context, userID string, restaurantID string, ratingValue int, text string) (*model.Review, error) {
	if ratingValue < 1 || ratingValue > 5 {
		return nil, model.NewInvalidRequestError("評価は1〜5で指定してください")
	}

	restaurant, err := s.restaurants.FindByID(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to find restaurant: %w", err)
	}
	if restaurant == nil {
		return nil, model.NewRestaurantNotFoundError(restaurantID)
	}

	existing, err := s.reviews.FindByUserAndRestaurant(ctx, userID, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing review: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateReviewError()
	}

	review := &model.Review{
		ID:           s.newID(),
		UserID:       userID,
		RestaurantID: restaurantID,
		Rating:       ratingValue,
		Text:         s.sanitizer.Sanitize(text),
		CreatedAt:    s.now(),
	}
	// 同時投稿の競合はCreate側のUNIQUE制約が最終的に防ぐ
	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}

	if err := s.recompute(ctx, restaurantID); err != nil {
		return nil, err
	}

	return review, nil
}

// ListMine はユーザー自身のレビュー一覧を返す。
func (s *Service) ListMine(ctx context.Context, userID string) ([]*model.Review, error) {
	reviews, err := s.reviews.ListByUser(ctx, userID, defaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}

// Delete はレビューを削除し、レストラン評価を再計算する。
// 投稿者本人以外の削除はForbiddenを返す。
func (s *Service) Delete(ctx context.Context, userID, reviewID string) error {
	review, err := s.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return fmt.Errorf("failed to find review: %w", err)
	}
	if review == nil {
		return model.NewReviewNotFoundError(reviewID)
	}
	if review.UserID != userID {
		return model.NewForbiddenError()
	}

	if err := s.reviews.Delete(ctx, reviewID); err != nil {
		return err
	}

	return s.recompute(ctx, review.RestaurantID)
}

// recompute はレストラン評価を再計算する。
// レビューの書き込みは確定済みのため、再計算の失敗は検証エラーではなく
// ストレージ障害を意味する。ログに残した上でサーバーエラーとして伝播する。
func (s *Service) recompute(ctx context.Context, restaurantID string) error {
	if _, err := s.aggregator.Recompute(ctx, restaurantID); err != nil {
		s.logger.Error("評価の再計算に失敗しました",
			slog.String("restaurant_id", restaurantID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to recompute rating: %w", err)
	}
	return nil
}
