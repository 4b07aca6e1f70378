// Package reel はショート動画の投稿・一覧・いいね操作を提供する。
package reel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/feastverse/backend/internal/media"
	"github.com/feastverse/backend/internal/model"
	"github.com/feastverse/backend/internal/repository"
	"github.com/feastverse/backend/internal/security"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// Service はリールの操作を提供する。
type Service struct {
	reels     repository.ReelRepository
	storage   media.Storage
	sanitizer security.ContentSanitizerService
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewService はServiceを生成する。
func NewService(
	reels repository.ReelRepository,
	storage media.Storage,
	sanitizer security.ContentSanitizerService,
	logger *slog.Logger,
) *Service {
	return &Service{
		reels:     reels,
		storage:   storage,
		sanitizer: sanitizer,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// List はリール一覧を投稿者情報・いいね数付きで返す。
func (s *Service) List(ctx context.Context, skip, limit int) ([]model.ReelWithAuthor, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	reels, err := s.reels.List(ctx, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reels: %w", err)
	}
	return reels, nil
}

// Get は指定IDのリールを投稿者情報・いいね数付きで取得する。
func (s *Service) Get(ctx context.Context, reelID string) (*model.ReelWithAuthor, error) {
	reel, err := s.reels.FindWithAuthor(ctx, reelID)
	if err != nil {
		return nil, fmt.Errorf("failed to find reel: %w", err)
	}
	if reel == nil {
		return nil, model.NewReelNotFoundError(reelID)
	}
	return reel, nil
}

// Upload は動画をアップロードしてからリールを作成する。
// アップロード失敗時はレコードを作成しないため、リトライで重複は発生しない。
func (s *Service) Upload(ctx context.Context, userID, restaurantID, title, filename, contentType string, body io.Reader) (*model.Reel, error) {
	reelID := s.newID()
	key := fmt.Sprintf("reels/%s%s", reelID, path.Ext(filename))

	url, err := s.storage.Upload(ctx, key, contentType, body)
	if err != nil {
		return nil, model.NewUploadFailedError(err)
	}

	reel := &model.Reel{
		ID:            reelID,
		UserID:        userID,
		RestaurantID:  restaurantID,
		Title:         s.sanitizer.Sanitize(title),
		VideoURL:      url,
		ThumbnailURL:  s.storage.ThumbnailURL(key),
		MediaPublicID: key,
		CreatedAt:     s.now(),
	}
	if err := s.reels.Create(ctx, reel); err != nil {
		// レコード作成に失敗した場合は孤児メディアを残さない
		s.deleteMedia(ctx, key)
		return nil, fmt.Errorf("failed to create reel: %w", err)
	}

	return reel, nil
}

// Delete はリールを削除する。投稿者本人以外の削除はForbiddenを返す。
// メディアの削除はベストエフォートで、失敗してもレコードの削除は成立する。
func (s *Service) Delete(ctx context.Context, userID, reelID string) error {
	reel, err := s.reels.FindByID(ctx, reelID)
	if err != nil {
		return fmt.Errorf("failed to find reel: %w", err)
	}
	if reel == nil {
		return model.NewReelNotFoundError(reelID)
	}
	if reel.UserID != userID {
		return model.NewForbiddenError()
	}

	if err := s.reels.Delete(ctx, reelID); err != nil {
		return err
	}

	s.deleteMedia(ctx, reel.MediaPublicID)

	return nil
}

// Like はいいねを追加する。冪等。
func (s *Service) Like(ctx context.Context, userID, reelID string) (int, error) {
	reel, err := s.reels.FindByID(ctx, reelID)
	if err != nil {
		return 0, fmt.Errorf("failed to find reel: %w", err)
	}
	if reel == nil {
		return 0, model.NewReelNotFoundError(reelID)
	}

	if err := s.reels.Like(ctx, userID, reelID); err != nil {
		return 0, fmt.Errorf("failed to like reel: %w", err)
	}

	return s.reels.CountLikes(ctx, reelID)
}

// Unlike はいいねを取り消す。冪等。
func (s *Service) Unlike(ctx context.Context, userID, reelID string) (int, error) {
	reel, err := s.reels.FindByID(ctx, reelID)
	if err != nil {
		return 0, fmt.Errorf("failed to find reel: %w", err)
	}
	if reel == nil {
		return 0, model.NewReelNotFoundError(reelID)
	}

	if err := s.reels.Unlike(ctx, userID, reelID); err != nil {
		return 0, fmt.Errorf("failed to unlike reel: %w", err)
	}

	return s.reels.CountLikes(ctx, reelID)
}

// deleteMedia はメディアをベストエフォートで削除する。
func (s *Service) deleteMedia(ctx context.Context, key string) {
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("メディアの削除に失敗しました",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
