// Package story は24時間で失効するストーリー投稿を提供する。
package story

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
	"github.com/google/uuid"
)

const (
	// storyTTL はストーリーの有効期間。
	storyTTL = 24 * time.Hour

	defaultListLimit = 100
)

// Service はストーリーの操作を提供する。
// 失効判定は読み取り時に行われるため、物理削除が遅延しても
// 失効済みストーリーが一覧に現れることはない。
type Service struct {
	stories repository.StoryRepository
	storage media.Storage
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// NewService はServiceを生成する。
func NewService(stories repository.StoryRepository, storage media.Storage, logger *slog.Logger) *Service {
	return &Service{
		stories: stories,
		storage: storage,
		logger:  logger,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// ListActive は失効していないストーリーを投稿者情報付きで返す。
func (s *Service) ListActive(ctx context.Context) ([]model.StoryWithAuthor, error) {
	stories, err := s.stories.ListActive(ctx, s.now(), defaultListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	return stories, nil
}

// Upload は画像をアップロードしてからストーリーを作成する。
// 失効時刻は作成時刻の24時間後に固定される。
func (s *Service) Upload(ctx context.Context, userID, filename, contentType string, body io.Reader) (*model.Story, error) {
	storyID := s.newID()
	key := fmt.Sprintf("stories/%s%s", storyID, path.Ext(filename))

	url, err := s.storage.Upload(ctx, key, contentType, body)
	if err != nil {
		return nil, model.NewUploadFailedError(err)
	}

	now := s.now()
	story := &model.Story{
		ID:            storyID,
		UserID:        userID,
		ImageURL:      url,
		MediaPublicID: key,
		ExpiresAt:     now.Add(storyTTL),
		CreatedAt:     now,
	}
	if err := s.stories.Create(ctx, story); err != nil {
		// レコード作成に失敗した場合は孤児メディアを残さない
		if deleteErr := s.storage.Delete(ctx, key); deleteErr != nil {
			s.logger.Warn("メディアの削除に失敗しました",
				slog.String("key", key),
				slog.String("error", deleteErr.Error()),
			)
		}
		return nil, fmt.Errorf("failed to create story: %w", err)
	}

	return story, nil
}
