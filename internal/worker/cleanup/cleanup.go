// Package cleanup は失効ストーリーの自動削除ジョブを提供する。
// 失効判定は読み取り時に行われるため、このジョブはストレージ容量の
// 回収のみを担う。削除が遅延しても失効済みストーリーがAPIに現れることはない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/feastverse/backend/internal/media"
	"github.com/feastverse/backend/internal/repository"
)

// StoryCleanedRecorder は削除件数のメトリクス記録インターフェース。
type StoryCleanedRecorder interface {
	RecordStoriesCleaned(count int)
}

// CleanupJob は失効したストーリーとそのメディアを削除するバッチジョブ。
// 冪等な削除処理を保証する。
type CleanupJob struct {
	stories repository.StoryRepository
	storage media.Storage
	metrics StoryCleanedRecorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(stories repository.StoryRepository, storage media.Storage, metrics StoryCleanedRecorder, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		stories: stories,
		storage: storage,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Run は失効したストーリーを物理削除する。
// メディアの削除は失敗してもレコード削除を止めない。孤児メディアは
// 次回実行時に対象外となるため、失敗はログに残すのみとする。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	expired, err := j.stories.ListExpired(ctx, j.now())
	if err != nil {
		j.logger.Error("失効ストーリーの取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to list expired stories: %w", err)
	}

	deleted := 0
	for _, story := range expired {
		if story.MediaPublicID != "" {
			if err := j.storage.Delete(ctx, story.MediaPublicID); err != nil {
				j.logger.Warn("ストーリーメディアの削除に失敗しました",
					slog.String("story_id", story.ID),
					slog.String("media_public_id", story.MediaPublicID),
					slog.String("error", err.Error()),
				)
			}
		}

		if err := j.stories.Delete(ctx, story.ID); err != nil {
			j.logger.Error("ストーリーレコードの削除に失敗しました",
				slog.String("story_id", story.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		deleted++
	}

	if j.metrics != nil {
		j.metrics.RecordStoriesCleaned(deleted)
	}

	duration := time.Since(start)
	j.logger.Info("ストーリークリーンアップジョブが完了しました",
		slog.Int("expired_count", len(expired)),
		slog.Int("deleted_count", deleted),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// RunLoop は指定間隔でRunを繰り返し実行する。
// コンテキストのキャンセルで停止する。起動直後に1回実行する。
func (j *CleanupJob) RunLoop(ctx context.Context, interval time.Duration) {
	if err := j.Run(ctx); err != nil {
		j.logger.Error("ストーリークリーンアップの初回実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("ストーリークリーンアップの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		case <-ctx.Done():
			j.logger.Info("ストーリークリーンアップループを停止します")
			return
		}
	}
}
