package repository

import (
	"testing"
	"time"

	"github.com/feastverse/backend/internal/model"
)

// PostgresStoryRepoはStoryRepositoryインターフェースを満たすことを検証
func TestPostgresStoryRepo_ImplementsInterface(t *testing.T) {
	var _ StoryRepository = (*PostgresStoryRepo)(nil)
}

// NewPostgresStoryRepoが正しく初期化されることを検証
func TestNewPostgresStoryRepo_Initializes(t *testing.T) {
	repo := NewPostgresStoryRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// Storyモデルの失効判定の期待動作を検証
func TestPostgresStoryRepo_StoryModel_Expiry(t *testing.T) {
	now := time.Now()
	expired := &model.Story{
		ID:        "story-expired",
		UserID:    "user-id-1",
		ExpiresAt: now.Add(-1 * time.Hour),
	}
	active := &model.Story{
		ID:        "story-active",
		UserID:    "user-id-1",
		ExpiresAt: now.Add(23 * time.Hour),
	}

	if expired.ExpiresAt.After(now) {
		t.Error("expected story to be expired")
	}
	if !active.ExpiresAt.After(now) {
		t.Error("expected story to still be active")
	}
}

// MediaPublicIDがクリーンアップ時の削除キーとして保持されることを検証
func TestPostgresStoryRepo_StoryModel_MediaPublicID(t *testing.T) {
	story := &model.Story{
		ID:            "story-id-1",
		UserID:        "user-id-1",
		ImageURL:      "https://media.example.com/stories/abc123",
		MediaPublicID: "stories/abc123",
	}

	if story.MediaPublicID != "stories/abc123" {
		t.Errorf("story.MediaPublicID = %q, want %q", story.MediaPublicID, "stories/abc123")
	}
}
