package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/feastverse/backend/internal/model"
)

// PostgresStoryRepo はPostgreSQLを使用したストーリーリポジトリ。
type PostgresStoryRepo struct {
	db *sql.DB
}

// NewPostgresStoryRepo はPostgresStoryRepoを生成する。
func NewPostgresStoryRepo(db *sql.DB) *PostgresStoryRepo {
	return &PostgresStoryRepo{db: db}
}

// ListActive は失効していないストーリーを投稿者情報付きでcreated_at降順に返す。
// 失効判定は読み取り時にexpires_atで行い、物理削除はクリーンアップジョブに任せる。
func (r *PostgresStoryRepo) ListActive(ctx context.Context, now time.Time, limit int) ([]model.StoryWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.user_id, s.image_url, s.media_public_id, s.expires_at, s.created_at,
		        u.name, COALESCE(u.username, split_part(u.email, '@', 1)), u.picture
		 FROM stories s
		 JOIN users u ON u.id = s.user_id
		 WHERE s.expires_at > $1
		 ORDER BY s.created_at DESC
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active stories: %w", err)
	}
	defer rows.Close()

	var stories []model.StoryWithAuthor
	for rows.Next() {
		var story model.StoryWithAuthor
		if err := rows.Scan(
			&story.ID, &story.UserID, &story.ImageURL, &story.MediaPublicID,
			&story.ExpiresAt, &story.CreatedAt,
			&story.UserName, &story.UserUsername, &story.UserPicture,
		); err != nil {
			return nil, fmt.Errorf("failed to scan story: %w", err)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stories: %w", err)
	}

	return stories, nil
}

// Create はストーリーを作成する。
func (r *PostgresStoryRepo) Create(ctx context.Context, story *model.Story) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO stories (id, user_id, image_url, media_public_id, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		story.ID, story.UserID, story.ImageURL, story.MediaPublicID,
		story.ExpiresAt, story.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert story: %w", err)
	}
	return nil
}

// ListExpired は失効済みストーリーを返す。
func (r *PostgresStoryRepo) ListExpired(ctx context.Context, now time.Time) ([]model.Story, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, image_url, media_public_id, expires_at, created_at
		 FROM stories WHERE expires_at <= $1`,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired stories: %w", err)
	}
	defer rows.Close()

	var stories []model.Story
	for rows.Next() {
		var story model.Story
		if err := rows.Scan(
			&story.ID, &story.UserID, &story.ImageURL, &story.MediaPublicID,
			&story.ExpiresAt, &story.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expired story: %w", err)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expired stories: %w", err)
	}

	return stories, nil
}

// Delete は指定IDのストーリーを削除する。
func (r *PostgresStoryRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return nil
}

// compile-time interface check
var _ StoryRepository = (*PostgresStoryRepo)(nil)
