package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/feastverse/backend/internal/model"
)

// PostgresReelRepo はPostgreSQLを使用したリールリポジトリ。
type PostgresReelRepo struct {
	db *sql.DB
}

// NewPostgresReelRepo はPostgresReelRepoを生成する。
func NewPostgresReelRepo(db *sql.DB) *PostgresReelRepo {
	return &PostgresReelRepo{db: db}
}

// FindByID は指定IDのリールを取得する。見つからない場合はnilを返す。
func (r *PostgresReelRepo) FindByID(ctx context.Context, id string) (*model.Reel, error) {
	reel := &model.Reel{}
	var restaurantID sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, restaurant_id, title, video_url, thumbnail_url, media_public_id, created_at
		 FROM reels WHERE id = $1`,
		id,
	).Scan(
		&reel.ID, &reel.UserID, &restaurantID, &reel.Title,
		&reel.VideoURL, &reel.ThumbnailURL, &reel.MediaPublicID, &reel.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reel by ID: %w", err)
	}

	if restaurantID.Valid {
		reel.RestaurantID = restaurantID.String
	}
	return reel, nil
}

// FindWithAuthor は指定IDのリールを投稿者情報・いいね数付きで取得する。
func (r *PostgresReelRepo) FindWithAuthor(ctx context.Context, id string) (*model.ReelWithAuthor, error) {
	var reel model.ReelWithAuthor
	var restaurantID sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT rl.id, rl.user_id, rl.restaurant_id, rl.title, rl.video_url, rl.thumbnail_url,
		        rl.media_public_id, rl.created_at,
		        u.name, COALESCE(u.username, split_part(u.email, '@', 1)), u.picture,
		        (SELECT count(*) FROM user_liked_reels lr WHERE lr.reel_id = rl.id)
		 FROM reels rl
		 JOIN users u ON u.id = rl.user_id
		 WHERE rl.id = $1`,
		id,
	).Scan(
		&reel.ID, &reel.UserID, &restaurantID, &reel.Title,
		&reel.VideoURL, &reel.ThumbnailURL, &reel.MediaPublicID, &reel.CreatedAt,
		&reel.UserName, &reel.UserUsername, &reel.UserPicture, &reel.Likes,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find reel with author: %w", err)
	}

	if restaurantID.Valid {
		reel.RestaurantID = restaurantID.String
	}
	return &reel, nil
}

// List はリール一覧を投稿者情報・いいね数付きでcreated_at降順に返す。
func (r *PostgresReelRepo) List(ctx context.Context, skip, limit int) ([]model.ReelWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rl.id, rl.user_id, rl.restaurant_id, rl.title, rl.video_url, rl.thumbnail_url,
		        rl.media_public_id, rl.created_at,
		        u.name, COALESCE(u.username, split_part(u.email, '@', 1)), u.picture,
		        (SELECT count(*) FROM user_liked_reels lr WHERE lr.reel_id = rl.id)
		 FROM reels rl
		 JOIN users u ON u.id = rl.user_id
		 ORDER BY rl.created_at DESC
		 OFFSET $1 LIMIT $2`,
		skip, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reels: %w", err)
	}
	defer rows.Close()

	var reels []model.ReelWithAuthor
	for rows.Next() {
		var reel model.ReelWithAuthor
		var restaurantID sql.NullString
		if err := rows.Scan(
			&reel.ID, &reel.UserID, &restaurantID, &reel.Title,
			&reel.VideoURL, &reel.ThumbnailURL, &reel.MediaPublicID, &reel.CreatedAt,
			&reel.UserName, &reel.UserUsername, &reel.UserPicture, &reel.Likes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reel: %w", err)
		}
		if restaurantID.Valid {
			reel.RestaurantID = restaurantID.String
		}
		reels = append(reels, reel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reels: %w", err)
	}

	return reels, nil
}

// Create はリールを作成する。
func (r *PostgresReelRepo) Create(ctx context.Context, reel *model.Reel) error {
	var restaurantID interface{}
	if reel.RestaurantID != "" {
		restaurantID = reel.RestaurantID
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reels (id, user_id, restaurant_id, title, video_url, thumbnail_url, media_public_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		reel.ID, reel.UserID, restaurantID, reel.Title,
		reel.VideoURL, reel.ThumbnailURL, reel.MediaPublicID, reel.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reel: %w", err)
	}
	return nil
}

// Delete は指定IDのリールを削除する。関連するいいねはCASCADE削除される。
func (r *PostgresReelRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reels WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete reel: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewReelNotFoundError(id)
	}
	return nil
}

// Like はいいねを追加する。既にいいね済みの場合は何もしない。
func (r *PostgresReelRepo) Like(ctx context.Context, userID, reelID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_liked_reels (user_id, reel_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, reelID,
	)
	if err != nil {
		return fmt.Errorf("failed to like reel: %w", err)
	}
	return nil
}

// Unlike はいいねを取り消す。冪等。
func (r *PostgresReelRepo) Unlike(ctx context.Context, userID, reelID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_liked_reels WHERE user_id = $1 AND reel_id = $2`,
		userID, reelID,
	)
	if err != nil {
		return fmt.Errorf("failed to unlike reel: %w", err)
	}
	return nil
}

// CountLikes はリールのいいね数を返す。
func (r *PostgresReelRepo) CountLikes(ctx context.Context, reelID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM user_liked_reels WHERE reel_id = $1`,
		reelID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ ReelRepository = (*PostgresReelRepo)(nil)
