package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/feastverse/backend/internal/model"
)

// PostgresReviewRepo はPostgreSQLを使用したレビューリポジトリ。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

// scanReview は1行をmodel.Reviewにスキャンする。
func scanReview(row *sql.Row) (*model.Review, error) {
	review := &model.Review{}
	var updatedAt sql.NullTime

	err := row.Scan(
		&review.ID, &review.UserID, &review.RestaurantID,
		&review.Rating, &review.Text, &review.CreatedAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if updatedAt.Valid {
		t := updatedAt.Time
		review.UpdatedAt = &t
	}
	return review, nil
}

// FindByID は指定IDのレビューを取得する。見つからない場合はnilを返す。
func (r *PostgresReviewRepo) FindByID(ctx context.Context, id string) (*model.Review, error) {
	review, err := scanReview(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, restaurant_id, rating, text, created_at, updated_at
		 FROM reviews WHERE id = $1`,
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find review by ID: %w", err)
	}
	return review, nil
}

// FindByUserAndRestaurant はユーザーIDとレストランIDでレビューを検索する。
// 見つからない場合はnilを返す。レビュー重複チェックの高速パス。
func (r *PostgresReviewRepo) FindByUserAndRestaurant(ctx context.Context, userID, restaurantID string) (*model.Review, error) {
	review, err := scanReview(r.db.QueryRowContext(ctx,
		`SELECT id, user_id, restaurant_id, rating, text, created_at, updated_at
		 FROM reviews WHERE user_id = $1 AND restaurant_id = $2`,
		userID, restaurantID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find review by user and restaurant: %w", err)
	}
	return review, nil
}

// ListByRestaurant はレストランのレビュー一覧を投稿者情報付きで返す。
func (r *PostgresReviewRepo) ListByRestaurant(ctx context.Context, restaurantID string, limit int) ([]model.ReviewWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rv.id, rv.user_id, rv.restaurant_id, rv.rating, rv.text, rv.created_at, rv.updated_at,
		        u.name, u.picture
		 FROM reviews rv
		 JOIN users u ON u.id = rv.user_id
		 WHERE rv.restaurant_id = $1
		 ORDER BY rv.created_at DESC
		 LIMIT $2`,
		restaurantID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews by restaurant: %w", err)
	}
	defer rows.Close()

	var reviews []model.ReviewWithAuthor
	for rows.Next() {
		var review model.ReviewWithAuthor
		var updatedAt sql.NullTime
		if err := rows.Scan(
			&review.ID, &review.UserID, &review.RestaurantID,
			&review.Rating, &review.Text, &review.CreatedAt, &updatedAt,
			&review.UserName, &review.UserAvatar,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		if updatedAt.Valid {
			t := updatedAt.Time
			review.UpdatedAt = &t
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}

	return reviews, nil
}

// ListByUser はユーザーのレビュー一覧を返す。
func (r *PostgresReviewRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, restaurant_id, rating, text, created_at, updated_at
		 FROM reviews WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews by user: %w", err)
	}
	defer rows.Close()

	var reviews []*model.Review
	for rows.Next() {
		review := &model.Review{}
		var updatedAt sql.NullTime
		if err := rows.Scan(
			&review.ID, &review.UserID, &review.RestaurantID,
			&review.Rating, &review.Text, &review.CreatedAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		if updatedAt.Valid {
			t := updatedAt.Time
			review.UpdatedAt = &t
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}

	return reviews, nil
}

// ListRatingsByRestaurant はレストランの全レビューのrating値を返す。
func (r *PostgresReviewRepo) ListRatingsByRestaurant(ctx context.Context, restaurantID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rating FROM reviews WHERE restaurant_id = $1`,
		restaurantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ratings: %w", err)
	}

	return ratings, nil
}

// Create はレビューを作成する。
// (user_id, restaurant_id)のUNIQUE制約違反はDuplicateReviewに変換する。
func (r *PostgresReviewRepo) Create(ctx context.Context, review *model.Review) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (id, user_id, restaurant_id, rating, text, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		review.ID, review.UserID, review.RestaurantID,
		review.Rating, review.Text, review.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "reviews_user_id_restaurant_id_key") {
			return model.NewDuplicateReviewError()
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// Delete は指定IDのレビューを削除する。
func (r *PostgresReviewRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM reviews WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewReviewNotFoundError(id)
	}
	return nil
}

// compile-time interface check
var _ ReviewRepository = (*PostgresReviewRepo)(nil)
