package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/feastverse/backend/internal/model"
	"github.com/lib/pq"
)

// PostgresRestaurantRepo はPostgreSQLを使用したレストランリポジトリ。
type PostgresRestaurantRepo struct {
	db *sql.DB
}

// NewPostgresRestaurantRepo はPostgresRestaurantRepoを生成する。
func NewPostgresRestaurantRepo(db *sql.DB) *PostgresRestaurantRepo {
	return &PostgresRestaurantRepo{db: db}
}

// FindByID は指定IDのレストランをメニュー付きで取得する。見つからない場合はnilを返す。
func (r *PostgresRestaurantRepo) FindByID(ctx context.Context, id string) (*model.Restaurant, error) {
	restaurant := &model.Restaurant{}
	var updatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, cuisine, rating, delivery_fee, eta_mins, image, description, created_at, updated_at
		 FROM restaurants WHERE id = $1`,
		id,
	).Scan(
		&restaurant.ID, &restaurant.Name, &restaurant.Cuisine, &restaurant.Rating,
		&restaurant.DeliveryFee, &restaurant.ETAMins, &restaurant.Image,
		&restaurant.Description, &restaurant.CreatedAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find restaurant by ID: %w", err)
	}

	if updatedAt.Valid {
		t := updatedAt.Time
		restaurant.UpdatedAt = &t
	}

	items, err := r.listMenuItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	restaurant.MenuItems = items[id]

	return restaurant, nil
}

// List はレストラン一覧をメニュー付きで取得する。
func (r *PostgresRestaurantRepo) List(ctx context.Context, skip, limit int) ([]*model.Restaurant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, cuisine, rating, delivery_fee, eta_mins, image, description, created_at, updated_at
		 FROM restaurants ORDER BY created_at OFFSET $1 LIMIT $2`,
		skip, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	defer rows.Close()

	var restaurants []*model.Restaurant
	var ids []string
	for rows.Next() {
		restaurant := &model.Restaurant{}
		var updatedAt sql.NullTime
		if err := rows.Scan(
			&restaurant.ID, &restaurant.Name, &restaurant.Cuisine, &restaurant.Rating,
			&restaurant.DeliveryFee, &restaurant.ETAMins, &restaurant.Image,
			&restaurant.Description, &restaurant.CreatedAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan restaurant: %w", err)
		}
		if updatedAt.Valid {
			t := updatedAt.Time
			restaurant.UpdatedAt = &t
		}
		restaurants = append(restaurants, restaurant)
		ids = append(ids, restaurant.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate restaurants: %w", err)
	}

	if len(ids) == 0 {
		return restaurants, nil
	}

	items, err := r.listMenuItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, restaurant := range restaurants {
		restaurant.MenuItems = items[restaurant.ID]
	}

	return restaurants, nil
}

// listMenuItems は複数レストランのメニュー項目を一括取得する。
// N+1クエリを避けるためANY($1)でまとめて引く。
func (r *PostgresRestaurantRepo) listMenuItems(ctx context.Context, restaurantIDs []string) (map[string][]model.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT restaurant_id, id, name, price, description, image, available
		 FROM menu_items WHERE restaurant_id = ANY($1) ORDER BY seq`,
		pq.Array(restaurantIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list menu items: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]model.MenuItem)
	for rows.Next() {
		var restaurantID string
		var item model.MenuItem
		if err := rows.Scan(
			&restaurantID, &item.ID, &item.Name, &item.Price,
			&item.Description, &item.Image, &item.Available,
		); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		result[restaurantID] = append(result[restaurantID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate menu items: %w", err)
	}

	return result, nil
}

// Create はレストランを作成する。ratingは派生値のため0で初期化される。
func (r *PostgresRestaurantRepo) Create(ctx context.Context, restaurant *model.Restaurant) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO restaurants (id, name, cuisine, rating, delivery_fee, eta_mins, image, description, created_at)
		 VALUES ($1, $2, $3, 0, $4, $5, $6, $7, $8)`,
		restaurant.ID, restaurant.Name, restaurant.Cuisine,
		restaurant.DeliveryFee, restaurant.ETAMins, restaurant.Image,
		restaurant.Description, restaurant.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert restaurant: %w", err)
	}
	return nil
}

// AddMenuItem はレストランにメニュー項目を追加する。
func (r *PostgresRestaurantRepo) AddMenuItem(ctx context.Context, restaurantID string, item model.MenuItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO menu_items (id, restaurant_id, name, price, description, image, available)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, restaurantID, item.Name, item.Price,
		item.Description, item.Image, item.Available,
	)
	if err != nil {
		return fmt.Errorf("failed to insert menu item: %w", err)
	}
	return nil
}

// UpdateRating はレストランの評価を書き込む。Rating Aggregator専用。
func (r *PostgresRestaurantRepo) UpdateRating(ctx context.Context, restaurantID string, rating float64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE restaurants SET rating = $1 WHERE id = $2`,
		rating, restaurantID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rating: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("restaurant not found: %s", restaurantID)
	}
	return nil
}

// compile-time interface check
var _ RestaurantRepository = (*PostgresRestaurantRepo)(nil)
