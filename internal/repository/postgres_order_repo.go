package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/feastverse/backend/internal/model"
	"github.com/lib/pq"
)

// PostgresOrderRepo はPostgreSQLを使用した注文リポジトリ。
type PostgresOrderRepo struct {
	db *sql.DB
}

// NewPostgresOrderRepo はPostgresOrderRepoを生成する。
func NewPostgresOrderRepo(db *sql.DB) *PostgresOrderRepo {
	return &PostgresOrderRepo{db: db}
}

// FindByIDAndUser は指定IDかつ指定ユーザーの注文を明細付きで取得する。
// 見つからない場合はnilを返す。
func (r *PostgresOrderRepo) FindByIDAndUser(ctx context.Context, orderID, userID string) (*model.Order, error) {
	order := &model.Order{}
	var updatedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, total, eta_mins, status, address, created_at, updated_at
		 FROM orders WHERE id = $1 AND user_id = $2`,
		orderID, userID,
	).Scan(
		&order.ID, &order.UserID, &order.Total, &order.ETAMins,
		&order.Status, &order.Address, &order.CreatedAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	if updatedAt.Valid {
		t := updatedAt.Time
		order.UpdatedAt = &t
	}

	items, err := r.listItems(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]

	return order, nil
}

// ListByUser はユーザーの注文一覧を明細付きでcreated_at降順に返す。
func (r *PostgresOrderRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, total, eta_mins, status, address, created_at, updated_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*model.Order
	var ids []string
	for rows.Next() {
		order := &model.Order{}
		var updatedAt sql.NullTime
		if err := rows.Scan(
			&order.ID, &order.UserID, &order.Total, &order.ETAMins,
			&order.Status, &order.Address, &order.CreatedAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if updatedAt.Valid {
			t := updatedAt.Time
			order.UpdatedAt = &t
		}
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}

	if len(ids) == 0 {
		return orders, nil
	}

	items, err := r.listItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, order := range orders {
		order.Items = items[order.ID]
	}

	return orders, nil
}

// listItems は複数注文の明細を一括取得する。
func (r *PostgresOrderRepo) listItems(ctx context.Context, orderIDs []string) (map[string][]model.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT order_id, menu_item_id, name, quantity, price
		 FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, seq`,
		pq.Array(orderIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]model.OrderItem)
	for rows.Next() {
		var orderID string
		var item model.OrderItem
		if err := rows.Scan(&orderID, &item.MenuItemID, &item.Name, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		result[orderID] = append(result[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order items: %w", err)
	}

	return result, nil
}

// Create は注文と明細を同一トランザクションで作成する。
func (r *PostgresOrderRepo) Create(ctx context.Context, order *model.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 注文ヘッダを作成
	_, err = tx.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, total, eta_mins, status, address, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		order.ID, order.UserID, order.Total, order.ETAMins,
		order.Status, order.Address, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	// 明細を作成
	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, seq, menu_item_id, name, quantity, price)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			order.ID, i, item.MenuItemID, item.Name, item.Quantity, item.Price,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// UpdateStatus は注文ステータスを更新し、updated_atを設定する。
func (r *PostgresOrderRepo) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus, now time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		status, now, orderID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewOrderNotFoundError(orderID)
	}
	return nil
}

// compile-time interface check
var _ OrderRepository = (*PostgresOrderRepo)(nil)
