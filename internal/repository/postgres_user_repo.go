package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/feastverse/backend/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, subject_id, email, name, picture, username, bio, website, phone, created_at, updated_at`

// scanUser は1行をmodel.Userにスキャンする。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var username sql.NullString
	var updatedAt sql.NullTime

	err := row.Scan(
		&user.ID, &user.SubjectID, &user.Email, &user.Name, &user.Picture,
		&username, &user.Bio, &user.Website, &user.Phone,
		&user.CreatedAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if username.Valid {
		user.Username = username.String
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		user.UpdatedAt = &t
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindBySubjectID は連合IDでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindBySubjectID(ctx context.Context, subjectID string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE subject_id = $1`, subjectID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by subject ID: %w", err)
	}
	return user, nil
}

// FindByUsername は正規化済みユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
// UNIQUE制約違反はドメインエラーに変換する: subject_id → AlreadyRegistered、
// username → UsernameTaken。同時登録の競合はこの経路で検出される。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	var username interface{}
	if user.Username != "" {
		username = user.Username
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, subject_id, email, name, picture, username, bio, website, phone, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.SubjectID, user.Email, user.Name, user.Picture,
		username, user.Bio, user.Website, user.Phone, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "idx_users_subject_id") {
			return model.NewAlreadyRegisteredError()
		}
		if isUniqueViolation(err, "idx_users_username") {
			return model.NewUsernameTakenError(user.Username)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// UpdateProfile は指定フィールドのみを単一のUPDATEで適用する。
// nilのフィールドは変更しない。username重複はUsernameTakenを返す。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch, now time.Time) (*model.User, error) {
	set := "updated_at = $1"
	args := []interface{}{now}

	appendSet := func(column string, value interface{}) {
		args = append(args, value)
		set += fmt.Sprintf(", %s = $%d", column, len(args))
	}

	if patch.Username != nil {
		appendSet("username", *patch.Username)
	}
	if patch.Bio != nil {
		appendSet("bio", *patch.Bio)
	}
	if patch.Website != nil {
		appendSet("website", *patch.Website)
	}
	if patch.Phone != nil {
		appendSet("phone", *patch.Phone)
	}
	if patch.Picture != nil {
		appendSet("picture", *patch.Picture)
	}

	args = append(args, userID)
	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		set, len(args),
	)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if isUniqueViolation(err, "idx_users_username") && patch.Username != nil {
			return nil, model.NewUsernameTakenError(*patch.Username)
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return user, nil
}

// FollowRestaurant はレストランをフォローする。既にフォロー済みの場合は何もしない。
func (r *PostgresUserRepo) FollowRestaurant(ctx context.Context, userID, restaurantID string) error {
	return r.insertEdge(ctx, "user_followed_restaurants", userID, restaurantID)
}

// UnfollowRestaurant はレストランのフォローを解除する。冪等。
func (r *PostgresUserRepo) UnfollowRestaurant(ctx context.Context, userID, restaurantID string) error {
	return r.deleteEdge(ctx, "user_followed_restaurants", userID, restaurantID)
}

// SubscribeRestaurant はレストランを購読する。既に購読済みの場合は何もしない。
func (r *PostgresUserRepo) SubscribeRestaurant(ctx context.Context, userID, restaurantID string) error {
	return r.insertEdge(ctx, "user_subscribed_restaurants", userID, restaurantID)
}

// UnsubscribeRestaurant はレストランの購読を解除する。冪等。
func (r *PostgresUserRepo) UnsubscribeRestaurant(ctx context.Context, userID, restaurantID string) error {
	return r.deleteEdge(ctx, "user_subscribed_restaurants", userID, restaurantID)
}

// insertEdge はユーザーとレストランの関連を冪等に追加する。
func (r *PostgresUserRepo) insertEdge(ctx context.Context, table, userID, restaurantID string) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (user_id, restaurant_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		table,
	)
	if _, err := r.db.ExecContext(ctx, query, userID, restaurantID); err != nil {
		return fmt.Errorf("failed to insert %s: %w", table, err)
	}
	return nil
}

// deleteEdge はユーザーとレストランの関連を冪等に削除する。
func (r *PostgresUserRepo) deleteEdge(ctx context.Context, table, userID, restaurantID string) error {
	query := fmt.Sprintf(
		`DELETE FROM %s WHERE user_id = $1 AND restaurant_id = $2`,
		table,
	)
	if _, err := r.db.ExecContext(ctx, query, userID, restaurantID); err != nil {
		return fmt.Errorf("failed to delete %s: %w", table, err)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
