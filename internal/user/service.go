// Package user はプロフィール管理とユーザーディレクトリを提供する。
package user

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/feastverse/backend/internal/email"
	"github.com/feastverse/backend/internal/media"
	"github.com/feastverse/backend/internal/model"
	"github.com/feastverse/backend/internal/repository"
	"github.com/feastverse/backend/internal/security"
	"github.com/google/uuid"
)

// Service はプロフィールの取得・更新とレストランとの関係操作を提供する。
type Service struct {
	users     repository.UserRepository
	storage   media.Storage
	sanitizer security.ContentSanitizerService
	mailer    email.Sender
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewService はServiceを生成する。mailerはnilでもよく、その場合メールは送信されない。
func NewService(
	users repository.UserRepository,
	storage media.Storage,
	sanitizer security.ContentSanitizerService,
	mailer email.Sender,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:     users,
		storage:   storage,
		sanitizer: sanitizer,
		mailer:    mailer,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// UpdateProfile は指定フィールドのみを更新し、更新後のユーザーを返す。
// ユーザー名は正規化後に可用性を確認するが、同時更新の競合は
// ストレージ層のUNIQUE制約が最終的に防ぐ。
// 更新通知メールはベストエフォートで送信する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, patch model.ProfilePatch) (*model.User, error) {
	if patch.IsEmpty() {
		return nil, model.NewInvalidRequestError("更新するフィールドがありません")
	}

	current, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if current == nil {
		return nil, model.NewUserNotFoundError()
	}

	usernameChanged := false
	if patch.Username != nil {
		normalized := model.NormalizeUsername(*patch.Username)
		if normalized == "" {
			return nil, model.NewInvalidRequestError("ユーザー名が空です")
		}
		if normalized != current.Username {
			existing, err := s.users.FindByUsername(ctx, normalized)
			if err != nil {
				return nil, fmt.Errorf("failed to check username: %w", err)
			}
			if existing != nil && existing.ID != userID {
				return nil, model.NewUsernameTakenError(normalized)
			}
			usernameChanged = true
		}
		patch.Username = &normalized
	}

	if patch.Bio != nil {
		sanitized := s.sanitizer.Sanitize(*patch.Bio)
		patch.Bio = &sanitized
	}
	if patch.Website != nil {
		trimmed := strings.TrimSpace(*patch.Website)
		patch.Website = &trimmed
	}
	if patch.Phone != nil {
		trimmed := strings.TrimSpace(*patch.Phone)
		patch.Phone = &trimmed
	}

	updated, err := s.users.UpdateProfile(ctx, userID, patch, s.now())
	if err != nil {
		return nil, err
	}

	s.notifyProfileUpdate(ctx, updated, usernameChanged)

	return updated, nil
}

// SetAvatar はアバター画像をアップロードし、プロフィールに反映する。
// アップロード失敗時はプロフィールを変更しない。
func (s *Service) SetAvatar(ctx context.Context, userID, filename, contentType string, body io.Reader) (*model.User, error) {
	current, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if current == nil {
		return nil, model.NewUserNotFoundError()
	}

	key := fmt.Sprintf("avatars/%s%s", s.newID(), path.Ext(filename))
	url, err := s.storage.Upload(ctx, key, contentType, body)
	if err != nil {
		return nil, model.NewUploadFailedError(err)
	}

	updated, err := s.users.UpdateProfile(ctx, userID, model.ProfilePatch{Picture: &url}, s.now())
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// GetByUsername は正規化済みユーザー名で公開プロフィールを取得する。
func (s *Service) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	normalized := model.NormalizeUsername(username)
	if normalized == "" {
		return nil, model.NewUserNotFoundError()
	}

	user, err := s.users.FindByUsername(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// FollowRestaurant はレストランをフォローする。冪等。
func (s *Service) FollowRestaurant(ctx context.Context, userID, restaurantID string) error {
	return s.users.FollowRestaurant(ctx, userID, restaurantID)
}

// UnfollowRestaurant はレストランのフォローを解除する。冪等。
func (s *Service) UnfollowRestaurant(ctx context.Context, userID, restaurantID string) error {
	return s.users.UnfollowRestaurant(ctx, userID, restaurantID)
}

// SubscribeRestaurant はレストランを購読する。冪等。
func (s *Service) SubscribeRestaurant(ctx context.Context, userID, restaurantID string) error {
	return s.users.SubscribeRestaurant(ctx, userID, restaurantID)
}

// UnsubscribeRestaurant はレストランの購読を解除する。冪等。
func (s *Service) UnsubscribeRestaurant(ctx context.Context, userID, restaurantID string) error {
	return s.users.UnsubscribeRestaurant(ctx, userID, restaurantID)
}

// notifyProfileUpdate は更新通知メールをベストエフォートで送信する。
// ユーザー名の変更は専用の通知を優先する。
func (s *Service) notifyProfileUpdate(ctx context.Context, user *model.User, usernameChanged bool) {
	if s.mailer == nil || user.Email == "" {
		return
	}

	var err error
	if usernameChanged {
		err = s.mailer.SendUsernameChanged(ctx, user.Email, user.Name, user.Username)
	} else {
		err = s.mailer.SendProfileUpdated(ctx, user.Email, user.Name)
	}
	if err != nil {
		s.logger.Warn("プロフィール更新通知メールの送信に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}
