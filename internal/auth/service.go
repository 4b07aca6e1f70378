// Package auth は連合認証とセッショントークンの発行・検証を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/feastverse/backend/internal/model"
	"github.com/feastverse/backend/internal/repository"
	"github.com/google/uuid"
)

// IdentityVerifier は外部IdPの資格情報を正規化済みクレームに変換する。
type IdentityVerifier interface {
	Normalize(ctx context.Context, credential string) (*model.IdentityClaims, error)
}

// WelcomeMailer はサインアップ完了メールを送信する。
type WelcomeMailer interface {
	SendWelcome(ctx context.Context, to, name string) error
}

// LoginResult はサインアップ・ログイン成功時の結果。
type LoginResult struct {
	User  *model.User
	Token string
}

// suggestionCount はユーザー名候補の提示数。
const suggestionCount = 3

// Service は連合認証のサインアップ・ログインフローを提供する。
type Service struct {
	users    repository.UserRepository
	verifier IdentityVerifier
	tokens   *TokenService
	mailer   WelcomeMailer
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	randInt  func(n int) int
}

// NewService はServiceを生成する。mailerはnilでもよく、その場合メールは送信されない。
func NewService(
	users repository.UserRepository,
	verifier IdentityVerifier,
	tokens *TokenService,
	mailer WelcomeMailer,
	logger *slog.Logger,
) *Service {
	return &Service{
		users:    users,
		verifier: verifier,
		tokens:   tokens,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		randInt:  rand.Intn,
	}
}

// Signup は資格情報を検証し、希望ユーザー名で新規ユーザーを登録して
// トークンを発行する。既に登録済みの連合IDの場合はAlreadyRegistered、
// ユーザー名が使用済みの場合はUsernameTakenを返す。
// ウェルカムメールはベストエフォートで送信し、失敗してもサインアップは成功する。
func (s *Service) Signup(ctx context.Context, credential, username string) (*LoginResult, error) {
	normalized := model.NormalizeUsername(username)
	if normalized == "" {
		return nil, model.NewInvalidRequestError("ユーザー名が空です")
	}

	claims, err := s.verifier.Normalize(ctx, credential)
	if err != nil {
		return nil, err
	}

	existing, err := s.users.FindBySubjectID(ctx, claims.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if existing != nil {
		return nil, model.NewAlreadyRegisteredError()
	}

	taken, err := s.users.FindByUsername(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if taken != nil {
		return nil, model.NewUsernameTakenError(normalized)
	}

	user := &model.User{
		ID:        s.newID(),
		SubjectID: claims.SubjectID,
		Email:     claims.Email,
		Name:      claims.Name,
		Picture:   claims.Picture,
		Username:  normalized,
		CreatedAt: s.now(),
	}
	// 同時サインアップの競合はCreate側のUNIQUE制約が最終的に防ぐ
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.sendWelcomeEmail(ctx, user)

	return &LoginResult{User: user, Token: token}, nil
}

// Login は資格情報を検証し、登録済みユーザーのトークンを発行する。
// 未登録の連合IDの場合はNotRegisteredを返す。
func (s *Service) Login(ctx context.Context, credential string) (*LoginResult, error) {
	claims, err := s.verifier.Normalize(ctx, credential)
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindBySubjectID(ctx, claims.SubjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewNotRegisteredError()
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	return &LoginResult{User: user, Token: token}, nil
}

// CheckRegistered は資格情報を検証し、登録済みかどうかを返す。
// 登録済みの場合はユーザーも返す。
func (s *Service) CheckRegistered(ctx context.Context, credential string) (bool, *model.User, error) {
	claims, err := s.verifier.Normalize(ctx, credential)
	if err != nil {
		return false, nil, err
	}

	user, err := s.users.FindBySubjectID(ctx, claims.SubjectID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user != nil, user, nil
}

// UsernameCheck はユーザー名の可用性チェック結果。
type UsernameCheck struct {
	Available   bool
	Suggestions []string
}

// CheckUsername は正規化済みユーザー名の可用性を調べる。
// 使用済みの場合は末尾に乱数を付加した候補を3件提示する。
func (s *Service) CheckUsername(ctx context.Context, username string) (*UsernameCheck, error) {
	normalized := model.NormalizeUsername(username)
	if normalized == "" {
		return nil, model.NewInvalidRequestError("ユーザー名が空です")
	}

	existing, err := s.users.FindByUsername(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing == nil {
		return &UsernameCheck{Available: true}, nil
	}

	suggestions, err := s.suggestUsernames(ctx, normalized)
	if err != nil {
		return nil, err
	}
	return &UsernameCheck{Available: false, Suggestions: suggestions}, nil
}

// suggestUsernames は末尾に10〜999の乱数を付加した候補を生成する。
// 候補自体も使用済みの場合は引き直す。
func (s *Service) suggestUsernames(ctx context.Context, base string) ([]string, error) {
	suggestions := make([]string, 0, suggestionCount)
	seen := map[string]bool{}

	for attempts := 0; len(suggestions) < suggestionCount && attempts < suggestionCount*10; attempts++ {
		candidate := fmt.Sprintf("%s%d", base, 10+s.randInt(990))
		if seen[candidate] {
			continue
		}
		seen[candidate] = true

		existing, err := s.users.FindByUsername(ctx, candidate)
		if err != nil {
			return nil, fmt.Errorf("failed to check suggestion: %w", err)
		}
		if existing == nil {
			suggestions = append(suggestions, candidate)
		}
	}

	return suggestions, nil
}

// CurrentUser は認証済みユーザーIDからユーザーを取得する。
func (s *Service) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// sendWelcomeEmail はウェルカムメールをベストエフォートで送信する。
func (s *Service) sendWelcomeEmail(ctx context.Context, user *model.User) {
	if s.mailer == nil || user.Email == "" {
		return
	}
	name := user.Name
	if name == "" {
		name = strings.Split(user.Email, "@")[0]
	}
	if err := s.mailer.SendWelcome(ctx, user.Email, name); err != nil {
		s.logger.Warn("ウェルカムメールの送信に失敗しました",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}
