package auth

import (
	"context"

	"github.com/feastverse/backend/internal/model"
)

// AuthResultRecorder は認証結果のメトリクス記録インターフェース。
type AuthResultRecorder interface {
	RecordAuthResult(operation string, success bool)
}

// InstrumentedService はServiceをラップし、サインアップ・ログインの
// 成否をメトリクスに記録する。
type InstrumentedService struct {
	*Service
	recorder AuthResultRecorder
}

// NewInstrumentedService はInstrumentedServiceを生成する。
func NewInstrumentedService(service *Service, recorder AuthResultRecorder) *InstrumentedService {
	return &InstrumentedService{Service: service, recorder: recorder}
}

// Signup は委譲して結果を記録する。
func (s *InstrumentedService) Signup(ctx context.Context, credential, username string) (*LoginResult, error) {
	result, err := s.Service.Signup(ctx, credential, username)
	s.recorder.RecordAuthResult("signup", err == nil)
	return result, err
}

// Login は委譲して結果を記録する。
func (s *InstrumentedService) Login(ctx context.Context, credential string) (*LoginResult, error) {
	result, err := s.Service.Login(ctx, credential)
	s.recorder.RecordAuthResult("login", err == nil)
	return result, err
}

// CheckRegistered は委譲して結果を記録する。資格情報の検証失敗のみを失敗とする。
func (s *InstrumentedService) CheckRegistered(ctx context.Context, credential string) (bool, *model.User, error) {
	registered, user, err := s.Service.CheckRegistered(ctx, credential)
	s.recorder.RecordAuthResult("check_registered", err == nil)
	return registered, user, err
}
