package email

import "context"

// SentRecorder は送信結果のメトリクス記録インターフェース。
type SentRecorder interface {
	RecordEmailSent(success bool)
}

// InstrumentedSender はSenderをラップし、送信結果をメトリクスに記録する。
type InstrumentedSender struct {
	next     Sender
	recorder SentRecorder
}

// NewInstrumentedSender はInstrumentedSenderを生成する。
func NewInstrumentedSender(next Sender, recorder SentRecorder) *InstrumentedSender {
	return &InstrumentedSender{next: next, recorder: recorder}
}

// SendWelcome は委譲して結果を記録する。
func (s *InstrumentedSender) SendWelcome(ctx context.Context, to, name string) error {
	err := s.next.SendWelcome(ctx, to, name)
	s.recorder.RecordEmailSent(err == nil)
	return err
}

// SendUsernameChanged は委譲して結果を記録する。
func (s *InstrumentedSender) SendUsernameChanged(ctx context.Context, to, name, username string) error {
	err := s.next.SendUsernameChanged(ctx, to, name, username)
	s.recorder.RecordEmailSent(err == nil)
	return err
}

// SendProfileUpdated は委譲して結果を記録する。
func (s *InstrumentedSender) SendProfileUpdated(ctx context.Context, to, name string) error {
	err := s.next.SendProfileUpdated(ctx, to, name)
	s.recorder.RecordEmailSent(err == nil)
	return err
}

// compile-time interface check
var _ Sender = (*InstrumentedSender)(nil)
