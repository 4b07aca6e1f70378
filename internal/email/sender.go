// Package email は通知メールの送信を提供する。
// すべての送信はベストエフォートであり、呼び出し側は失敗をログに残すのみで
// 処理を継続する。
package email

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Sender は通知メールの送信インターフェース。
type Sender interface {
	// SendWelcome はサインアップ完了メールを送信する。
	SendWelcome(ctx context.Context, to, name string) error

	// SendUsernameChanged はユーザー名変更通知を送信する。
	SendUsernameChanged(ctx context.Context, to, name, username string) error

	// SendProfileUpdated はプロフィール更新通知を送信する。
	SendProfileUpdated(ctx context.Context, to, name string) error
}

// SMTPConfig はSMTP送信の設定。
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender はSMTP経由でメールを送信するSender実装。
type SMTPSender struct {
	config SMTPConfig
}

// NewSMTPSender はSMTPSenderを生成する。
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{config: config}
}

// SendWelcome はサインアップ完了メールを送信する。
func (s *SMTPSender) SendWelcome(ctx context.Context, to, name string) error {
	subject := "Feastverseへようこそ"
	body := fmt.Sprintf(
		"%s さん\n\nFeastverseへの登録が完了しました。\nお近くのレストランを探して、最初のレビューを投稿してみましょう。\n",
		name,
	)
	return s.send(ctx, to, subject, body)
}

// SendUsernameChanged はユーザー名変更通知を送信する。
func (s *SMTPSender) SendUsernameChanged(ctx context.Context, to, name, username string) error {
	subject := "ユーザー名が変更されました"
	body := fmt.Sprintf(
		"%s さん\n\nユーザー名が @%s に変更されました。\n心当たりのない場合はサポートまでご連絡ください。\n",
		name, username,
	)
	return s.send(ctx, to, subject, body)
}

// SendProfileUpdated はプロフィール更新通知を送信する。
func (s *SMTPSender) SendProfileUpdated(ctx context.Context, to, name string) error {
	subject := "プロフィールが更新されました"
	body := fmt.Sprintf(
		"%s さん\n\nプロフィールが更新されました。\n心当たりのない場合はサポートまでご連絡ください。\n",
		name,
	)
	return s.send(ctx, to, subject, body)
}

// send はメッセージを構築してSMTPサーバーへ送信する。
func (s *SMTPSender) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.config.From); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	client, err := mail.NewClient(s.config.Host,
		mail.WithPort(s.config.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.config.Username),
		mail.WithPassword(s.config.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	return nil
}

// compile-time interface check
var _ Sender = (*SMTPSender)(nil)

// NopSender は何も送信しないSender実装。メール送信が無効な環境で使用する。
type NopSender struct{}

// SendWelcome は何もしない。
func (NopSender) SendWelcome(ctx context.Context, to, name string) error { return nil }

// SendUsernameChanged は何もしない。
func (NopSender) SendUsernameChanged(ctx context.Context, to, name, username string) error {
	return nil
}

// SendProfileUpdated は何もしない。
func (NopSender) SendProfileUpdated(ctx context.Context, to, name string) error { return nil }

// compile-time interface check
var _ Sender = NopSender{}
