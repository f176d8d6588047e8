package mail

import (
	"context"

	"go.uber.org/zap"
)

// メール送信の代わりにログへ出す（SMTPを持たない環境用）
// リンクにはトークンが載るのでDebugでだけ出す
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.Named("mail")}
}

func (m *LogMailer) SendPasswordReset(_ context.Context, to string, name string, resetURL string) error {
	m.logger.Info("password reset mail",
		zap.String("to", to),
		zap.String("subject", "Your Password Reset Request"),
	)
	m.logger.Debug("password reset link", zap.String("to", to), zap.String("name", name), zap.String("url", resetURL))
	return nil
}
