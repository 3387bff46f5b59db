package notify

import (
	"context"
	"log/slog"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
)

// LogNotifier writes deliveries to the log instead of sending mail. For
// development and tests only: it logs the code in plaintext.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SendCode(_ context.Context, email string, purpose domain.Purpose, code string) error {
	n.log.Info("would deliver code",
		"email", email,
		"purpose", string(purpose),
		"code", code,
	)
	return nil
}

func (n *LogNotifier) SendNotice(_ context.Context, email, subject, _ string) error {
	n.log.Info("would deliver notice",
		"email", email,
		"subject", subject,
	)
	return nil
}
