// Package notify delivers one-time codes and account notices to principals.
package notify

import (
	"context"

	"github.com/cobaltleaf/doorman/internal/identity/domain"
)

// Notifier delivers messages out of band. Implementations must treat the code
// as a secret: it may appear in the message body but never in logs.
type Notifier interface {
	// SendCode delivers a one-time code for the given purpose.
	SendCode(ctx context.Context, email string, purpose domain.Purpose, code string) error

	// SendNotice delivers a plain informational message, such as a
	// registration confirmation.
	SendNotice(ctx context.Context, email, subject, body string) error
}
