package ports

import "context"

// Notifier delivers best-effort human-readable messages to operators.
// Implementations must never block the caller for long and delivery failures
// are logged, not propagated into the core logic.
type Notifier interface {
	NotifyStatus(ctx context.Context, text string) error
	NotifyError(ctx context.Context, text string) error
	NotifyCost(ctx context.Context, text string) error
}
