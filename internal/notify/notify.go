package notify

import (
	"context"

	"go.uber.org/zap"
)

type Kind string

const (
	KindSpendSuccess Kind = "spend_success"
	KindSpendFailure Kind = "spend_failure"
	KindEarnSuccess  Kind = "earn_success"
	KindEarnFailure  Kind = "earn_failure"
)

// Event is the outcome the ledger emits for user-facing presentation.
// Delivery is best effort: the ledger never depends on whether or how an
// event is displayed.
type Event struct {
	Kind   Kind   `json:"kind"`
	UserID int    `json:"user_id"`
	Amount int    `json:"amount,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// LogNotifier writes outcome events to the application log.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Notify(_ context.Context, event Event) {
	zap.L().Info("loyalty event",
		zap.String("kind", string(event.Kind)),
		zap.Int("user_id", event.UserID),
		zap.Int("amount", event.Amount),
		zap.String("reason", event.Reason),
	)
}
