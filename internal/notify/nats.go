package notify

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const DefaultSubject = "loyalty.events"

// NATSNotifier publishes outcome events as JSON to a NATS subject, where a
// presentation consumer turns them into user-facing notifications.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

func NewNATSNotifier(conn *nats.Conn, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{conn: conn, subject: subject}
}

func (n *NATSNotifier) Notify(_ context.Context, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("failed to marshal loyalty event", zap.Error(err))
		return
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		zap.L().Error("failed to publish loyalty event", zap.Error(err))
	}
}
