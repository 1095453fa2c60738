package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"cultura/internal/bootstrap/logging"
	"cultura/internal/errs"
	"cultura/internal/ports"
)

const DefaultSubject = "cultura.runs"

// NATSNotifier publishes run reports as JSON on a single subject.
type NATSNotifier struct {
	conn    *nats.Conn
	subject string
}

var _ ports.Notifier = (*NATSNotifier)(nil)

func Connect(ctx context.Context, url string, subject string) (*NATSNotifier, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("nats url is required")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = DefaultSubject
	}

	ctx = logging.WithComponent(ctx, "notify")
	conn, err := nats.Connect(url,
		nats.Name("cultura"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logging.Warn(ctx, "nats disconnected", slog.Any("err", errs.Loggable(err)))
			}
		}),
	)
	if err != nil {
		return nil, errs.Wrapf(err, "connect nats %s", url)
	}
	logging.Info(ctx, "nats connected", slog.String("url", url), slog.String("subject", subject))
	return &NATSNotifier{conn: conn, subject: subject}, nil
}

func (n *NATSNotifier) Subject() string {
	return n.subject
}

func (n *NATSNotifier) PublishRun(ctx context.Context, report ports.RunReport) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	body, err := json.Marshal(report)
	if err != nil {
		return errs.Wrap(err, "encode run report")
	}
	if err := n.conn.Publish(n.subject+"."+report.Stage, body); err != nil {
		return errs.Wrapf(err, "publish run report %s", report.Stage)
	}
	return nil
}

// Close flushes pending messages and drains the connection.
func (n *NATSNotifier) Close() error {
	if n == nil || n.conn == nil || n.conn.IsClosed() {
		return nil
	}
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return errs.Wrap(err, "drain nats connection")
	}
	return nil
}
