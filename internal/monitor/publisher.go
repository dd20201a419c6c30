package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/logfields"
)

// Publisher announces recorded executions to an external system.
type Publisher interface {
	Publish(ctx context.Context, rec ExecutionRecord) error
	Close() error
}

// DefaultPublishTimeout bounds a single publish when the caller's context has no deadline.
const DefaultPublishTimeout = 5 * time.Second

// NATSOptions configures NATSPublisher.
type NATSOptions struct {
	URL     string
	Subject string
	// Stream, when set, enables JetStream: the stream is created or updated to
	// capture Subject and publishes wait for an ack.
	Stream  string
	Timeout time.Duration
}

// NATSPublisher publishes records as JSON to a NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
	timeout time.Duration
}

// NewNATSPublisher connects to the server at opts.URL.
func NewNATSPublisher(ctx context.Context, opts NATSOptions) (*NATSPublisher, error) {
	if opts.Subject == "" {
		return nil, derrors.ConfigError("nats subject is required").Build()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPublishTimeout
	}

	conn, err := nats.Connect(opts.URL, nats.Name("echopipe-monitor"), nats.Timeout(opts.Timeout))
	if err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryMessaging, "failed to connect to NATS").
			WithContext("url", opts.URL).
			Build()
	}

	p := &NATSPublisher{conn: conn, subject: opts.Subject, timeout: opts.Timeout}
	if opts.Stream != "" {
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, derrors.WrapError(err, derrors.CategoryMessaging, "failed to create JetStream context").Build()
		}
		sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if _, err := js.CreateOrUpdateStream(sctx, jetstream.StreamConfig{
			Name:        opts.Stream,
			Description: "Echo pipeline execution records",
			Subjects:    []string{opts.Subject},
		}); err != nil {
			conn.Close()
			return nil, derrors.WrapError(err, derrors.CategoryMessaging, "failed to create JetStream stream").
				WithContext("stream", opts.Stream).
				Build()
		}
		p.js = js
	}

	slog.Info("NATS publisher initialized",
		slog.String("url", opts.URL),
		slog.String("subject", opts.Subject),
		slog.String("stream", opts.Stream))
	return p, nil
}

// Publish sends rec. With JetStream the run id is used as message id so
// redelivered records are deduplicated by the server.
func (p *NATSPublisher) Publish(ctx context.Context, rec ExecutionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryMessaging, "failed to encode execution record").Build()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if p.js != nil {
		_, err = p.js.Publish(ctx, p.subject, data, jetstream.WithMsgID(rec.ID))
	} else {
		err = p.conn.Publish(p.subject, data)
	}
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryMessaging, "failed to publish execution record").
			WithContext("subject", p.subject).
			Build()
	}

	slog.Debug("Published execution record", logfields.RunID(rec.ID), slog.String("subject", p.subject))
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
