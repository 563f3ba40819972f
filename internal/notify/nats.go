package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
	"git.home.luguber.info/inful/contented/internal/logfields"
)

// Config configures the NATS notifier.
type Config struct {
	URL     string
	Subject string
	// JetStream publishes through JetStream and waits for the ack.
	JetStream bool
	// KVBucket, when set, additionally stores the latest notice per type
	// in a JetStream key-value bucket.
	KVBucket string
	Retry    RetryPolicy
}

// NATSNotifier publishes notices on <subject>.<type>.
type NATSNotifier struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	kv      jetstream.KeyValue
	subject string
	retry   RetryPolicy
	logger  *slog.Logger
}

// NewNATS connects to cfg.URL and prepares JetStream resources when
// configured.
func NewNATS(ctx context.Context, cfg Config) (*NATSNotifier, error) {
	if cfg.URL == "" {
		return nil, ferrors.ConfigError("nats url is required").Build()
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("contented"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, ferrors.NotifyError("failed to connect to NATS").WithCause(err).WithContext("url", cfg.URL).Build()
	}

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryPolicy()
	}
	n := &NATSNotifier{
		conn:    conn,
		subject: cfg.Subject,
		retry:   retry,
		logger:  slog.Default().With(logfields.URL(cfg.URL)),
	}

	if cfg.JetStream || cfg.KVBucket != "" {
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, ferrors.NotifyError("failed to create JetStream context").WithCause(err).Build()
		}
		if cfg.JetStream {
			n.js = js
		}
		if cfg.KVBucket != "" {
			kv, err := initKVBucket(ctx, js, cfg.KVBucket)
			if err != nil {
				conn.Close()
				return nil, err
			}
			n.kv = kv
		}
	}

	n.logger.Info("NATS notifier initialized", slog.String("subject", cfg.Subject), slog.Bool("jetstream", cfg.JetStream), slog.String("kv_bucket", cfg.KVBucket))
	return n, nil
}

func initKVBucket(ctx context.Context, js jetstream.JetStream, bucket string) (jetstream.KeyValue, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if kv, err := js.KeyValue(ctx, bucket); err == nil {
		return kv, nil
	}
	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Latest committed content index per type",
		History:     1,
	})
	if err != nil {
		return nil, ferrors.NotifyError("failed to create KV bucket").WithCause(err).WithContext("bucket", bucket).Build()
	}
	return kv, nil
}

// Notify publishes n. Connection failures are retried per the retry policy.
func (c *NATSNotifier) Notify(ctx context.Context, n Notice) error {
	data, err := n.Marshal()
	if err != nil {
		return ferrors.NotifyError("failed to marshal notice").WithCause(err).Build()
	}
	subject := Subject(c.subject, n.Type)

	err = c.retry.Do(ctx, "nats publish", func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if c.js != nil {
			_, err := c.js.Publish(ctx, subject, data)
			return err
		}
		return c.conn.Publish(subject, data)
	})
	if err != nil {
		return ferrors.NotifyError(fmt.Sprintf("failed to publish to %s", subject)).
			WithCause(err).
			WithContext("pipeline", n.Type).
			Build()
	}

	if c.kv != nil {
		if _, err := c.kv.Put(ctx, n.Type, data); err != nil {
			return ferrors.NotifyError("failed to store latest notice").WithCause(err).WithContext("pipeline", n.Type).Build()
		}
	}

	c.logger.Debug("Published index notice", slog.String("subject", subject), logfields.BatchID(n.BatchID), logfields.Count(n.Count))
	return nil
}

// Close drains and closes the connection.
func (c *NATSNotifier) Close() error {
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Drain(); err != nil {
		c.conn.Close()
		return err
	}
	return nil
}
