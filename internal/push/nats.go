package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const AlertsSubjectBase = "alerts"

// NATSTransport consumes alert topics from a JetStream stream. The subject
// alerts.<topic> carries the same payload as a WebSocket frame's data.
type NATSTransport struct {
	url      string
	stream   string
	consumer string
	wait     time.Duration
}

func NewNATSTransport(url, stream, consumer string, reconnectWait time.Duration) *NATSTransport {
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	return &NATSTransport{url: url, stream: stream, consumer: consumer, wait: reconnectWait}
}

func (t *NATSTransport) Name() string { return "nats" }

func (t *NATSTransport) Run(ctx context.Context, l Link) error {
	nc, err := connectNATS(t.url, t.wait,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			l.Down(err)
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			l.Up(ctx)
		}),
	)
	if err != nil {
		return err
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create jetstream context: %w", err)
	}

	cons, err := t.ensureConsumer(ctx, js)
	if err != nil {
		return err
	}
	slog.Info("alert consumer started", "stream", t.stream, "consumer", t.consumer)
	l.Up(ctx)

	prefix := AlertsSubjectBase + "."
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		batch, err := cons.Fetch(10, jetstream.FetchMaxWait(time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Warn("fetch alerts error", "error", err)
			sleep(ctx, time.Second)
			continue
		}

		for msg := range batch.Messages() {
			topic := strings.TrimPrefix(msg.Subject(), prefix)
			l.Deliver(ctx, Message{Topic: topic, Data: json.RawMessage(msg.Data())})
			_ = msg.Ack()
		}
	}
}

// ensureConsumer retries while the server or the stream is not up yet.
func (t *NATSTransport) ensureConsumer(ctx context.Context, js jetstream.JetStream) (jetstream.Consumer, error) {
	for attempt := 1; ; attempt++ {
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		cons, err := js.CreateOrUpdateConsumer(opCtx, t.stream, jetstream.ConsumerConfig{
			Name:          t.consumer,
			Durable:       t.consumer,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       10 * time.Second,
			MaxDeliver:    3,
			FilterSubject: AlertsSubjectBase + ".>",
			DeliverPolicy: jetstream.DeliverNewPolicy,
		})
		cancel()
		if err == nil {
			return cons, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("create alert consumer (retrying...)", "stream", t.stream, "attempt", attempt, "error", err)
		sleep(ctx, t.wait)
	}
}

// Publisher writes alert topics into the stream. The backend normally does
// this; the gateway uses it for the simulator and tests.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream string
}

func NewPublisher(url, stream string) (*Publisher, error) {
	nc, err := connectNATS(url, 2*time.Second)
	if err != nil {
		return nil, err
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}
	return &Publisher{nc: nc, js: js, stream: stream}, nil
}

// EnsureStream creates the alert stream if it doesn't exist.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        p.stream,
		Subjects:    []string{AlertsSubjectBase + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Description: "Alert push topics",
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", p.stream, err)
	}
	slog.Info("ensured NATS stream", "name", p.stream)
	return nil
}

func (p *Publisher) Publish(ctx context.Context, topic string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	if _, err := p.js.Publish(ctx, AlertsSubjectBase+"."+topic, payload); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.nc.Close()
}

func connectNATS(url string, wait time.Duration, opts ...nats.Option) (*nats.Conn, error) {
	opts = append([]nats.Option{
		nats.Name("sentinel-gateway"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(wait),
	}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return nc, nil
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
