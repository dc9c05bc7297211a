// Package push keeps the single push connection to the backend and routes its
// messages by topic.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/your-org/sentinel/internal/observability"
)

const (
	TopicNewAlert           = "new-alert"
	TopicDescriptionUpdated = "description-updated"
)

var (
	ErrAlreadyConnected = errors.New("push: already connected")
	ErrEmptyTopic       = errors.New("push: empty topic")
	ErrNilHandler       = errors.New("push: nil handler")
)

// Message is one push delivery.
type Message struct {
	Topic string
	Data  json.RawMessage
}

// Handler processes the payload of one message. Errors are logged, not
// returned to the transport.
type Handler func(ctx context.Context, data json.RawMessage) error

// Link is how a transport reports back to the manager.
type Link interface {
	// Up is called each time the connection is established, including the
	// first time. Deliveries wait until Up returns.
	Up(ctx context.Context)
	Down(err error)
	Deliver(ctx context.Context, msg Message)
}

// Transport owns one physical connection. Run blocks until ctx is done,
// reconnecting as needed.
type Transport interface {
	Name() string
	Run(ctx context.Context, link Link) error
}

type Subscription struct {
	ID      string
	Topic   string
	handler Handler
}

type Manager struct {
	transport Transport

	mu     sync.Mutex
	subs   map[string][]*Subscription
	hooks  []func(context.Context)
	cancel context.CancelFunc
	done   chan struct{}
	online bool

	// serializes deliveries and connect hooks
	dispatchMu sync.Mutex
}

func NewManager(t Transport) *Manager {
	return &Manager{
		transport: t,
		subs:      make(map[string][]*Subscription),
	}
}

// Connect starts the transport in the background.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return ErrAlreadyConnected
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done

	go func() {
		defer close(done)
		if err := m.transport.Run(runCtx, (*link)(m)); err != nil && runCtx.Err() == nil {
			slog.Error("push transport stopped", "transport", m.transport.Name(), "error", err)
		}
		m.setOnline(false)
	}()

	slog.Info("push manager started", "transport", m.transport.Name())
	return nil
}

// Disconnect stops the transport and waits for it to exit. It is safe to call
// when not connected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	slog.Info("push manager stopped", "transport", m.transport.Name())
}

// Connected reports whether the transport currently has a live connection.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

func (m *Manager) Subscribe(topic string, h Handler) (*Subscription, error) {
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if h == nil {
		return nil, ErrNilHandler
	}
	sub := &Subscription{ID: uuid.NewString(), Topic: topic, handler: h}

	m.mu.Lock()
	m.subs[topic] = append(m.subs[topic], sub)
	m.mu.Unlock()
	return sub, nil
}

// Unsubscribe removes sub. Unknown or already removed subscriptions are
// ignored.
func (m *Manager) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.subs[sub.Topic]
	for i, s := range list {
		if s.ID == sub.ID {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(m.subs, sub.Topic)
	} else {
		m.subs[sub.Topic] = list
	}
}

// OnConnect registers fn to run every time the connection is established.
func (m *Manager) OnConnect(fn func(ctx context.Context)) {
	m.mu.Lock()
	m.hooks = append(m.hooks, fn)
	m.mu.Unlock()
}

func (m *Manager) setOnline(v bool) {
	m.mu.Lock()
	m.online = v
	m.mu.Unlock()
	if v {
		observability.PushConnected.Set(1)
	} else {
		observability.PushConnected.Set(0)
	}
}

func (m *Manager) handlers(topic string) []*Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.subs[topic]
	out := make([]*Subscription, len(list))
	copy(out, list)
	return out
}

func (m *Manager) dispatch(ctx context.Context, msg Message) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	subs := m.handlers(msg.Topic)
	if len(subs) == 0 {
		observability.PushEvents.WithLabelValues("other", "unhandled").Inc()
		slog.Debug("push message without subscribers", "topic", msg.Topic)
		return
	}
	for _, s := range subs {
		result := "ok"
		if err := invoke(ctx, s.handler, msg.Data); err != nil {
			result = "error"
			slog.Warn("push handler failed", "topic", msg.Topic, "subscription", s.ID, "error", err)
		}
		observability.PushEvents.WithLabelValues(msg.Topic, result).Inc()
	}
}

func invoke(ctx context.Context, h Handler, data json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, data)
}

type link Manager

func (l *link) Up(ctx context.Context) {
	m := (*Manager)(l)
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.setOnline(true)
	slog.Info("push connected", "transport", m.transport.Name())

	m.mu.Lock()
	hooks := append([]func(context.Context){}, m.hooks...)
	m.mu.Unlock()
	for _, fn := range hooks {
		runHook(ctx, fn)
	}
}

func (l *link) Down(err error) {
	m := (*Manager)(l)
	m.setOnline(false)
	slog.Warn("push connection lost", "transport", m.transport.Name(), "error", err)
}

func (l *link) Deliver(ctx context.Context, msg Message) {
	(*Manager)(l).dispatch(ctx, msg)
}

func runHook(ctx context.Context, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("push connect hook panic", "panic", r)
		}
	}()
	fn(ctx)
}
