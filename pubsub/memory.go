package pubsub

import (
	"context"
	"sync"

	"github.com/pubsubcluster/fanout/clusterevents"
	"github.com/pubsubcluster/fanout/future"
	"github.com/pubsubcluster/fanout/log"
)

// topic holds one topic's subscriber set and pending message queue.
type topic struct {
	subs     map[string]struct{}
	messages []*message
}

// message is one undelivered post plus the set of subscribers still owed a
// copy of it. subs is a snapshot taken at post time, never a live alias of
// the topic's subscriber set — aliasing it would let a later subscriber
// receive a message posted before it subscribed.
type message struct {
	body []byte
	subs map[string]struct{}
}

// MemoryBackend is the authoritative in-memory pub/sub state machine. It
// implements Backend synchronously: every call resolves its Future before
// returning.
//
// The original single-threaded event-loop model needs no locking because
// all mutation runs to completion before the next event is processed. Go's
// net/http dispatches one goroutine per request, so MemoryBackend instead
// serializes access with a mutex; this is a deliberate mechanism change that
// preserves every invariant of the state machine (T1-T3, M1-M2) exactly,
// since the critical sections below amount to the same atomic transitions
// the event loop would perform in order.
type MemoryBackend struct {
	mu     sync.Mutex
	topics map[string]*topic

	log    log.Logger
	events clusterevents.Publisher
}

// Option configures a MemoryBackend at construction.
type Option func(*MemoryBackend)

// WithLogger attaches a logger for diagnostic (non-access) output.
func WithLogger(l log.Logger) Option {
	return func(m *MemoryBackend) { m.log = l }
}

// WithEventPublisher attaches a cluster-event publisher. Events are
// best-effort: a publish failure is logged and otherwise ignored, never
// surfaced as a backend failure.
func WithEventPublisher(p clusterevents.Publisher) Option {
	return func(m *MemoryBackend) { m.events = p }
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend(opts ...Option) *MemoryBackend {
	m := &MemoryBackend{
		topics: make(map[string]*topic),
		log:    log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// topicFor returns the named topic, creating it lazily. Every operation
// references a topic through this, so even a failed GetMessage against an
// unknown name leaves behind an (empty) topic — deliberate, matching the
// service's "reference creates" rule.
func (m *MemoryBackend) topicFor(name string) *topic {
	t, ok := m.topics[name]
	if !ok {
		t = &topic{subs: make(map[string]struct{})}
		m.topics[name] = t
	}
	return t
}

func (m *MemoryBackend) emit(name, kind, subject string) {
	if m.events == nil {
		return
	}
	env := clusterevents.NewEnvelope(name, kind).WithMetadata("subject", subject)
	if err := m.events.Publish(context.Background(), name, env); err != nil {
		m.log.Debugf("cluster event publish failed: %v", err)
	}
}

// Subscribe adds user to topic's subscriber set. Idempotent: repeating it
// with no intervening Unsubscribe leaves user present exactly once and
// always resolves 200.
func (m *MemoryBackend) Subscribe(ctx context.Context, topicName, user string) *future.Future[Result] {
	m.mu.Lock()
	t := m.topicFor(topicName)
	t.subs[user] = struct{}{}
	m.mu.Unlock()

	m.emit(topicName, "subscribe", user)
	return future.Now(Result{Status: StatusOK})
}

// Unsubscribe removes user from topic's subscriber set and evicts it from
// every pending message's delivery list, dropping any message whose list
// becomes empty as a result. Resolves 404 if user was not subscribed.
func (m *MemoryBackend) Unsubscribe(ctx context.Context, topicName, user string) *future.Future[Result] {
	m.mu.Lock()
	t := m.topicFor(topicName)
	if _, ok := t.subs[user]; !ok {
		m.mu.Unlock()
		return future.Now(Result{Status: StatusNotFound})
	}
	delete(t.subs, user)

	kept := t.messages[:0]
	for _, msg := range t.messages {
		delete(msg.subs, user)
		if len(msg.subs) > 0 {
			kept = append(kept, msg)
		}
	}
	t.messages = kept
	m.mu.Unlock()

	m.emit(topicName, "unsubscribe", user)
	return future.Now(Result{Status: StatusOK})
}

// GetMessage returns the oldest pending message addressed to user, removing
// user from its delivery list (and the message itself, if that empties the
// list). Resolves 404 if user is not subscribed, 204 if subscribed with
// nothing pending.
func (m *MemoryBackend) GetMessage(ctx context.Context, topicName, user string) *future.Future[Result] {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.topicFor(topicName)
	if _, ok := t.subs[user]; !ok {
		return future.Now(Result{Status: StatusNotFound})
	}

	for i, msg := range t.messages {
		if _, addressed := msg.subs[user]; !addressed {
			continue
		}
		delete(msg.subs, user)
		body := msg.body
		if len(msg.subs) == 0 {
			t.messages = append(t.messages[:i], t.messages[i+1:]...)
		}
		return future.Now(Result{Status: StatusOK, Body: body})
	}

	return future.Now(Result{Status: StatusNoContent})
}

// PostMessage appends body as a new message addressed to a snapshot of
// topic's current subscriber set, or drops it silently if topic has none.
// Always resolves 200.
func (m *MemoryBackend) PostMessage(ctx context.Context, topicName string, body []byte) *future.Future[Result] {
	m.mu.Lock()
	t := m.topicFor(topicName)
	if len(t.subs) > 0 {
		snapshot := make(map[string]struct{}, len(t.subs))
		for u := range t.subs {
			snapshot[u] = struct{}{}
		}
		t.messages = append(t.messages, &message{body: body, subs: snapshot})
	}
	m.mu.Unlock()

	m.emit(topicName, "post", "")
	return future.Now(Result{Status: StatusOK})
}
