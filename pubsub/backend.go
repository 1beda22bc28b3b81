// Package pubsub implements the cluster's authoritative pub/sub state
// machine and the backend contract every routing layer (HashBackend,
// ProxyBackend) forwards calls through unchanged.
package pubsub

import (
	"context"

	"github.com/pubsubcluster/fanout/future"
)

// Result is what every backend operation resolves to: an HTTP-shaped status
// code and an optional opaque body. The same codes and meaning are used
// whether the call was served in-process or relayed from a remote node.
type Result struct {
	Status int
	Body   []byte
}

// Backend is the four-operation contract satisfied by MemoryBackend,
// ProxyBackend, and HashBackend alike. Every call returns a Future so a
// caller cannot tell whether the result was produced synchronously or by a
// later-completing network round trip.
type Backend interface {
	// Subscribe adds user to topic's subscriber set, creating topic if
	// absent. Idempotent: always resolves 200.
	Subscribe(ctx context.Context, topic, user string) *future.Future[Result]

	// Unsubscribe removes user from topic's subscriber set and evicts it
	// from every pending message. Resolves 200 if user was subscribed, 404
	// otherwise.
	Unsubscribe(ctx context.Context, topic, user string) *future.Future[Result]

	// GetMessage returns the oldest pending message addressed to user,
	// resolving 200 with its body, 204 if user is subscribed but has
	// nothing pending, or 404 if user is not subscribed to topic.
	GetMessage(ctx context.Context, topic, user string) *future.Future[Result]

	// PostMessage appends body as a new message addressed to every current
	// subscriber of topic, or drops it silently if topic has none. Always
	// resolves 200.
	PostMessage(ctx context.Context, topic string, body []byte) *future.Future[Result]
}

const (
	StatusOK        = 200
	StatusNoContent = 204
	StatusNotFound  = 404
	StatusError     = 500
)
