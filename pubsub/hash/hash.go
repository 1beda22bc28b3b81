// Package hash composes a fixed list of backends with the partition
// function into a single Backend that routes each call by topic name.
package hash

import (
	"context"

	"github.com/pubsubcluster/fanout/future"
	"github.com/pubsubcluster/fanout/pubsub"
	"github.com/pubsubcluster/fanout/pubsub/partition"
)

// Backend dispatches every call to exactly one of a fixed ordered list of
// underlying backends, chosen by partition.Partition(topic, len(backends)).
// The chosen index is constant for the life of the process and identical
// across every Backend constructed with the same ordered list (H1).
type Backend struct {
	backends []pubsub.Backend
}

// New constructs a Backend over backends. The order is load-bearing: it is
// exactly what partition.Partition indexes into.
func New(backends []pubsub.Backend) *Backend {
	return &Backend{backends: append([]pubsub.Backend(nil), backends...)}
}

func (b *Backend) route(topic string) pubsub.Backend {
	idx := partition.Partition(topic, len(b.backends))
	return b.backends[idx]
}

func (b *Backend) Subscribe(ctx context.Context, topic, user string) *future.Future[pubsub.Result] {
	return b.route(topic).Subscribe(ctx, topic, user)
}

func (b *Backend) Unsubscribe(ctx context.Context, topic, user string) *future.Future[pubsub.Result] {
	return b.route(topic).Unsubscribe(ctx, topic, user)
}

func (b *Backend) GetMessage(ctx context.Context, topic, user string) *future.Future[pubsub.Result] {
	return b.route(topic).GetMessage(ctx, topic, user)
}

func (b *Backend) PostMessage(ctx context.Context, topic string, body []byte) *future.Future[pubsub.Result] {
	return b.route(topic).PostMessage(ctx, topic, body)
}
