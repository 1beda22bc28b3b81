package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pubsubcluster/fanout/log"
)

// RouteRegistrar registers a component's HTTP routes on the shared router.
// Registration happens in Start, after every component's Startable.Start has
// succeeded, so a handler never fields a request before its own dependencies
// are up.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Startable components have state to bring up before they can serve traffic.
type Startable interface {
	Start(ctx context.Context) error
}

// Stoppable components release resources acquired by Start.
type Stoppable interface {
	Stop(ctx context.Context) error
}

// Setup inspects each component and buckets it into the start, stop, and
// route-registration slices Start and Shutdown operate on. A component may
// implement any subset of RouteRegistrar, Startable, Stoppable.
func Setup(ctx context.Context, r chi.Router, components ...any) (
	starts []func(context.Context) error,
	stops []func(context.Context) error,
	registrars []RouteRegistrar,
) {
	for _, c := range components {
		if s, ok := c.(Startable); ok {
			starts = append(starts, s.Start)
		}
		if s, ok := c.(Stoppable); ok {
			stops = append(stops, s.Stop)
		}
		if rr, ok := c.(RouteRegistrar); ok {
			registrars = append(registrars, rr)
		}
	}
	return starts, stops, registrars
}

// Start runs each start function in order. On the first failure, it rolls
// back by stopping every component started so far, in reverse order, and
// returns the original start error. On full success, it registers every
// registrar's routes on r.
func Start(ctx context.Context, logger log.Logger, starts []func(context.Context) error, stops []func(context.Context) error, registrars []RouteRegistrar, r chi.Router) error {
	started := 0
	for _, start := range starts {
		if err := start(ctx); err != nil {
			for i := started - 1; i >= 0; i-- {
				if stopErr := stops[i](ctx); stopErr != nil {
					logger.Errorf("rollback stop failed: %v", stopErr)
				}
			}
			return err
		}
		started++
	}

	for _, rr := range registrars {
		rr.RegisterRoutes(r)
	}

	return nil
}

// Shutdown stops every component in reverse start order, bounding each stop
// call with shutdownTimeout, then shuts down srv gracefully. Stop errors are
// logged, not returned: shutdown must make a best-effort pass through every
// component regardless of earlier failures.
const shutdownTimeout = 10 * time.Second

func Shutdown(srv *http.Server, logger log.Logger, stops []func(context.Context) error) {
	for i := len(stops) - 1; i >= 0; i-- {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := stops[i](ctx); err != nil {
			logger.Errorf("component stop failed: %v", err)
		}
		cancel()
	}

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Errorf("server shutdown failed: %v", err)
		}
	}
}
