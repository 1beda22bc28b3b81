// Command fanout runs one frontend process of the pub/sub cluster. With no
// cluster topology configured it colocates a frontend and an in-process
// MemoryBackend (single-node mode); with NUM_BACKENDS set it runs as a
// clustered frontend routing over a HashBackend of ProxyBackends pointing
// at peer single-node processes.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"

	"github.com/pubsubcluster/fanout/app"
	"github.com/pubsubcluster/fanout/clusterevents"
	natsbroker "github.com/pubsubcluster/fanout/clusterevents/nats"
	"github.com/pubsubcluster/fanout/config"
	"github.com/pubsubcluster/fanout/frontend"
	"github.com/pubsubcluster/fanout/log"
	"github.com/pubsubcluster/fanout/preflight"
	"github.com/pubsubcluster/fanout/pubsub"
	"github.com/pubsubcluster/fanout/pubsub/hash"
	"github.com/pubsubcluster/fanout/pubsub/proxy"
	"github.com/pubsubcluster/fanout/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	bootLogger := log.NewLogger("info")

	cfg, err := config.New(bootLogger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFile, err := openLogFile(cfg.Server.Port)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger := log.NewLoggerTo(logFile, cfg.Log.Level)

	var (
		backend    pubsub.Backend
		components []any
	)

	if cfg.Clustered() {
		runPreflight(cfg, logger)

		backends := make([]pubsub.Backend, cfg.NumBackends)
		for i, authority := range cfg.BackendPorts {
			backends[i] = proxy.New(authority, logger.With("peer", i))
		}
		backend = hash.New(backends)
		logger.Infof("running clustered: num_backends=%d", cfg.NumBackends)
	} else {
		broker, brokerIsLive := buildEventBroker(cfg, logger)
		if brokerIsLive {
			components = append(components, broker)
		}
		backend = pubsub.NewMemoryBackend(
			pubsub.WithLogger(logger),
			pubsub.WithEventPublisher(broker),
		)
		logger.Infof("running single-node")
	}

	fe := frontend.New(backend, logger)

	// chi rejects middleware added after the first route, so the metrics
	// middleware is applied ahead of the route-registering options.
	r := app.NewRouter(logger,
		app.WithDefaultMiddlewares(),
		func(r chi.Router) error {
			r.Use(telemetry.MetricsMiddleware(telemetry.NoopMetrics{}))
			return nil
		},
		app.WithPing(),
		app.WithHealthChecks("fanout", "dev"),
		app.WithDebugRoutes(),
	)

	ctx := context.Background()
	starts, stops, registrars := app.Setup(ctx, r, components...)
	if err := app.Start(ctx, logger, starts, stops, registrars, r); err != nil {
		return fmt.Errorf("start components: %w", err)
	}

	r.Handle("/*", fe)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Infof("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("shutting down")
	app.Shutdown(srv, logger, stops)
	return nil
}

// openLogFile creates the logs directory if missing (an already-exists
// error is fine; anything else aborts startup) and opens this process's
// own log file, named by port so colocated peers on one host don't collide.
func openLogFile(port string) (*os.File, error) {
	if err := os.Mkdir("logs", 0o755); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}

	path := fmt.Sprintf("logs/server-%s.log", port)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// buildEventBroker returns a live NATS-backed broker when NATS_URL is set,
// or a NoopBroker otherwise. The bool return tells the caller whether the
// broker needs Start/Stop lifecycle management; a NoopBroker does not.
func buildEventBroker(cfg *config.Config, logger log.Logger) (clusterevents.Publisher, bool) {
	if cfg.NATS.URL == "" {
		return clusterevents.NewNoopBroker(), false
	}

	brokerCfg := natsbroker.DefaultConfig()
	brokerCfg.URL = cfg.NATS.URL
	return natsbroker.NewBroker(brokerCfg, logger), true
}

// runPreflight TCP-dials every peer backend authority before serving
// traffic. Failures are logged only: a backend that is briefly unreachable
// at startup is not fatal, since HashBackend/ProxyBackend calls simply fail
// per-request (and surface as 500s) until the peer comes up.
func runPreflight(cfg *config.Config, logger log.Logger) {
	checker := preflight.New(logger)
	for i, authority := range cfg.BackendPorts {
		checker.Add(preflight.TCPCheck(fmt.Sprintf("backend%d-tcp", i), hostPort(authority)))
		checker.Add(preflight.HTTPCheck(fmt.Sprintf("backend%d-ping", i), authority+"/ping"))
	}
	if err := checker.RunAll(context.Background()); err != nil {
		logger.Errorf("preflight check failed, continuing startup anyway: %v", err)
	}
}

// hostPort strips the scheme from a BACKEND{i}_PORT authority, leaving the
// bare host:port a net.Dialer needs.
func hostPort(authority string) string {
	if i := strings.Index(authority, "://"); i >= 0 {
		return authority[i+3:]
	}
	return authority
}
