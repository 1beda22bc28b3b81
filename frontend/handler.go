// Package frontend implements the HTTP request pipeline: it parses a
// request path, invokes the backend contract (synchronous MemoryBackend or
// asynchronous ProxyBackend/HashBackend, indistinguishably), and writes the
// response, emitting one access log line per routed request.
package frontend

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pubsubcluster/fanout/future"
	"github.com/pubsubcluster/fanout/log"
	"github.com/pubsubcluster/fanout/pubsub"
)

// Frontend is a single HTTP resource that owns one backend handle. It never
// routes on the method alone: every request is classified by method plus
// path shape, per the routing table in §4.6.
type Frontend struct {
	backend pubsub.Backend
	log     log.Logger
}

// New constructs a Frontend over backend. backend may be a MemoryBackend
// (single-node deploy) or a HashBackend wrapping ProxyBackends (clustered
// deploy); the Frontend treats both identically, since both satisfy
// pubsub.Backend behind the same Future-returning contract.
func New(backend pubsub.Backend, logger log.Logger) *Frontend {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Frontend{backend: backend, log: logger}
}

// pathParts splits the URL path on "/", excluding the leading empty segment
// produced by the leading slash every absolute path carries.
func pathParts(path string) []string {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func (f *Frontend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	parts := pathParts(r.URL.Path)

	switch {
	case r.Method == http.MethodPost && len(parts) == 1:
		f.servePostMessage(w, r, start, parts[0])
	case r.Method == http.MethodPost && len(parts) == 2:
		f.dispatch(w, r, start, "Subscribe", parts, f.backend.Subscribe(r.Context(), parts[0], parts[1]))
	case r.Method == http.MethodGet && len(parts) == 2:
		f.dispatch(w, r, start, "GetMessage", parts, f.backend.GetMessage(r.Context(), parts[0], parts[1]))
	case r.Method == http.MethodDelete && len(parts) == 2:
		f.dispatch(w, r, start, "Unsubscribe", parts, f.backend.Unsubscribe(r.Context(), parts[0], parts[1]))
	default:
		// Malformed shape: 404, empty body, no backend call, no log entry.
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *Frontend) servePostMessage(w http.ResponseWriter, r *http.Request, start time.Time, topic string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		// Treat an unreadable body the same as a malformed request: no
		// backend call was made, so no access log entry is owed either.
		w.WriteHeader(http.StatusNotFound)
		return
	}
	f.dispatch(w, r, start, "PostMessage", []string{topic}, f.backend.PostMessage(r.Context(), topic, body))
}

// dispatch is the common tail of every routed request: block on fut until
// it resolves or the client disconnects, write the response, and emit the
// access log line with the time elapsed since start, which ServeHTTP
// records before the backend operation is invoked.
//
// A synchronously returned value and an asynchronously completing future
// are indistinguishable here — both arrive through the same Future.Get
// call, and the response is never finished before it returns.
func (f *Frontend) dispatch(w http.ResponseWriter, r *http.Request, start time.Time, op string, args []string, fut *future.Future[pubsub.Result]) {
	res, err := fut.Get(r.Context())
	elapsed := time.Since(start)

	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		f.log.Errorf("backend failure: op=%s args=%v: %v", op, args, err)
		f.logAccess(http.StatusInternalServerError, elapsed, op, args, nil)
		return
	}

	w.WriteHeader(res.Status)
	if len(res.Body) > 0 {
		w.Write(res.Body)
	}
	f.logAccess(res.Status, elapsed, op, args, res.Body)
}

// logAccess emits the one required info line per routed request: status,
// elapsed time as "{n}ms", operation name, argument tuple, and — for
// GetMessage only — the body.
func (f *Frontend) logAccess(status int, elapsed time.Duration, op string, args []string, body []byte) {
	ms := elapsed.Milliseconds()
	if op == "GetMessage" {
		f.log.Infof("status=%d elapsed=%dms op=%s args=%v body=%q", status, ms, op, args, body)
		return
	}
	f.log.Infof("status=%d elapsed=%dms op=%s args=%v", status, ms, op, args)
}
