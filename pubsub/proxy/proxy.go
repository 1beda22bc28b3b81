// Package proxy forwards the backend contract over HTTP to a remote
// MemoryBackend, implementing it asynchronously: every call returns
// immediately with a Future that resolves once the outbound round trip
// completes.
package proxy

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/pubsubcluster/fanout/future"
	"github.com/pubsubcluster/fanout/log"
	"github.com/pubsubcluster/fanout/pubsub"
)

// Backend implements pubsub.Backend by relaying each call to a remote
// authority over the wire grammar in §6: raw bytes, no content negotiation,
// no retries. A transport failure (connection refused, timeout, malformed
// response) resolves the Future with an error rather than a status: it
// never reached the remote MemoryBackend at all, so there is no remote
// status to relay. A remote 500 response, by contrast, resolves normally
// with Status 500 — that is the remote's own answer, not a transport
// failure. Both end up as 500 at the next frontend, by different paths.
//
// This is httpclient.Client trimmed to exactly what the wire grammar needs:
// no JSON encoding, no retry/backoff loop, no response headers.
type Backend struct {
	baseURL    string
	httpClient *http.Client
	log        log.Logger
}

// New constructs a Backend targeting authority (e.g. "http://127.0.0.1:9001").
func New(authority string, logger log.Logger) *Backend {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Backend{
		baseURL:    authority,
		httpClient: &http.Client{},
		log:        logger.With("component", "proxy", "authority", authority),
	}
}

func (b *Backend) path(topic string, user string) string {
	if user == "" {
		return "/" + url.PathEscape(topic)
	}
	return "/" + url.PathEscape(topic) + "/" + url.PathEscape(user)
}

// do performs method/path with body, resolving into a pubsub.Result. A
// transport failure or unreadable response body resolves the Future with
// an error, per §7: a ProxyBackend failure is a future failure, which
// becomes a 500 at the next frontend up; it is never translated here.
func (b *Backend) do(ctx context.Context, method, path string, body []byte) *future.Future[pubsub.Result] {
	f := future.New[pubsub.Result]()

	go func() {
		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, reqBody)
		if err != nil {
			b.log.Errorf("cannot build request %s %s: %v", method, path, err)
			f.Resolve(pubsub.Result{}, err)
			return
		}

		resp, err := b.httpClient.Do(req)
		if err != nil {
			b.log.Errorf("transport error on %s %s: %v", method, path, err)
			f.Resolve(pubsub.Result{}, err)
			return
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			b.log.Errorf("cannot read response body from %s %s: %v", method, path, err)
			f.Resolve(pubsub.Result{}, err)
			return
		}

		f.Resolve(pubsub.Result{Status: resp.StatusCode, Body: respBody}, nil)
	}()

	return f
}

func (b *Backend) Subscribe(ctx context.Context, topic, user string) *future.Future[pubsub.Result] {
	return b.do(ctx, http.MethodPost, b.path(topic, user), nil)
}

func (b *Backend) Unsubscribe(ctx context.Context, topic, user string) *future.Future[pubsub.Result] {
	return b.do(ctx, http.MethodDelete, b.path(topic, user), nil)
}

func (b *Backend) GetMessage(ctx context.Context, topic, user string) *future.Future[pubsub.Result] {
	return b.do(ctx, http.MethodGet, b.path(topic, user), nil)
}

func (b *Backend) PostMessage(ctx context.Context, topic string, body []byte) *future.Future[pubsub.Result] {
	return b.do(ctx, http.MethodPost, b.path(topic, ""), body)
}
