package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pubsubcluster/fanout/log"
	"github.com/pubsubcluster/fanout/pubsub"
)

func TestSubscribeWireMapping(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := New(srv.URL, log.NewNoopLogger())
	res, err := b.Subscribe(context.Background(), "t", "u").Get(context.Background())
	if err != nil {
		t.Fatalf("future error: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotPath != "/t/u" {
		t.Errorf("path = %s, want /t/u", gotPath)
	}
	if len(gotBody) != 0 {
		t.Errorf("expected empty body, got %q", gotBody)
	}
	if res.Status != http.StatusOK {
		t.Errorf("status = %d, want 200", res.Status)
	}
}

func TestUnsubscribeWireMapping(t *testing.T) {
	var gotMethod, gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	b := New(srv.URL, log.NewNoopLogger())
	res, err := b.Unsubscribe(context.Background(), "t", "u").Get(context.Background())
	if err != nil {
		t.Fatalf("future error: %v", err)
	}

	if gotMethod != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", gotMethod)
	}
	if gotPath != "/t/u" {
		t.Errorf("path = %s, want /t/u", gotPath)
	}
	if res.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", res.Status)
	}
}

func TestGetMessageWireMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.URL.Path != "/t/u" {
			t.Errorf("path = %s, want /t/u", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	b := New(srv.URL, log.NewNoopLogger())
	res, err := b.GetMessage(context.Background(), "t", "u").Get(context.Background())
	if err != nil {
		t.Fatalf("future error: %v", err)
	}

	if res.Status != http.StatusOK || string(res.Body) != "payload" {
		t.Errorf("got %+v, want (200, payload)", res)
	}
}

func TestPostMessageWireMapping(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := New(srv.URL, log.NewNoopLogger())
	res, err := b.PostMessage(context.Background(), "t", []byte("hello")).Get(context.Background())
	if err != nil {
		t.Fatalf("future error: %v", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %s, want POST", gotMethod)
	}
	if gotPath != "/t" {
		t.Errorf("path = %s, want /t", gotPath)
	}
	if string(gotBody) != "hello" {
		t.Errorf("body = %q, want hello", gotBody)
	}
	if res.Status != http.StatusOK {
		t.Errorf("status = %d, want 200", res.Status)
	}
}

// TestTransportFailureIsFutureFailure exercises that a failure to even
// reach the remote node resolves the Future with an error, distinct from a
// remote-returned 500. The frontend is responsible for turning that error
// into a 500 response.
func TestTransportFailureIsFutureFailure(t *testing.T) {
	b := New("http://127.0.0.1:1", log.NewNoopLogger())
	_, err := b.Subscribe(context.Background(), "t", "u").Get(context.Background())
	if err == nil {
		t.Fatal("expected a future failure for an unreachable authority")
	}
}

func TestRemote500IsNotAFutureFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := New(srv.URL, log.NewNoopLogger())
	res, err := b.Subscribe(context.Background(), "t", "u").Get(context.Background())
	if err != nil {
		t.Fatalf("a remote 500 is a normal result, not a future failure: %v", err)
	}
	if res.Status != pubsub.StatusError {
		t.Errorf("status = %d, want 500", res.Status)
	}
}
