package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fieldsync/agent/internal/core/domain"
)

func testOperation(url string) domain.Operation {
	return domain.Operation{
		ID:       "op-1",
		Kind:     domain.KindAttendanceSync,
		Endpoint: url,
		Method:   http.MethodPost,
		Payload:  json.RawMessage(`{"candidate_id":"c1"}`),
	}
}

func TestReplay_Success(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{Token: "tok-1"})
	if err := c.Replay(context.Background(), testOperation(srv.URL)); err != nil {
		t.Fatalf("Replay failed: %v", err)
	}

	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if string(gotBody) != `{"candidate_id":"c1"}` {
		t.Errorf("body = %s", gotBody)
	}
}

func TestReplay_AcceptsAny2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(Config{})
	if err := c.Replay(context.Background(), testOperation(srv.URL)); err != nil {
		t.Errorf("202 should be success, got %v", err)
	}
}

func TestReplay_HTTPErrorCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"unknown candidate"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{})
	err := c.Replay(context.Background(), testOperation(srv.URL))
	if err == nil {
		t.Fatal("expected an error for a 404")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %T", err)
	}
	if httpErr.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", httpErr.Status)
	}
	if httpErr.Body != `{"error":"unknown candidate"}` {
		t.Errorf("body = %q", httpErr.Body)
	}
}

func TestReplay_TransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := NewClient(Config{})
	err := c.Replay(context.Background(), testOperation(srv.URL))
	if err == nil {
		t.Fatal("expected an error for a refused connection")
	}

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Errorf("expected *NetworkError, got %T: %v", err, err)
	}
}

func TestReplay_CanceledContextIsNotNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	c := NewClient(Config{})
	go func() {
		done <- c.Replay(ctx, testOperation(srv.URL))
	}()
	cancel()

	err := <-done
	if err == nil {
		t.Fatal("expected an error after cancellation")
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		t.Errorf("cancellation must not look like a network failure: %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
