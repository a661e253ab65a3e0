package target

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	perr "cyberchecker/internal/platform/errors"
)

func TestDoFormPost(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("content type = %s", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Error(err)
		}
		if r.PostForm.Get("user") != "alice" {
			t.Errorf("user = %s", r.PostForm.Get("user"))
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("welcome alice"))
	}))
	defer srv.Close()

	c := New(srv.Client())
	ex, err := c.Do(context.Background(), Request{
		Method: "POST",
		URL:    srv.URL,
		Form:   map[string]string{"user": "alice", "pass": "pw"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ex.Status != http.StatusOK || ex.Body != "welcome alice" {
		t.Fatalf("exchange = %+v", ex)
	}
}

func TestDoJSONBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		var in map[string]any
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Error(err)
		}
		if in["email"] != "a@b.c" {
			t.Errorf("email = %v", in["email"])
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := New(srv.Client())
	ex, err := c.Do(context.Background(), Request{
		Method: "POST",
		URL:    srv.URL,
		JSON:   map[string]any{"email": "a@b.c"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if ex.Status != http.StatusCreated {
		t.Fatalf("status = %d", ex.Status)
	}
}

func TestDoDefaultsToGET(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		if ua := r.Header.Get("User-Agent"); ua != defaultUserAgent {
			t.Errorf("user agent = %s", ua)
		}
	}))
	defer srv.Close()

	c := New(srv.Client())
	if _, err := c.Do(context.Background(), Request{URL: srv.URL}); err != nil {
		t.Fatal(err)
	}
}

func TestDoGETIgnoresFormData(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "" {
			t.Errorf("content type = %s, want none", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if len(body) != 0 {
			t.Errorf("body = %q, want empty", body)
		}
	}))
	defer srv.Close()

	c := New(srv.Client())
	_, err := c.Do(context.Background(), Request{
		Method: "GET",
		URL:    srv.URL,
		Form:   map[string]string{"u": "alice", "p": "pw"},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestDoRetryAfterSeconds(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.Client())
	ex, err := c.Do(context.Background(), Request{URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if ex.Status != http.StatusTooManyRequests {
		t.Fatalf("status = %d", ex.Status)
	}
	if ex.RetryAfter != 7*time.Second {
		t.Fatalf("retry after = %v", ex.RetryAfter)
	}
}

func TestDoTransportErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	c := New(&http.Client{Timeout: time.Second})
	_, err := c.Do(context.Background(), Request{URL: srv.URL})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}
}

func TestDoBadURL(t *testing.T) {
	t.Parallel()

	c := New(http.DefaultClient)
	_, err := c.Do(context.Background(), Request{URL: "http://[::1]:namedport", Method: "GET"})
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
}
