package openrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestPingListsModels(t *testing.T) {
	t.Parallel()

	var (
		mu                sync.Mutex
		gotAuth, gotTitle string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		mu.Lock()
		gotAuth = r.Header.Get("Authorization")
		gotTitle = r.Header.Get("X-Title")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"openai/gpt-4o-mini","object":"model","created":0,"owned_by":"openai"}]}`))
	}))
	defer srv.Close()

	cfg := Config{BaseURL: srv.URL + "/", APIKey: " sk-test ", SiteName: "crm-assistant"}
	if err := Ping(context.Background(), cfg); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotTitle != "crm-assistant" {
		t.Fatalf("unexpected title header: %q", gotTitle)
	}
}

func TestPingRejectedKey(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	defer srv.Close()

	if err := Ping(context.Background(), Config{BaseURL: srv.URL, APIKey: "bad"}); err == nil {
		t.Fatal("expected error for rejected key")
	}
}

func TestPingWithoutKey(t *testing.T) {
	t.Parallel()

	if err := Ping(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without api key")
	}
}
