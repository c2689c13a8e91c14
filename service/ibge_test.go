package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(server *httptest.Server, attempts int) *Client {
	return NewClient(server.Client(),
		WithBaseURL(server.URL),
		WithMaxAttempts(attempts),
		WithRetryBackoff(time.Millisecond, 2*time.Millisecond),
	)
}

func TestGetJSON_Non2xxReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	client := newTestClient(server, 1)

	var out map[string]any
	err := client.getJSON(context.Background(), server.URL+"/fail", &out)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetJSON_RetriesTransientServerErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt32(&attempts, 1)
		if current < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("retry later"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":35,"sigla":"SP","nome":"São Paulo"}]`))
	}))
	defer server.Close()

	client := newTestClient(server, 3)

	ufs, err := client.GetUFs(context.Background())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if len(ufs) != 1 || ufs[0].Sigla != "SP" {
		t.Fatalf("unexpected payload: %+v", ufs)
	}
}

func TestGetJSON_DoesNotRetryOnClientErrors(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("not found"))
	}))
	defer server.Close()

	client := newTestClient(server, 3)

	_, err := client.GetCities(context.Background(), "XX")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestGetUFs_OK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/estados" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("unexpected accept header: %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
  {"id": 11, "sigla": "RO", "nome": "Rondônia", "regiao": {"id": 1, "sigla": "N", "nome": "Norte"}},
  {"id": 35, "sigla": "SP", "nome": "São Paulo", "regiao": {"id": 3, "sigla": "SE", "nome": "Sudeste"}}
]`))
	}))
	defer server.Close()

	client := newTestClient(server, 1)

	ufs, err := client.GetUFs(context.Background())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(ufs) != 2 {
		t.Fatalf("expected 2 ufs, got %d", len(ufs))
	}
	if ufs[1].Id != 35 || ufs[1].Sigla != "SP" || ufs[1].Nome != "São Paulo" {
		t.Fatalf("unexpected uf: %+v", ufs[1])
	}
}

func TestGetCities_OK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/estados/SP/municipios" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id": 3509502, "nome": "Campinas"}, {"id": 3550308, "nome": "São Paulo"}]`))
	}))
	defer server.Close()

	client := newTestClient(server, 1)

	cities, err := client.GetCities(context.Background(), " SP ")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(cities) != 2 || cities[1].Nome != "São Paulo" || cities[1].Id != 3550308 {
		t.Fatalf("unexpected cities: %+v", cities)
	}
}

func TestGetCities_RequiresUF(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
	}))
	defer server.Close()

	client := newTestClient(server, 1)

	if _, err := client.GetCities(context.Background(), ""); !errors.Is(err, ErrUFRequired) {
		t.Fatalf("expected ErrUFRequired, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 0 {
		t.Fatalf("expected no request, got %d", attempts)
	}
}

func TestGetJSON_CanceledContextIsNotRetried(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.GetUFs(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if atomic.LoadInt32(&attempts) != 0 {
		t.Fatalf("expected no attempts, got %d", attempts)
	}
}

func TestRetryDelay_IsCapped(t *testing.T) {
	client := NewClient(nil, WithRetryBackoff(100*time.Millisecond, 300*time.Millisecond))
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, expected := range want {
		if got := client.retryDelay(i + 1); got != expected {
			t.Fatalf("attempt %d: expected %s, got %s", i+1, expected, got)
		}
	}
}

func TestWithBaseURL_TrimsTrailingSlash(t *testing.T) {
	client := NewClient(nil, WithBaseURL("http://example.test/api/"))
	if client.baseURL != "http://example.test/api" {
		t.Fatalf("unexpected base url: %s", client.baseURL)
	}
	client = NewClient(nil, WithBaseURL("  "))
	if client.baseURL != DefaultBaseURL {
		t.Fatalf("expected default base url, got %s", client.baseURL)
	}
}
