package xero

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetcher_Fetch(t *testing.T) {
	var (
		calls   int32
		mu      sync.Mutex
		queries []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/Reports/ProfitAndLoss" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("xero-tenant-id"); got != "tenant-1" {
			t.Errorf("xero-tenant-id = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		mu.Lock()
		queries = append(queries, r.URL.RawQuery)
		mu.Unlock()
		w.Write([]byte(`{"Reports":[{"Rows":[]}],"q":"` + r.URL.Query().Get("fromDate") + `"}`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, time.Second, WithCallsPerMinute(0))
	docs, err := f.Fetch(context.Background(), "tok", "tenant-1", 2024)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("calls = %d, want 2", n)
	}

	mu.Lock()
	defer mu.Unlock()

	wantQueries := []string{
		"fromDate=2024-01-01&periods=11&timeframe=MONTH",
		"fromDate=2024-12-01&timeframe=MONTH&toDate=2024-12-31",
	}
	for i, want := range wantQueries {
		if queries[i] != want {
			t.Errorf("query %d = %q, want %q", i, queries[i], want)
		}
	}
	if string(docs.JanNov) != `{"Reports":[{"Rows":[]}],"q":"2024-01-01"}` {
		t.Errorf("JanNov = %s", docs.JanNov)
	}
	if string(docs.December) != `{"Reports":[{"Rows":[]}],"q":"2024-12-01"}` {
		t.Errorf("December = %s", docs.December)
	}
}

func TestFetcher_ShortCircuitsOnFirstFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"Title":"Forbidden","Detail":"AuthenticationUnsuccessful"}`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, time.Second, WithCallsPerMinute(0))
	_, err := f.Fetch(context.Background(), "tok", "tenant-1", 2025)

	var uerr *UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("Fetch() error = %v, want *UpstreamError", err)
	}
	if uerr.Stage != StageJanNov || uerr.StatusCode != http.StatusForbidden {
		t.Errorf("UpstreamError = %+v", uerr)
	}
	if want := `Xero API error (Jan-Nov): {"Title":"Forbidden","Detail":"AuthenticationUnsuccessful"}`; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls = %d, want 1 (December must not be requested)", n)
	}
}

func TestFetcher_DecemberFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 2 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"Reports":[{"Rows":[]}]}`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, time.Second, WithCallsPerMinute(0))
	_, err := f.Fetch(context.Background(), "tok", "tenant-1", 2025)

	var uerr *UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("Fetch() error = %v, want *UpstreamError", err)
	}
	if uerr.Stage != StageDecember || uerr.StatusCode != http.StatusTooManyRequests || uerr.Body != "rate limited" {
		t.Errorf("UpstreamError = %+v", uerr)
	}
}

func TestFetcher_TimeoutIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 50*time.Millisecond, WithCallsPerMinute(0))
	_, err := f.Fetch(context.Background(), "tok", "tenant-1", 2025)

	var uerr *UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("Fetch() error = %v, want *UpstreamError", err)
	}
	if uerr.StatusCode != 0 || uerr.Stage != StageJanNov {
		t.Errorf("UpstreamError = %+v", uerr)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Fetch() error = %v, want deadline exceeded", err)
	}
}
