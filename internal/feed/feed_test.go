package feed

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abgdnv/catalogsync/pkg/config"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func catalogOf(n int) []RemoteProduct {
	products := make([]RemoteProduct, n)
	for i := range products {
		products[i] = RemoteProduct{
			ID:       i + 1,
			Title:    "Item " + strconv.Itoa(i+1),
			Price:    float64(i+1) + 0.5,
			Category: "misc",
			Image:    "https://remote.example/img/" + strconv.Itoa(i+1) + ".png",
		}
	}
	return products
}

// fakeListingServer serves GET /products?limit=&page= and DELETE /products/{id} over a fixed catalog.
type fakeListingServer struct {
	mu         sync.Mutex
	products   []RemoteProduct
	requests   atomic.Int32
	status     int
	deleteCode int
	gate       chan struct{}
}

func (f *fakeListingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/products":
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		f.mu.Lock()
		start := min((page-1)*limit, len(f.products))
		end := min(start+limit, len(f.products))
		out := f.products[start:end]
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/products/"):
		if f.deleteCode != 0 {
			w.WriteHeader(f.deleteCode)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "{}")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, handler http.Handler, timeout time.Duration) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewHTTPClient(config.FeedConfig{
		BaseURL:  srv.URL,
		PageSize: 10,
		Timeout:  timeout,
		CircuitBreaker: config.CircuitBreakerConfig{
			ConsecutiveFailures: 3,
			ErrorRatePercent:    100,
			OpenTimeout:         time.Minute,
		},
	}, srv.Client(), discardLogger())
	require.NoError(t, err)
	return client
}
