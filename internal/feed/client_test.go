package feed

import (
	"context"
	"net/http"
	"testing"
	"time"

	catalogerrors "github.com/abgdnv/catalogsync/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_FetchPage(t *testing.T) {
	// given
	srv := &fakeListingServer{products: catalogOf(25)}
	client := newTestClient(t, srv, time.Second)

	// when
	first, err := client.FetchPage(context.Background(), 10, 1)
	require.NoError(t, err)
	last, err := client.FetchPage(context.Background(), 10, 3)
	require.NoError(t, err)

	// then
	require.Len(t, first, 10)
	assert.Equal(t, 1, first[0].ID)
	require.Len(t, last, 5)
	assert.Equal(t, 25, last[4].ID)
}

func TestHTTPClient_Errors(t *testing.T) {
	testCases := []struct {
		name        string
		status      int
		wantStatus  int
		wantTimeout bool
	}{
		{name: "server error", status: http.StatusInternalServerError, wantStatus: http.StatusInternalServerError},
		{name: "not found", status: http.StatusNotFound, wantStatus: http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, &fakeListingServer{status: tc.status}, time.Second)

			_, err := client.FetchPage(context.Background(), 10, 1)

			require.ErrorIs(t, err, catalogerrors.ErrNetwork)
			var netErr *catalogerrors.NetworkError
			require.ErrorAs(t, err, &netErr)
			assert.Equal(t, tc.wantStatus, netErr.StatusCode)
		})
	}
}

func TestHTTPClient_Timeout(t *testing.T) {
	gate := make(chan struct{})
	client := newTestClient(t, &fakeListingServer{gate: gate}, 50*time.Millisecond)
	// runs before the server shuts down
	t.Cleanup(func() { close(gate) })

	_, err := client.FetchPage(context.Background(), 10, 1)

	require.ErrorIs(t, err, catalogerrors.ErrNetwork)
	assert.ErrorIs(t, err, catalogerrors.ErrTimeout)
}

func TestHTTPClient_MalformedBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}), time.Second)

	_, err := client.FetchPage(context.Background(), 10, 1)

	assert.ErrorIs(t, err, catalogerrors.ErrNetwork)
}

func TestHTTPClient_CircuitBreakerOpens(t *testing.T) {
	// given
	srv := &fakeListingServer{status: http.StatusBadGateway}
	client := newTestClient(t, srv, time.Second)
	for range 3 {
		_, err := client.FetchPage(context.Background(), 10, 1)
		require.Error(t, err)
	}
	require.EqualValues(t, 3, srv.requests.Load())

	// when
	_, err := client.FetchPage(context.Background(), 10, 1)

	// then
	require.ErrorIs(t, err, catalogerrors.ErrNetwork)
	assert.EqualValues(t, 3, srv.requests.Load(), "open breaker fails fast without calling the server")
}

func TestHTTPClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := &fakeListingServer{status: http.StatusNotFound}
	client := newTestClient(t, srv, time.Second)

	for range 5 {
		_, err := client.FetchPage(context.Background(), 10, 1)
		require.Error(t, err)
	}

	assert.EqualValues(t, 5, srv.requests.Load())
}

func TestHTTPClient_Delete(t *testing.T) {
	srv := &fakeListingServer{products: catalogOf(3)}
	client := newTestClient(t, srv, time.Second)

	require.NoError(t, client.Delete(context.Background(), 2))

	srv.deleteCode = http.StatusServiceUnavailable
	assert.ErrorIs(t, client.Delete(context.Background(), 2), catalogerrors.ErrNetwork)
}
