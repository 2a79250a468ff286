// Package feed mirrors a remote paginated product listing into an in-memory browsing list.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	catalogerrors "github.com/abgdnv/catalogsync/internal/errors"
	"github.com/abgdnv/catalogsync/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// maxBodyBytes caps a single listing response.
const maxBodyBytes = 8 << 20

// RemoteProduct is a server-shaped listing entry. Its schema is owned by the remote API.
type RemoteProduct struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Image       string  `json:"image"`
	Rating      *Rating `json:"rating,omitempty"`
}

type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Client is the remote listing API.
type Client interface {
	// FetchPage returns up to limit products of the given 1-based page.
	FetchPage(ctx context.Context, limit, page int) ([]RemoteProduct, error)
	// Delete removes a product on the remote side.
	Delete(ctx context.Context, id int) error
}

// HTTPClient calls the listing API over HTTP. Calls fail fast while the breaker is open; nothing is retried.
type HTTPClient struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger
}

func NewHTTPClient(cfg config.FeedConfig, httpClient *http.Client, logger *slog.Logger) (*HTTPClient, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed base url %q: %w", cfg.BaseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger = logger.With("component", "feed-client")
	return &HTTPClient{
		base:    base,
		http:    httpClient,
		timeout: cfg.Timeout,
		breaker: newBreaker(cfg.CircuitBreaker, logger),
		logger:  logger,
	}, nil
}

func newBreaker(cfg config.CircuitBreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[[]byte] {
	st := gobreaker.Settings{
		Name:        "feed-cb",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			total := counts.TotalSuccesses + counts.TotalFailures
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures ||
				(total > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			var netErr *catalogerrors.NetworkError
			if errors.As(err, &netErr) && netErr.StatusCode >= 400 && netErr.StatusCode < 500 &&
				netErr.StatusCode != http.StatusTooManyRequests {
				// the remote answered; the request itself was wrong
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return gobreaker.NewCircuitBreaker[[]byte](st)
}

func (c *HTTPClient) FetchPage(ctx context.Context, limit, page int) ([]RemoteProduct, error) {
	const op = "fetch page"
	u := c.base.JoinPath("products")
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	body, err := c.do(ctx, op, http.MethodGet, u)
	if err != nil {
		return nil, err
	}
	var products []RemoteProduct
	if err := json.Unmarshal(body, &products); err != nil {
		return nil, &catalogerrors.NetworkError{Op: op, Err: fmt.Errorf("decode listing: %w", err)}
	}
	c.logger.DebugContext(ctx, "page fetched", "page", page, "limit", limit, "count", len(products))
	return products, nil
}

func (c *HTTPClient) Delete(ctx context.Context, id int) error {
	_, err := c.do(ctx, "delete product", http.MethodDelete, c.base.JoinPath("products", strconv.Itoa(id)))
	return err
}

func (c *HTTPClient) do(ctx context.Context, op, method string, u *url.URL) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
		if err != nil {
			return nil, &catalogerrors.NetworkError{Op: op, Err: err}
		}
		req.Header.Set("Accept", "application/json")
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, &catalogerrors.NetworkError{Op: op, Err: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
			return nil, &catalogerrors.NetworkError{Op: op, StatusCode: resp.StatusCode}
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return nil, &catalogerrors.NetworkError{Op: op, Err: err}
		}
		return data, nil
	})
	if err != nil {
		var netErr *catalogerrors.NetworkError
		if !errors.As(err, &netErr) {
			// open breaker or too many half-open probes
			err = &catalogerrors.NetworkError{Op: op, Err: err}
		}
		c.logger.ErrorContext(ctx, "remote listing call failed", "op", op, "url", u.String(), "error", err)
		return nil, err
	}
	return body, nil
}
