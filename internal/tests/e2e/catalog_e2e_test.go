// Package e2e runs the catalog API end to end.
// A MinIO container backs the blob store, the local catalog is a bolt file in a temp dir, and the
// remote listing and identity APIs are served by httptest servers. The application is wired through
// app.SetupDependencies exactly as the serve command does it.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abgdnv/catalogsync/internal/app"
	"github.com/abgdnv/catalogsync/internal/config"
	"github.com/abgdnv/catalogsync/internal/feed"
	"github.com/abgdnv/catalogsync/internal/service"
	pkgconfig "github.com/abgdnv/catalogsync/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
)

// skipE2ETests is the environment variable that can be set to skip E2E tests.
const skipE2ETests = "CATALOG_SKIP_INTEGRATION_TESTS"

const (
	productsURL = "/api/v1/products"
	browseURL   = "/api/v1/browse"
	sessionURL  = "/api/v1/session"
)

var pngHeader = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 0x49, 0x48, 0x44, 0x52}

type CatalogE2ESuite struct {
	suite.Suite
	minio      *tcminio.MinioContainer
	remote     *remoteCatalog
	feedSrv    *httptest.Server
	identity   *httptest.Server
	deps       *app.Dependencies
	server     *httptest.Server
	httpClient *http.Client
	logger     *slog.Logger
	ctx        context.Context
}

// remoteCatalog serves the paged listing and accepts deletes.
type remoteCatalog struct {
	mu    sync.Mutex
	items []feed.RemoteProduct
}

func newRemoteCatalog(n int) *remoteCatalog {
	items := make([]feed.RemoteProduct, n)
	for i := range items {
		items[i] = feed.RemoteProduct{ID: i + 1, Title: fmt.Sprintf("Remote %d", i+1), Price: 9.5, Category: "misc"}
	}
	return &remoteCatalog{items: items}
}

func (c *remoteCatalog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/products":
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		start := min((page-1)*limit, len(c.items))
		end := min(start+limit, len(c.items))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(c.items[start:end])
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/products/"):
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func identityHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	w.Header().Set("Content-Type", "application/json")
	if body.Password != "secret1" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"INVALID_PASSWORD"}}`)
		return
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("e2e"))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"idToken":      token,
		"email":        body.Email,
		"refreshToken": "refresh",
		"expiresIn":    "3600",
		"localId":      "user-1",
	})
}

func (s *CatalogE2ESuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.minio, err = tcminio.Run(s.ctx, "minio/minio:RELEASE.2024-01-16T16-07-38Z")
	require.NoError(s.T(), err, "Failed to run MinIO container")
	endpoint, err := s.minio.ConnectionString(s.ctx)
	require.NoError(s.T(), err)

	s.remote = newRemoteCatalog(25)
	s.feedSrv = httptest.NewServer(s.remote)
	s.identity = httptest.NewServer(http.HandlerFunc(identityHandler))

	cfg := &config.Config{
		Store: pkgconfig.StoreConfig{
			Driver:  pkgconfig.StoreDriverBolt,
			Path:    filepath.Join(s.T().TempDir(), "data", "catalog.db"),
			Timeout: 5 * time.Second,
		},
		Blob: pkgconfig.BlobConfig{
			Endpoint:  endpoint,
			AccessKey: s.minio.Username,
			SecretKey: s.minio.Password,
			Bucket:    "catalog-e2e",
			Prefix:    "images",
			Timeout:   30 * time.Second,
		},
		Feed: pkgconfig.FeedConfig{
			BaseURL:  s.feedSrv.URL,
			PageSize: 10,
			Timeout:  5 * time.Second,
			CircuitBreaker: pkgconfig.CircuitBreakerConfig{
				ConsecutiveFailures: 5,
				ErrorRatePercent:    60,
				OpenTimeout:         time.Second,
			},
		},
		Auth: pkgconfig.AuthConfig{BaseURL: s.identity.URL + "/v1", APIKey: "e2e-key", Timeout: 5 * time.Second},
	}

	s.deps, err = app.SetupDependencies(s.ctx, cfg, s.logger)
	require.NoError(s.T(), err, "Failed to set up dependencies")

	s.server = httptest.NewServer(app.SetupHttpHandler(s.deps))
	s.httpClient = s.server.Client()
}

func (s *CatalogE2ESuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.deps != nil {
		_ = s.deps.Close()
	}
	if s.feedSrv != nil {
		s.feedSrv.Close()
	}
	if s.identity != nil {
		s.identity.Close()
	}
	if s.minio != nil {
		if err := s.minio.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate MinIO container", "error", err)
		}
	}
}

func (s *CatalogE2ESuite) SetupTest() {
	_, _ = s.do(http.MethodPost, sessionURL+"/signout", nil)
}

func (s *CatalogE2ESuite) do(method, path string, body any) (*http.Response, []byte) {
	t := s.T()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(s.ctx, method, s.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (s *CatalogE2ESuite) signIn() {
	resp, _ := s.do(http.MethodPost, sessionURL+"/signin", map[string]string{"email": "a@b.co", "password": "secret1"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
}

func (s *CatalogE2ESuite) TestSessionGating() {
	resp, _ := s.do(http.MethodGet, productsURL, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)

	resp, raw := s.do(http.MethodPost, sessionURL+"/signin", map[string]string{"email": "a@b.co", "password": "wrong"})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	s.Contains(string(raw), "wrong_password")

	s.signIn()
	resp, _ = s.do(http.MethodGet, productsURL, nil)
	s.Equal(http.StatusOK, resp.StatusCode)

	resp, _ = s.do(http.MethodPost, sessionURL+"/signout", nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)
	resp, _ = s.do(http.MethodGet, productsURL, nil)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *CatalogE2ESuite) TestCatalogLifecycle() {
	s.signIn()
	handle := filepath.Join(s.T().TempDir(), "lamp.png")
	s.Require().NoError(os.WriteFile(handle, pngHeader, 0o600))

	// create uploads the image and stores the remote reference
	resp, raw := s.do(http.MethodPost, productsURL, service.DraftDto{
		Title: "Lamp", Price: "19.99", Description: "Desk lamp", Category: "home", Image: handle,
	})
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(raw))
	var created service.ProductDto
	s.Require().NoError(json.Unmarshal(raw, &created))
	s.NotEmpty(created.ID)
	s.Equal(19.99, created.Price)
	s.True(strings.HasPrefix(created.Image, "http"), created.Image)
	s.Contains(created.Image, "/catalog-e2e/images/lamp.png")

	imgResp, err := s.httpClient.Get(created.Image)
	s.Require().NoError(err)
	_ = imgResp.Body.Close()
	s.Equal(http.StatusOK, imgResp.StatusCode)

	// invalid drafts are rejected before any I/O
	resp, raw = s.do(http.MethodPost, productsURL, service.DraftDto{
		Title: "Lamp", Price: "0", Category: "home", Image: handle,
	})
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Contains(string(raw), "price")

	// update keeps the id and the already uploaded image
	resp, raw = s.do(http.MethodPut, productsURL+"/"+created.ID, service.DraftDto{
		Title: "Lamp XL", Price: "24.50", Category: "home", Image: created.Image,
	})
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(raw))
	var updated service.ProductDto
	s.Require().NoError(json.Unmarshal(raw, &updated))
	s.Equal(created.ID, updated.ID)
	s.Equal(created.Image, updated.Image)

	resp, raw = s.do(http.MethodGet, productsURL, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var list []service.ProductDto
	s.Require().NoError(json.Unmarshal(raw, &list))
	s.Require().Len(list, 1)
	s.Equal("Lamp XL", list[0].Title)

	resp, _ = s.do(http.MethodPut, productsURL+"/missing", service.DraftDto{
		Title: "Ghost", Price: "1", Category: "home", Image: created.Image,
	})
	s.Equal(http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(http.MethodDelete, productsURL+"/"+created.ID, nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)
	resp, raw = s.do(http.MethodGet, productsURL, nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.JSONEq(`[]`, string(raw))
}

func (s *CatalogE2ESuite) TestBrowseRemote() {
	s.signIn()
	snapshot := func(raw []byte) feed.Snapshot {
		var snap feed.Snapshot
		s.Require().NoError(json.Unmarshal(raw, &snap))
		return snap
	}

	resp, raw := s.do(http.MethodPost, browseURL+"/first", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(raw))
	s.Len(snapshot(raw).Items, 10)

	_, raw = s.do(http.MethodPost, browseURL+"/more", nil)
	s.Len(snapshot(raw).Items, 20)

	_, raw = s.do(http.MethodPost, browseURL+"/more", nil)
	snap := snapshot(raw)
	s.Len(snap.Items, 25)
	s.True(snap.Exhausted)

	resp, _ = s.do(http.MethodDelete, browseURL+"/3", nil)
	s.Equal(http.StatusNoContent, resp.StatusCode)
	_, raw = s.do(http.MethodGet, browseURL, nil)
	snap = snapshot(raw)
	s.Len(snap.Items, 24)
	for _, item := range snap.Items {
		s.NotEqual(3, item.ID)
	}
}

func TestCatalogE2ESuite(t *testing.T) {
	if os.Getenv(skipE2ETests) == "1" {
		t.Skip("Skipping E2E tests")
	}
	suite.Run(t, new(CatalogE2ESuite))
}
