package media

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
)

const skipIntegrationTests = "CATALOG_SKIP_INTEGRATION_TESTS"

type MinioBlobStoreSuite struct {
	suite.Suite
	container *tcminio.MinioContainer
	client    *minio.Client
	store     *MinioBlobStore
	logger    *slog.Logger
	ctx       context.Context
}

func (s *MinioBlobStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.container, err = tcminio.Run(s.ctx, "minio/minio:RELEASE.2024-01-16T16-07-38Z")
	require.NoError(s.T(), err, "Failed to run MinIO container")

	endpoint, err := s.container.ConnectionString(s.ctx)
	require.NoError(s.T(), err)
	s.client, err = minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(s.container.Username, s.container.Password, ""),
		Secure: false,
	})
	require.NoError(s.T(), err)

	s.store, err = NewMinioBlobStore(s.client, "catalog-test", "")
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.EnsureBucket(s.ctx))
	require.NoError(s.T(), s.store.EnsureBucket(s.ctx), "EnsureBucket is idempotent")
}

func (s *MinioBlobStoreSuite) TearDownSuite() {
	if s.container != nil {
		if err := s.container.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate MinIO container", "error", err)
		}
	}
}

func (s *MinioBlobStoreSuite) TestUploadResolveDiscard() {
	t := s.T()
	u := NewUploader(s.store, "images", 30*time.Second, s.logger)
	handle := writeFile(t, "lamp.png", pngHeader)

	ref, err := u.Upload(s.ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, "images/lamp.png", ref.Key)
	assert.True(t, IsRemoteRef(ref.URL))

	obj, err := s.client.GetObject(s.ctx, "catalog-test", ref.Key, minio.GetObjectOptions{})
	require.NoError(t, err)
	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)

	require.NoError(t, u.Discard(s.ctx, ref))
	_, err = s.client.StatObject(s.ctx, "catalog-test", ref.Key, minio.StatObjectOptions{})
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, minio.ToErrorResponse(err).StatusCode)
}

func (s *MinioBlobStoreSuite) TestDownloadURLIsPublic() {
	t := s.T()
	u := NewUploader(s.store, "public", 30*time.Second, s.logger)
	ref, err := u.Upload(s.ctx, writeFile(t, "shade.png", pngHeader))
	require.NoError(t, err)
	t.Cleanup(func() { _ = u.Discard(s.ctx, ref) })

	resp, err := http.Get(ref.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}

func (s *MinioBlobStoreSuite) TestDownloadURLMissingObject() {
	_, err := s.store.DownloadURL(s.ctx, "images/missing.png")
	require.Error(s.T(), err)
}

func TestMinioBlobStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(MinioBlobStoreSuite))
}
