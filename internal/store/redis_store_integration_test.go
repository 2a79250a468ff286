package store

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "CATALOG_SKIP_INTEGRATION_TESTS"

type RedisStoreSuite struct {
	suite.Suite
	container *tcredis.RedisContainer
	client    *redis.Client
	logger    *slog.Logger
	ctx       context.Context
}

func (s *RedisStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var err error
	s.container, err = tcredis.Run(s.ctx,
		"redis:7.4-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to run Redis container")

	connStr, err := s.container.ConnectionString(s.ctx)
	require.NoError(s.T(), err, "Failed to get connection string from container")
	opts, err := redis.ParseURL(connStr)
	require.NoError(s.T(), err)
	s.client = redis.NewClient(opts)
	require.NoError(s.T(), s.client.Ping(s.ctx).Err(), "Failed to ping Redis")
	s.logger.Info("Initialization complete for RedisStoreSuite")
}

func (s *RedisStoreSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.container != nil {
		if err := s.container.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate Redis container", "error", err)
		}
	}
}

func (s *RedisStoreSuite) TestContract() {
	runCatalogContract(s.T(), func(t *testing.T) (CatalogStore, rawWriter) {
		require.NoError(t, s.client.FlushDB(s.ctx).Err())
		raw := func(key string, data []byte) error {
			return s.client.Set(s.ctx, key, data, 0).Err()
		}
		return NewRedisStore(s.client), raw
	})
}

func TestRedisStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(RedisStoreSuite))
}
