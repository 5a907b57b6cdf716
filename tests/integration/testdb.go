// Package integration runs the sync engine against real PostgreSQL and Redis
// containers started with testcontainers.
package integration

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/migration"
	"github.com/alexthecreator0001/woowms-sub001/internal/infrastructure/persistence"
	"github.com/alexthecreator0001/woowms-sub001/migrations"
)

const containerStartup = time.Minute

// lazyContainer starts a container once per package run and keeps the
// address it is reachable on. Containers are reaped by testcontainers.
type lazyContainer struct {
	once sync.Once
	addr string
	err  error
}

func (l *lazyContainer) get(t *testing.T, start func(context.Context) (string, error)) string {
	t.Helper()
	if testing.Short() {
		t.Skip("container test skipped in short mode")
	}
	l.once.Do(func() { l.addr, l.err = start(context.Background()) })
	require.NoError(t, l.err)
	return l.addr
}

var postgresContainer, redisContainer lazyContainer

// startPostgres boots PostgreSQL and applies the embedded migrations, then
// returns the DSN.
func startPostgres(ctx context.Context) (string, error) {
	c, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("woowms_test"),
		tcpostgres.WithUsername("woowms"),
		tcpostgres.WithPassword("woowms"),
		testcontainers.WithWaitStrategy(wait.ForAll(
			// postgres restarts once after running init scripts
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithDeadline(containerStartup)),
	)
	if err != nil {
		return "", fmt.Errorf("start postgres: %w", err)
	}
	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", err
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		return "", err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return "", err
	}
	m, err := migration.New(sqlDB, migrations.FS, zap.NewNop())
	if err != nil {
		_ = sqlDB.Close()
		return "", err
	}
	defer m.Close()
	return dsn, m.Up()
}

func startRedis(ctx context.Context) (string, error) {
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(containerStartup),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("start redis: %w", err)
	}
	return c.Endpoint(ctx, "")
}

// TestDB is a migrated database with tenant isolation installed
type TestDB struct {
	DB *gorm.DB
	t  *testing.T
}

// NewSharedTestDB connects to the package's PostgreSQL container. Tests
// sharing it call CleanTables or use tenants of their own.
func NewSharedTestDB(t *testing.T) *TestDB {
	t.Helper()
	dsn := postgresContainer.get(t, startPostgres)

	gormDB, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	database, err := persistence.WrapDatabase(gormDB)
	require.NoError(t, err, "install tenant isolation")

	sqlDB, err := database.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return &TestDB{DB: database.DB, t: t}
}

// CleanTables empties every table but the migration bookkeeping
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	require.NoError(tdb.t, tdb.DB.Raw(
		`SELECT tablename FROM pg_tables WHERE schemaname = 'public' AND tablename <> 'schema_migrations'`,
	).Scan(&tables).Error)
	for _, table := range tables {
		require.NoError(tdb.t, tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %q CASCADE", table)).Error)
	}
}

// NewSharedRedis returns a client of the package's Redis container with the
// database flushed.
func NewSharedRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := redisContainer.get(t, startRedis)

	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}
