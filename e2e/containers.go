// Package e2e provisions shared containers for end-to-end tests.
package e2e

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/glizzus/voice-bridge/internal/datalayer"
	"github.com/glizzus/voice-bridge/internal/repository"
)

var (
	postgresOnce      sync.Once
	postgresContainer *postgres.PostgresContainer
	postgresConnStr   string
	postgresErr       error

	redisOnce      sync.Once
	redisContainer *tcredis.RedisContainer
	redisConnStr   string
	redisErr       error

	wg sync.WaitGroup
)

// UsePostgres signals that the test is using Postgres as its journal.
// This will either provision or reuse a migrated Postgres container.
// Do not expect a clean state in the database; it is shared across tests.
func UsePostgres(t *testing.T) string {
	t.Helper()

	postgresOnce.Do(func() {
		ctx := context.Background()
		postgresContainer, postgresErr = postgres.Run(
			ctx,
			"postgres",
			postgres.WithDatabase("voice_bridge"),
			postgres.WithUsername("user"),
			postgres.WithPassword("password"),
			postgres.BasicWaitStrategies(),
		)
		if postgresErr != nil {
			return
		}
		postgresConnStr, postgresErr = postgresContainer.ConnectionString(ctx)
		if postgresErr != nil {
			return
		}

		var pool *pgxpool.Pool
		pool, postgresErr = pgxpool.New(ctx, postgresConnStr)
		if postgresErr != nil {
			return
		}
		defer pool.Close()

		postgresErr = datalayer.MigratePostgres(pool)
	})

	if postgresErr != nil {
		t.Fatalf("failed to start postgres container: %v", postgresErr)
	}
	wg.Add(1)
	t.Cleanup(wg.Done)

	return postgresConnStr
}

// GetRepository creates a journal repository for the given connection string.
// It performs no migrations.
func GetRepository(t *testing.T, connStr string) *repository.PostgresEventRepository {
	t.Helper()
	pool, err := pgxpool.New(t.Context(), connStr)
	if err != nil {
		t.Fatalf("failed to create postgres pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return repository.NewPostgresEventRepository(pool)
}

// UseRedis provisions or reuses a Redis container and returns a client
// connected to it.
func UseRedis(t *testing.T) *redis.Client {
	t.Helper()

	redisOnce.Do(func() {
		ctx := context.Background()
		redisContainer, redisErr = tcredis.Run(ctx, "redis:7")
		if redisErr != nil {
			return
		}
		redisConnStr, redisErr = redisContainer.ConnectionString(ctx)
	})

	if redisErr != nil {
		t.Fatalf("failed to start redis container: %v", redisErr)
	}

	opts, err := redis.ParseURL(redisConnStr)
	if err != nil {
		t.Fatalf("failed to parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	wg.Add(1)
	t.Cleanup(func() {
		_ = client.Close()
		wg.Done()
	})
	return client
}

func TerminatePostgresForE2E() {
	wg.Wait()
	if postgresContainer != nil {
		if err := postgresContainer.Terminate(context.Background()); err != nil {
			fmt.Printf("failed to terminate postgres container: %v", err)
		}
	}
}

func TerminateRedisForE2E() {
	wg.Wait()
	if redisContainer != nil {
		if err := redisContainer.Terminate(context.Background()); err != nil {
			fmt.Printf("failed to terminate redis container: %v", err)
		}
	}
}
