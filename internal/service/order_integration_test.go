//go:build integration

package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/flicky/go-storefront-api/internal/migrations"
	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/repository"
)

// setupPostgres returns a pool on a fresh schema, from TEST_DATABASE_URL or a
// disposable container.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		pgContainer, err := postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("storefront_test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err)
		t.Cleanup(func() {
			if err := pgContainer.Terminate(ctx); err != nil {
				t.Logf("terminate container: %v", err)
			}
		})

		dsn, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, migrations.Apply(ctx, pool))
	_, err = pool.Exec(ctx, `TRUNCATE payment, order_details, "Order", p_size, product, category, users CASCADE`)
	require.NoError(t, err)
	return pool
}

func TestOrderService_CreateOrder_ConcurrentOrdersNeverOversell_Postgres(t *testing.T) {
	store := repository.NewStore(setupPostgres(t))
	svc := newTestOrderService(store, &recordingPublisher{})
	ctx := context.Background()

	product := &model.Product{
		Name:  "Runner",
		Price: decimal.RequireFromString("20.00"),
		Sizes: []model.ProductSize{{Size: "M", Stock: 5}},
	}
	require.NoError(t, store.Products().Create(ctx, product))

	const buyers = 10
	userIDs := make([]uuid.UUID, buyers)
	for i := range userIDs {
		user := &model.User{
			FirstName: "Buyer", LastName: "Test", Email: uuid.NewString() + "@example.com", Password: "hashed",
		}
		require.NoError(t, store.Users().Create(ctx, user))
		userIDs[i] = user.ID
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
		other     []error
	)
	start := make(chan struct{})
	for _, userID := range userIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := svc.CreateOrder(ctx, userID, orderInput(product.ID, "M", 1))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrInsufficientStock):
				rejected++
			default:
				other = append(other, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, rejected)

	stored, err := store.Products().GetByID(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, stored.Sizes, 1)
	assert.Equal(t, 0, stored.Sizes[0].Stock)

	orders, err := store.Orders().List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, orders, 5)
	for _, o := range orders {
		assert.True(t, decimal.RequireFromString("20.00").Equal(o.TotalAmount))
	}
}
