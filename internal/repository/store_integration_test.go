//go:build integration

package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/go-storefront-api/internal/model"
)

func seedUser(t *testing.T, store Store) *model.User {
	t.Helper()
	user := &model.User{
		FirstName: "Jane", LastName: "Doe", Email: uuid.NewString() + "@example.com",
		Password: "hashed", PhoneNumber: "5550100",
	}
	require.NoError(t, store.Users().Create(context.Background(), user))
	return user
}

func seedProduct(t *testing.T, store Store, price string, stock map[string]int) *model.Product {
	t.Helper()
	product := &model.Product{Name: "Tee", Brand: "Acme", Price: decimal.RequireFromString(price)}
	for size, n := range stock {
		product.Sizes = append(product.Sizes, model.ProductSize{Size: size, Stock: n})
	}
	require.NoError(t, store.Products().Create(context.Background(), product))
	return product
}

func seedOrder(t *testing.T, store Store, userID uuid.UUID) *model.Order {
	t.Helper()
	order := &model.Order{
		UserID:       userID,
		OrderDate:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		PromisedDate: time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC),
		Address:      "123 Main St",
	}
	require.NoError(t, store.Orders().Create(context.Background(), order))
	return order
}

func stockOf(t *testing.T, store Store, productID uuid.UUID, size string) int {
	t.Helper()
	p, err := store.Products().GetByID(context.Background(), productID)
	require.NoError(t, err)
	for _, s := range p.Sizes {
		if s.Size == size {
			return s.Stock
		}
	}
	t.Fatalf("size %s not found", size)
	return 0
}

func TestUserRepo_CreateAndGetByEmail(t *testing.T) {
	cleanupTables(t)
	store := NewStore(testPool)
	ctx := context.Background()

	user := seedUser(t, store)
	assert.NotEqual(t, uuid.Nil, user.ID)

	found, err := store.Users().GetByEmail(ctx, user.Email)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)
	assert.False(t, found.IsAdmin)

	missing, err := store.Users().GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProductRepo_CRUD(t *testing.T) {
	cleanupTables(t)
	store := NewStore(testPool)
	repo := store.Products()
	ctx := context.Background()

	category := &model.Category{Name: "Shirts"}
	require.NoError(t, repo.CreateCategory(ctx, category))

	product := seedProduct(t, store, "29.99", map[string]int{"M": 10, "L": 4})
	product.CategoryID = &category.ID
	product.Name = "Updated"
	require.NoError(t, repo.Update(ctx, product))

	found, err := repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Updated", found.Name)
	assert.True(t, decimal.RequireFromString("29.99").Equal(found.Price))
	require.NotNil(t, found.CategoryID)
	assert.Equal(t, category.ID, *found.CategoryID)
	require.Len(t, found.Sizes, 2)
	assert.Equal(t, "L", found.Sizes[0].Size)

	require.NoError(t, repo.UpsertSize(ctx, model.ProductSize{ProductID: product.ID, Size: "M", Stock: 7}))
	assert.Equal(t, 7, stockOf(t, store, product.ID, "M"))

	products, total, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, products, 1)

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Category{*category}, categories)

	require.NoError(t, repo.Delete(ctx, product.ID))
	found, err = repo.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.ErrorIs(t, repo.Delete(ctx, product.ID), pgx.ErrNoRows)
}

func TestProductRepo_DecrementStock(t *testing.T) {
	cleanupTables(t)
	store := NewStore(testPool)
	ctx := context.Background()
	product := seedProduct(t, store, "10.00", map[string]int{"M": 3})

	require.NoError(t, store.Products().DecrementStock(ctx, product.ID, "M", 2))
	assert.Equal(t, 1, stockOf(t, store, product.ID, "M"))

	err := store.Products().DecrementStock(ctx, product.ID, "M", 2)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 1, stockOf(t, store, product.ID, "M"))

	missing, err := store.Products().LockSize(ctx, product.ID, "XL")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestOrderRepo_DetailsAndTotal(t *testing.T) {
	cleanupTables(t)
	store := NewStore(testPool)
	repo := store.Orders()
	ctx := context.Background()

	user := seedUser(t, store)
	product := seedProduct(t, store, "100.00", map[string]int{"M": 10})
	order := seedOrder(t, store, user.ID)
	assert.True(t, order.TotalAmount.IsZero())

	for _, qty := range []int{2, 1} {
		require.NoError(t, repo.CreateDetail(ctx, &model.OrderDetail{
			OrderID: order.ID, ProductID: product.ID, Size: "M", Quantity: qty, Price: product.Price,
		}))
	}
	total, err := repo.RecomputeTotal(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("300.00").Equal(total), total.String())

	found, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Len(t, found.Details, 2)
	assert.True(t, total.Equal(found.TotalAmount))
	assert.Equal(t, "2024-05-08", found.PromisedDate.Format("2006-01-02"))

	detail, err := repo.GetDetail(ctx, order.ID, found.Details[0].ID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	other, err := repo.GetDetail(ctx, uuid.New(), found.Details[0].ID)
	require.NoError(t, err)
	assert.Nil(t, other)

	address := "9 Elm St"
	updated, err := repo.Update(ctx, order.ID, OrderPatch{Address: &address})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, address, updated.Address)
	assert.Equal(t, "2024-05-08", updated.PromisedDate.Format("2006-01-02"))

	missing, err := repo.Update(ctx, uuid.New(), OrderPatch{Address: &address})
	require.NoError(t, err)
	assert.Nil(t, missing)

	mine, err := repo.List(ctx, &user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	stranger := uuid.New()
	none, err := repo.List(ctx, &stranger)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, repo.MarkComplete(ctx, order.ID))
	require.NoError(t, repo.DeleteDetails(ctx, order.ID))
	require.NoError(t, repo.Delete(ctx, order.ID))
	gone, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestPaymentRepo_Lifecycle(t *testing.T) {
	cleanupTables(t)
	store := NewStore(testPool)
	repo := store.Payments()
	ctx := context.Background()

	order := seedOrder(t, store, seedUser(t, store).ID)
	payment := &model.Payment{
		OrderID: order.ID, Amount: decimal.RequireFromString("150.99"), Method: "CREDIT_CARD",
		Date: time.Now().UTC(), Status: model.PaymentStatusPending,
	}
	require.NoError(t, repo.Create(ctx, payment))

	require.NoError(t, repo.SetCheckoutSession(ctx, payment.ID, "cs_test_1"))
	updated, err := repo.UpdateStatus(ctx, payment.ID, model.PaymentStatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, model.PaymentStatusCompleted, updated.Status)
	assert.Equal(t, "cs_test_1", updated.CheckoutSessionID)

	missing, err := repo.UpdateStatus(ctx, uuid.New(), model.PaymentStatusCompleted)
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := repo.ListByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, decimal.RequireFromString("150.99").Equal(list[0].Amount))

	require.NoError(t, repo.DeleteByOrderID(ctx, order.ID))
	gone, err := repo.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestStore_WithTxRollsBack(t *testing.T) {
	cleanupTables(t)
	store := NewStore(testPool)
	ctx := context.Background()

	user := seedUser(t, store)
	product := seedProduct(t, store, "10.00", map[string]int{"M": 5})
	boom := errors.New("boom")

	var orderID uuid.UUID
	err := store.WithTx(ctx, func(tx Repos) error {
		order := &model.Order{UserID: user.ID, OrderDate: time.Now(), PromisedDate: time.Now(), Address: "x"}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}
		orderID = order.ID
		if err := tx.Products().DecrementStock(ctx, product.ID, "M", 2); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	order, err := store.Orders().GetByID(ctx, orderID)
	require.NoError(t, err)
	assert.Nil(t, order)
	assert.Equal(t, 5, stockOf(t, store, product.ID, "M"))
}

func TestStore_ConcurrentDecrementNeverOversells(t *testing.T) {
	cleanupTables(t)
	store := NewStore(testPool)
	ctx := context.Background()
	product := seedProduct(t, store, "10.00", map[string]int{"M": 10})

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithTx(ctx, func(tx Repos) error {
				size, err := tx.Products().LockSize(ctx, product.ID, "M")
				if err != nil {
					return err
				}
				if size.Stock < 2 {
					return ErrInsufficientStock
				}
				return tx.Products().DecrementStock(ctx, product.ID, "M", 2)
			})
			if err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 5, succeeded.Load())
	assert.Equal(t, 0, stockOf(t, store, product.ID, "M"))
}
