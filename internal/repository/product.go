package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/flicky/go-storefront-api/internal/model"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, limit, offset int) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error

	UpsertSize(ctx context.Context, size model.ProductSize) error
	// LockSize reads a stock row with FOR UPDATE; it must run inside a
	// transaction for the lock to outlive the statement.
	LockSize(ctx context.Context, productID uuid.UUID, size string) (*model.ProductSize, error)
	DecrementStock(ctx context.Context, productID uuid.UUID, size string, quantity int) error

	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error
}

type pgProductRepo struct{ q Querier }

func NewProductRepository(q Querier) ProductRepository {
	return &pgProductRepo{q: q}
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	product.ID = uuid.New()
	query := `INSERT INTO product (p_id, name, brand, price, category_c_id, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING created_at, updated_at`
	err := r.q.QueryRow(ctx, query,
		product.ID, product.Name, product.Brand, product.Price, product.CategoryID,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	for i := range product.Sizes {
		product.Sizes[i].ProductID = product.ID
		if err := r.UpsertSize(ctx, product.Sizes[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `SELECT p_id, name, brand, price, category_c_id, created_at, updated_at FROM product WHERE p_id = $1`
	p := &model.Product{}
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Brand, &p.Price, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	rows, err := r.q.Query(ctx,
		`SELECT product_id, size, stock FROM p_size WHERE product_id = $1 ORDER BY size`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get product sizes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s model.ProductSize
		if err := rows.Scan(&s.ProductID, &s.Size, &s.Stock); err != nil {
			return nil, fmt.Errorf("scan product size: %w", err)
		}
		p.Sizes = append(p.Sizes, s)
	}
	return p, rows.Err()
}

func (r *pgProductRepo) List(ctx context.Context, limit, offset int) ([]model.Product, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM product`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.q.Query(ctx,
		`SELECT p_id, name, brand, price, category_c_id, created_at, updated_at
		 FROM product ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Price, &p.CategoryID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE product SET name=$2, brand=$3, price=$4, category_c_id=$5, updated_at=NOW()
			  WHERE p_id=$1 RETURNING updated_at`
	err := r.q.QueryRow(ctx, query,
		product.ID, product.Name, product.Brand, product.Price, product.CategoryID,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pgx.ErrNoRows
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.q.Exec(ctx, `DELETE FROM product WHERE p_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *pgProductRepo) UpsertSize(ctx context.Context, size model.ProductSize) error {
	_, err := r.q.Exec(ctx,
		`INSERT INTO p_size (product_id, size, stock) VALUES ($1, $2, $3)
		 ON CONFLICT (product_id, size) DO UPDATE SET stock = EXCLUDED.stock`,
		size.ProductID, size.Size, size.Stock,
	)
	if err != nil {
		return fmt.Errorf("upsert product size: %w", err)
	}
	return nil
}

func (r *pgProductRepo) LockSize(ctx context.Context, productID uuid.UUID, size string) (*model.ProductSize, error) {
	s := &model.ProductSize{}
	err := r.q.QueryRow(ctx,
		`SELECT product_id, size, stock FROM p_size WHERE product_id = $1 AND size = $2 FOR UPDATE`,
		productID, size,
	).Scan(&s.ProductID, &s.Size, &s.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock product size: %w", err)
	}
	return s, nil
}

func (r *pgProductRepo) DecrementStock(ctx context.Context, productID uuid.UUID, size string, quantity int) error {
	ct, err := r.q.Exec(ctx,
		`UPDATE p_size SET stock = stock - $3 WHERE product_id = $1 AND size = $2 AND stock >= $3`,
		productID, size, quantity,
	)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *pgProductRepo) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := r.q.Query(ctx, `SELECT c_id, name FROM category ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *pgProductRepo) CreateCategory(ctx context.Context, category *model.Category) error {
	category.ID = uuid.New()
	_, err := r.q.Exec(ctx, `INSERT INTO category (c_id, name) VALUES ($1, $2)`, category.ID, category.Name)
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}
