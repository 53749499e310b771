package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flicky/go-storefront-api/internal/dto"
	"github.com/flicky/go-storefront-api/internal/model"
	"github.com/flicky/go-storefront-api/internal/repository"
)

// Cached product reads may show stock up to productCacheTTL old. Order
// placement always reads the stock row itself.
const productCacheTTL = 60 * time.Second

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

type ProductService struct {
	store repository.Store
	cache redis.Cmdable
	log   *zap.Logger
}

// NewProductService builds the catalog service; cache may be nil.
func NewProductService(store repository.Store, cache redis.Cmdable, log *zap.Logger) *ProductService {
	return &ProductService{store: store, cache: cache, log: log}
}

func (s *ProductService) Create(ctx context.Context, req dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if strings.TrimSpace(req.Name) == "" || req.Price.IsNegative() {
		return nil, ErrInvalidProduct
	}

	product := &model.Product{
		Name:       strings.TrimSpace(req.Name),
		Brand:      strings.TrimSpace(req.Brand),
		Price:      req.Price.Round(2),
		CategoryID: req.CategoryID,
	}
	for _, sz := range req.Sizes {
		product.Sizes = append(product.Sizes, model.ProductSize{Size: strings.TrimSpace(sz.Size), Stock: sz.Stock})
	}

	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		return tx.Products().Create(ctx, product)
	})
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return nil, ErrCategoryNotFound
		}
		return nil, internal(err, "Error creating product")
	}
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	cacheKey := productCacheKey(id)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var resp dto.ProductResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return &resp, nil
			}
		}
	}

	product, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		return nil, internal(err, "Error fetching product")
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	resp := toProductResponse(product)
	if s.cache != nil {
		if data, err := json.Marshal(resp); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, productCacheTTL).Err(); err != nil {
				s.log.Debug("cache product", zap.String("product_id", id.String()), zap.Error(err))
			}
		}
	}
	return &resp, nil
}

func (s *ProductService) List(ctx context.Context, req dto.ListProductsRequest) ([]dto.ProductResponse, int, error) {
	offset := (req.Page - 1) * req.Limit
	products, total, err := s.store.Products().List(ctx, req.Limit, offset)
	if err != nil {
		return nil, 0, internal(err, "Error fetching products")
	}

	items := make([]dto.ProductResponse, 0, len(products))
	for i := range products {
		items = append(items, toProductResponse(&products[i]))
	}
	return items, total, nil
}

func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		return nil, internal(err, "Error updating product")
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Brand != nil {
		product.Brand = strings.TrimSpace(*req.Brand)
	}
	if req.Price != nil {
		product.Price = req.Price.Round(2)
	}
	if req.CategoryID != nil {
		product.CategoryID = req.CategoryID
	}
	if product.Name == "" || product.Price.IsNegative() {
		return nil, ErrInvalidProduct
	}

	if err := s.store.Products().Update(ctx, product); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return nil, ErrProductNotFound
		case pgCode(err) == pgForeignKeyViolation:
			return nil, ErrCategoryNotFound
		}
		return nil, internal(err, "Error updating product")
	}

	s.invalidateCache(ctx, id)
	resp := toProductResponse(product)
	return &resp, nil
}

// SetStock replaces the stock of one size, creating the size if needed.
func (s *ProductService) SetStock(ctx context.Context, id uuid.UUID, size string, stock int) (*dto.ProductResponse, error) {
	size = strings.TrimSpace(size)
	if size == "" || stock < 0 {
		return nil, ErrInvalidProduct
	}

	var product *model.Product
	err := s.store.WithTx(ctx, func(tx repository.Repos) error {
		p, err := tx.Products().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrProductNotFound
		}
		if err := tx.Products().UpsertSize(ctx, model.ProductSize{ProductID: id, Size: size, Stock: stock}); err != nil {
			return err
		}
		product, err = tx.Products().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, internal(err, "Error updating stock")
	}

	s.invalidateCache(ctx, id)
	resp := toProductResponse(product)
	return &resp, nil
}

func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Products().Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return ErrProductNotFound
		case pgCode(err) == pgForeignKeyViolation:
			return ErrProductInUse
		}
		return internal(err, "Error deleting product")
	}
	s.invalidateCache(ctx, id)
	return nil
}

func (s *ProductService) ListCategories(ctx context.Context) ([]dto.CategoryResponse, error) {
	categories, err := s.store.Products().ListCategories(ctx)
	if err != nil {
		return nil, internal(err, "Error fetching categories")
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for _, c := range categories {
		items = append(items, dto.CategoryResponse{ID: c.ID, Name: c.Name})
	}
	return items, nil
}

func (s *ProductService) CreateCategory(ctx context.Context, req dto.CreateCategoryRequest) (*dto.CategoryResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidCategory
	}
	category := &model.Category{Name: name}
	if err := s.store.Products().CreateCategory(ctx, category); err != nil {
		if pgCode(err) == pgUniqueViolation {
			return nil, ErrCategoryExists
		}
		return nil, internal(err, "Error creating category")
	}
	return &dto.CategoryResponse{ID: category.ID, Name: category.Name}, nil
}

func (s *ProductService) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, productCacheKey(id)).Err(); err != nil {
		s.log.Warn("invalidate product cache", zap.String("product_id", id.String()), zap.Error(err))
	}
}

func productCacheKey(id uuid.UUID) string {
	return "product:" + id.String()
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func toProductResponse(p *model.Product) dto.ProductResponse {
	sizes := make([]dto.SizeStock, 0, len(p.Sizes))
	for _, sz := range p.Sizes {
		sizes = append(sizes, dto.SizeStock{Size: sz.Size, Stock: sz.Stock})
	}
	return dto.ProductResponse{
		ID:         p.ID,
		Name:       p.Name,
		Brand:      p.Brand,
		Price:      p.Price,
		CategoryID: p.CategoryID,
		Sizes:      sizes,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
