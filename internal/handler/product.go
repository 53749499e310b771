package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flicky/go-storefront-api/internal/dto"
	"github.com/flicky/go-storefront-api/internal/service"
)

type ProductHandler struct {
	products ProductService
	log      *zap.Logger
}

func NewProductHandler(products ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{products: products, log: log}
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, service.ErrInvalidProduct.Message)
		return
	}

	resp, err := h.products.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err, "Error creating product")
		return
	}
	c.JSON(http.StatusCreated, dto.ProductEnvelope{Message: "Product created", Product: resp})
}

func (h *ProductHandler) GetByID(c *gin.Context) {
	id, ok := uuidParam(c, "productId", "Invalid product id")
	if !ok {
		return
	}

	resp, err := h.products.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err, "Error fetching product")
		return
	}
	c.JSON(http.StatusOK, dto.ProductEnvelope{Message: "Product found", Product: resp})
}

func (h *ProductHandler) List(c *gin.Context) {
	var req dto.ListProductsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		badRequest(c, "Invalid paging parameters")
		return
	}

	items, total, err := h.products.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err, "Error fetching products")
		return
	}
	c.JSON(http.StatusOK, dto.ProductListEnvelope{
		Message:  "Products found",
		Products: items,
		Total:    total,
		Page:     req.Page,
		Limit:    req.Limit,
	})
}

func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := uuidParam(c, "productId", "Invalid product id")
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, service.ErrInvalidProduct.Message)
		return
	}

	resp, err := h.products.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, h.log, err, "Error updating product")
		return
	}
	c.JSON(http.StatusOK, dto.ProductEnvelope{Message: "Product updated", Product: resp})
}

func (h *ProductHandler) SetStock(c *gin.Context) {
	id, ok := uuidParam(c, "productId", "Invalid product id")
	if !ok {
		return
	}

	var req dto.SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, service.ErrInvalidProduct.Message)
		return
	}

	resp, err := h.products.SetStock(c.Request.Context(), id, c.Param("size"), req.Stock)
	if err != nil {
		respondError(c, h.log, err, "Error updating stock")
		return
	}
	c.JSON(http.StatusOK, dto.ProductEnvelope{Message: "Stock updated", Product: resp})
}

func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := uuidParam(c, "productId", "Invalid product id")
	if !ok {
		return
	}

	if err := h.products.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err, "Error deleting product")
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Product deleted"})
}

func (h *ProductHandler) ListCategories(c *gin.Context) {
	items, err := h.products.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err, "Error fetching categories")
		return
	}
	c.JSON(http.StatusOK, dto.CategoryListEnvelope{Message: "Categories found", Categories: items})
}

func (h *ProductHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, service.ErrInvalidCategory.Message)
		return
	}

	resp, err := h.products.CreateCategory(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err, "Error creating category")
		return
	}
	c.JSON(http.StatusCreated, dto.CategoryEnvelope{Message: "Category created", Category: resp})
}
