// Handles product CRUD endpoints.

package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/maruel/productdb/internal/server/dto"
	"github.com/maruel/productdb/internal/storage"
)

// ProductHandler handles product requests.
type ProductHandler struct {
	products *storage.ProductTable
}

// NewProductHandler creates a new product handler.
func NewProductHandler(products *storage.ProductTable) *ProductHandler {
	return &ProductHandler{products: products}
}

// ListProducts returns every product matching the filters, in file order.
func (h *ProductHandler) ListProducts(ctx context.Context, req *dto.ListProductsRequest) (*dto.Response[[]dto.Product], error) {
	list := []dto.Product{}
	for p := range h.products.All() {
		if p.Matches(req.Category, req.Size, req.Color) {
			list = append(list, productToDTO(p))
		}
	}
	return dto.OK("Product list", &list), nil
}

// GetProduct returns a single product.
func (h *ProductHandler) GetProduct(ctx context.Context, req *dto.GetProductRequest) (*dto.Response[dto.Product], error) {
	p, ok := h.products.Get(req.ID)
	if !ok {
		return nil, productNotFound(req.ID)
	}
	out := productToDTO(p)
	return dto.OK("Product found", &out), nil
}

// CreateProduct appends a new product. The id must not be in use.
func (h *ProductHandler) CreateProduct(ctx context.Context, req *dto.CreateProductRequest) (*dto.Response[dto.Product], error) {
	p, err := h.products.FromFields(req.Fields)
	if err != nil {
		return nil, dto.BadRequest("Invalid product").Wrap(err)
	}
	inserted, err := h.products.Insert(p)
	if err != nil {
		return nil, storageError(err)
	}
	if !inserted {
		return nil, dto.Conflict(fmt.Sprintf("Product already exists (id=%d)", p.ID)).WithDetail("id", p.ID)
	}
	slog.InfoContext(ctx, "Product created", "id", p.ID)
	out := productToDTO(p)
	return dto.Created("Product created", &out), nil
}

// UpdateProduct merges the request fields into an existing product.
func (h *ProductHandler) UpdateProduct(ctx context.Context, req *dto.UpdateProductRequest) (*dto.Response[dto.Product], error) {
	p, ok, err := h.products.Update(req.ID, req.Patch())
	if err != nil {
		return nil, storageError(err)
	}
	if !ok {
		return nil, productNotFound(req.ID)
	}
	slog.InfoContext(ctx, "Product updated", "id", p.ID)
	out := productToDTO(p)
	return dto.OK("Product updated", &out), nil
}

// CreateLegacyProduct is CreateProduct for a body using the original column
// names.
func (h *ProductHandler) CreateLegacyProduct(ctx context.Context, req *dto.LegacyCreateProductRequest) (*dto.Response[dto.Product], error) {
	return h.CreateProduct(ctx, &req.CreateProductRequest)
}

// UpdateLegacyProduct is UpdateProduct for a body using the original column
// names.
func (h *ProductHandler) UpdateLegacyProduct(ctx context.Context, req *dto.LegacyUpdateProductRequest) (*dto.Response[dto.Product], error) {
	return h.UpdateProduct(ctx, req.Update())
}

// DeleteProduct removes a product.
func (h *ProductHandler) DeleteProduct(ctx context.Context, req *dto.DeleteProductRequest) (*dto.Response[dto.DeleteProductResponse], error) {
	ok, err := h.products.Delete(req.ID)
	if err != nil {
		return nil, storageError(err)
	}
	if !ok {
		return nil, productNotFound(req.ID)
	}
	slog.InfoContext(ctx, "Product deleted", "id", req.ID)
	return dto.OK("Product deleted", &dto.DeleteProductResponse{ID: req.ID}), nil
}
