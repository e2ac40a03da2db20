package handlers

import (
	"context"

	"github.com/maruel/productdb/internal/flatdb"
	"github.com/maruel/productdb/internal/server/dto"
	"github.com/maruel/productdb/internal/storage"
)

// SchemaHandler describes the data file layout.
type SchemaHandler struct {
	products *storage.ProductTable
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(products *storage.ProductTable) *SchemaHandler {
	return &SchemaHandler{products: products}
}

// Schema returns the columns in file order and their JSON Schema.
func (h *SchemaHandler) Schema(ctx context.Context, _ *dto.SchemaRequest) (*dto.Response[dto.SchemaResponse], error) {
	s := h.products.Schema()
	out := &dto.SchemaResponse{
		Format:     h.products.Codec().Name(),
		Columns:    columnsToDTO(s.Columns),
		JSONSchema: s.JSONSchema(),
	}
	if c, ok := h.products.Codec().(*flatdb.DelimitedCodec); ok {
		out.Delimiter = string(c.Comma)
	}
	return dto.OK("Product schema", out), nil
}
