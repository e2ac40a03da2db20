package handlers

import (
	"context"

	"github.com/maruel/productdb/internal/server/dto"
	"github.com/maruel/productdb/internal/storage"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version   string
	GoVersion string
	Revision  string
	Dirty     bool
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	products *storage.ProductTable
	build    BuildInfo
	history  bool
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(products *storage.ProductTable, build BuildInfo, history bool) *HealthHandler {
	return &HealthHandler{products: products, build: build, history: history}
}

// Health reports the server version and the number of stored products.
func (h *HealthHandler) Health(ctx context.Context, _ *dto.HealthRequest) (*dto.Response[dto.HealthResponse], error) {
	return dto.OK("OK", &dto.HealthResponse{
		Status:    "ok",
		Version:   h.build.Version,
		GoVersion: h.build.GoVersion,
		Revision:  h.build.Revision,
		Dirty:     h.build.Dirty,
		Format:    h.products.Codec().Name(),
		Records:   h.products.Len(),
		History:   h.history,
	}), nil
}
