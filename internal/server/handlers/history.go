package handlers

import (
	"context"

	"github.com/maruel/productdb/internal/server/dto"
	"github.com/maruel/productdb/internal/storage/history"
)

const defaultHistoryLimit = 50

// HistoryHandler lists recorded versions of the data file.
type HistoryHandler struct {
	repo *history.Repo
}

// NewHistoryHandler creates a new history handler. repo may be nil when
// history is disabled.
func NewHistoryHandler(repo *history.Repo) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// History returns the most recent commits touching the data file.
func (h *HistoryHandler) History(ctx context.Context, req *dto.HistoryRequest) (*dto.Response[dto.HistoryResponse], error) {
	if h.repo == nil {
		return nil, dto.NotFound("History is disabled")
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultHistoryLimit
	}
	commits, err := h.repo.Log(ctx, limit)
	if err != nil {
		return nil, dto.InternalWithError("Failed to read history", err)
	}
	return dto.OK("History", &dto.HistoryResponse{Commits: commitsToDTO(commits)}), nil
}
