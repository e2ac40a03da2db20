package handlers

import (
	"errors"
	"fmt"

	"github.com/maruel/productdb/internal/flatdb"
	"github.com/maruel/productdb/internal/models"
	"github.com/maruel/productdb/internal/server/dto"
	"github.com/maruel/productdb/internal/storage/history"
)

// --- Errors ---

func productNotFound(id int64) error {
	return dto.NotFound(fmt.Sprintf("Product not found (id=%d)", id)).WithDetail("id", id)
}

// storageError maps a table error to an API error. Failed writes are
// reported as STORAGE_ERROR, anything else as an internal error.
func storageError(err error) error {
	var swe *flatdb.StorageWriteError
	if errors.As(err, &swe) {
		return dto.StorageError(err)
	}
	return dto.InternalWithError("Failed to process product", err)
}

// --- Models to DTO conversions ---

func productToDTO(p *models.Product) dto.Product {
	return dto.Product{
		ID:       p.ID,
		Name:     p.Name,
		Category: p.Category,
		Size:     p.Size,
		Color:    p.Color,
		Price:    p.Price,
		Stock:    p.Stock,
	}
}

func columnsToDTO(cols []flatdb.Column) []dto.Column {
	out := make([]dto.Column, len(cols))
	for i, c := range cols {
		out[i] = dto.Column{
			Name:        c.Name,
			Type:        string(c.Type),
			Required:    c.Required,
			Description: c.Description,
		}
	}
	return out
}

func commitsToDTO(commits []history.Commit) []dto.Commit {
	out := make([]dto.Commit, len(commits))
	for i, c := range commits {
		out[i] = dto.Commit{Hash: c.Hash, Message: c.Message, Author: c.Author, When: c.When}
	}
	return out
}
