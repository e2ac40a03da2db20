// Package models defines the core data structures used throughout the application.
package models

// Product is one catalog entry.
//
// Field order is the canonical column order of the data file.
type Product struct {
	ID       int64   `json:"id" jsonschema:"required,minimum=1,description=Unique positive product identifier"`
	Name     string  `json:"name" jsonschema:"required,minLength=1,description=Product name"`
	Category string  `json:"category" jsonschema:"description=Product category"`
	Size     string  `json:"size" jsonschema:"description=Size label such as M or 42"`
	Color    string  `json:"color" jsonschema:"description=Color name"`
	Price    float64 `json:"price" jsonschema:"minimum=0,description=Unit price"`
	Stock    int64   `json:"stock" jsonschema:"description=Units in stock"`
}

// GetID returns the product id.
func (p *Product) GetID() int64 {
	return p.ID
}

// Matches reports whether every non-empty filter equals the corresponding field.
func (p *Product) Matches(category, size, color string) bool {
	return (category == "" || p.Category == category) &&
		(size == "" || p.Size == size) &&
		(color == "" || p.Color == color)
}
