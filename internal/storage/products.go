package storage

import (
	"github.com/maruel/productdb/internal/flatdb"
	"github.com/maruel/productdb/internal/models"
)

// ProductTable is the record store holding the product catalog.
type ProductTable = flatdb.Table[*models.Product]

// OpenProducts opens (creating if needed) the product data file described by
// cfg. Relative paths are resolved against dataDir.
func OpenProducts(dataDir string, cfg *StorageConfig) (*ProductTable, error) {
	codec, err := flatdb.CodecByName(cfg.Format, cfg.Comma())
	if err != nil {
		return nil, err
	}
	return flatdb.NewTable[*models.Product](cfg.Path(dataDir), codec)
}
