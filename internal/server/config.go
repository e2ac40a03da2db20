package server

import (
	"github.com/maruel/productdb/internal/server/handlers"
	"github.com/maruel/productdb/internal/server/ipgeo"
	"github.com/maruel/productdb/internal/storage"
	"github.com/maruel/productdb/internal/storage/history"
)

// Config holds everything NewRouter needs besides the product table.
type Config struct {
	storage.ServerConfig

	Build handlers.BuildInfo
	// IPGeo resolves client countries for access logs. May be nil.
	IPGeo *ipgeo.Checker
	// History records every change to the data file. May be nil.
	History *history.Repo
}
