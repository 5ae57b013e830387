// Package store provides the record store variants behind core.Store: a
// local spreadsheet file, a MongoDB collection, a Google spreadsheet and a
// PostgreSQL table. Exactly one is opened per process.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/richway/internal/config"
	"github.com/JonMunkholm/richway/internal/core"
)

// Open builds the store selected by cfg.Store.Backend.
//
// Connection failures of the mongo and postgres backends are returned and
// should stop the process. The sheets backend never fails here: its problems
// are logged and the store is returned anyway.
func Open(ctx context.Context, cfg *config.Config) (core.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendFile:
		s, err := NewFileSheet(cfg.Store.DataFile)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.BackendMongo:
		s, err := NewDocument(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.BackendSheets:
		s, err := NewRemoteSheet(ctx, cfg.Sheets.ServiceAccountEmail, cfg.Sheets.PrivateKey, cfg.Sheets.SheetID)
		if err != nil {
			slog.Error("remote sheet unavailable, submissions will not be stored", "error", err)
		}
		return s, nil

	case config.BackendPostgres:
		s, err := NewSQL(ctx, cfg.SQL.URL, cfg.SQL.MaxOpenConns)
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
