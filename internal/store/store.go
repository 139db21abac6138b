// Package store persists the lottery snapshot as a single JSON document.
//
// Every backend stores the same document produced by models.EncodeSnapshot. An empty store
// loads as the default idle snapshot; a document that cannot be read or decoded is reported
// as an error and the service decides how to recover.
package store

import (
	"context"
	"fmt"
	"net/http"

	"giveaway/internal/config"
	"giveaway/internal/models"
)

// Store loads and saves the lottery snapshot.
type Store interface {
	Load(ctx context.Context) (models.Snapshot, error)
	Save(ctx context.Context, snap models.Snapshot) error
	Close() error
}

// Open builds the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.Store) (Store, error) {
	switch cfg.Driver {
	case config.DriverFile:
		return NewFileStore(cfg.Path)
	case config.DriverSQLite:
		return OpenSQLite(cfg.Path)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg.DatabaseURL)
	case config.DriverRedis:
		return OpenRedis(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
	case config.DriverGist:
		return NewGistStore(GistOptions{
			BaseURL: cfg.GitHubAPI,
			GistID:  cfg.GistID,
			Token:   cfg.GitHubToken,
			File:    cfg.GistFile,
			Client:  &http.Client{Timeout: cfg.Timeout},
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
