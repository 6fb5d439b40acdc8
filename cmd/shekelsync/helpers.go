package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/shekelsync/shekelsync/internal/config"
	"github.com/shekelsync/shekelsync/internal/recon"
	"github.com/shekelsync/shekelsync/internal/registry"
	"github.com/shekelsync/shekelsync/internal/service"
	"github.com/shekelsync/shekelsync/internal/storage"
	"github.com/spf13/viper"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Store, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		var err error
		dbPath, err = config.DefaultDatabasePath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path: %w", err)
		}
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newEngine wires the reconciliation engine over the store and the cached
// bank-vendor registry.
func newEngine(store service.Store) *recon.Engine {
	reg := registry.NewCached(registry.NewStatic(), registry.DefaultCacheTTL)
	return recon.NewEngine(store, reg)
}

// optionalString converts an optional flag value to the nullable form the
// engine expects: empty means unset.
func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func displayAccount(account *string) string {
	if account == nil {
		return "(any)"
	}
	return *account
}
