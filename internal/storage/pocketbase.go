package storage

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"census/internal/formatter"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/migrations/logs"
	pbModels "github.com/pocketbase/pocketbase/models"
	"github.com/pocketbase/pocketbase/tools/migrate"
	"go.uber.org/zap"
)

// PocketBaseStore owns the embedded PocketBase instance holding exported tables
type PocketBaseStore struct {
	app    *pocketbase.PocketBase
	logger *zap.Logger
}

// NewPocketBaseStore opens the store in dataDir and serves the PocketBase
// admin UI on addr in the background so exported collections can be browsed.
func NewPocketBaseStore(dataDir, addr string, logger *zap.Logger) (*PocketBaseStore, error) {
	s, err := OpenPocketBaseStore(dataDir, logger)
	if err != nil {
		return nil, err
	}

	go func() {
		if err := s.Serve(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("PocketBase server stopped", zap.Error(err))
		}
	}()

	logger.Info("PocketBase started", zap.String("addr", addr), zap.String("dir", dataDir))
	return s, nil
}

// OpenPocketBaseStore bootstraps PocketBase in dataDir and applies its
// migrations without serving HTTP.
func OpenPocketBaseStore(dataDir string, logger *zap.Logger) (*PocketBaseStore, error) {
	app := pocketbase.NewWithConfig(pocketbase.Config{
		DefaultDataDir:  dataDir,
		HideStartBanner: true,
	})

	if err := app.Bootstrap(); err != nil {
		return nil, fmt.Errorf("failed to bootstrap PocketBase: %w", err)
	}

	for _, m := range []struct {
		db   *dbx.DB
		list migrate.MigrationsList
	}{
		{app.DB(), migrations.AppMigrations},
		{app.LogsDB(), logs.LogsMigrations},
	} {
		runner, err := migrate.NewRunner(m.db, m.list)
		if err != nil {
			return nil, fmt.Errorf("failed to create migration runner: %w", err)
		}
		if _, err := runner.Up(); err != nil {
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
	}
	if err := app.RefreshSettings(); err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	return &PocketBaseStore{app: app, logger: logger}, nil
}

// Serve blocks serving the PocketBase API and admin UI on addr
func (s *PocketBaseStore) Serve(addr string) error {
	_, err := apis.Serve(s.app, apis.ServeConfig{HttpAddr: addr})
	return err
}

// Close releases the database handles
func (s *PocketBaseStore) Close() error {
	return s.app.ResetBootstrapState()
}

// ListExports returns the names of all export collections
func (s *PocketBaseStore) ListExports() ([]string, error) {
	collections, err := s.app.Dao().FindCollectionsByType(pbModels.CollectionTypeBase)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch collections: %w", err)
	}

	var names []string
	for _, c := range collections {
		if strings.HasPrefix(c.Name, formatter.CollectionPrefix) {
			names = append(names, c.Name)
		}
	}
	return names, nil
}

// LoadExport reads the rows of an export collection ordered by geoid. A
// non-nil geoid restricts the result to that geography.
func (s *PocketBaseStore) LoadExport(name string, geoid *int64) ([]map[string]any, error) {
	if !strings.HasPrefix(name, formatter.CollectionPrefix) {
		return nil, fmt.Errorf("collection %q is not an export", name)
	}
	collection, err := s.app.Dao().FindCollectionByNameOrId(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find collection: %w", err)
	}

	query := s.app.Dao().RecordQuery(collection)
	if collection.Schema.GetFieldByName("geoid") != nil {
		if geoid != nil {
			query.AndWhere(dbx.HashExp{"geoid": *geoid})
		}
		query.OrderBy("geoid ASC")
	}

	var records []*pbModels.Record
	if err := query.All(&records); err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}

	fields := collection.Schema.Fields()
	rows := make([]map[string]any, len(records))
	for i, record := range records {
		row := make(map[string]any, len(fields))
		for _, f := range fields {
			row[f.Name] = record.Get(f.Name)
		}
		rows[i] = row
	}
	return rows, nil
}

// DeleteExports removes every export collection and returns their names
func (s *PocketBaseStore) DeleteExports() ([]string, error) {
	names, err := s.ListExports()
	if err != nil {
		return nil, err
	}

	var deleted []string
	for _, name := range names {
		collection, err := s.app.Dao().FindCollectionByNameOrId(name)
		if err != nil {
			return deleted, fmt.Errorf("failed to find collection %s: %w", name, err)
		}
		s.logger.Info("Deleting collection", zap.String("collection", name))
		if err := s.app.Dao().DeleteCollection(collection); err != nil {
			return deleted, fmt.Errorf("failed to delete collection %s: %w", name, err)
		}
		deleted = append(deleted, name)
	}
	return deleted, nil
}

// GetPocketBase returns the underlying app
func (s *PocketBaseStore) GetPocketBase() *pocketbase.PocketBase {
	return s.app
}
