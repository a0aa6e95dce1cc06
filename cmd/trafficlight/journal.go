package main

import (
	"context"
	"database/sql"
	"fmt"

	gfs "cloud.google.com/go/firestore"
	_ "github.com/lib/pq"

	"github.com/quintans/go-trafficlight/store/firestore"
	"github.com/quintans/go-trafficlight/store/memory"
	"github.com/quintans/go-trafficlight/store/postgres"
	"github.com/quintans/go-trafficlight/trafficlight"
)

// openJournal returns the configured journal and the function that releases it.
func openJournal(ctx context.Context, cfg JournalConfig) (trafficlight.Journal, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Kind {
	case "", "memory":
		return memory.New(), noop, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		var options []postgres.StoreOption
		if cfg.Table != "" {
			options = append(options, postgres.TableOption(cfg.Table))
		}
		store := postgres.New(db, options...)
		if err := store.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db.Close, nil

	case "firestore":
		client, err := gfs.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		var options []firestore.StoreOption
		if cfg.Collection != "" {
			options = append(options, firestore.CollectionPathOption(cfg.Collection))
		}
		return firestore.New(client, options...), client.Close, nil
	}

	return nil, nil, fmt.Errorf("%w: unknown journal kind %q", ErrInvalidConfig, cfg.Kind)
}
