package service

import (
	"context"
	"fmt"

	"commas-go/internal/config"

	"go.uber.org/zap"
)

// GraphDatabase is the Cypher-speaking backend behind the report store
type GraphDatabase interface {
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error

	// InitializeSchema creates the tables or constraints for runs and findings
	InitializeSchema(ctx context.Context) error

	ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
	ExecuteWrite(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)
}

// NewGraphDatabase opens the backend selected in the configuration. It
// returns nil, nil when run reports are not persisted.
func NewGraphDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (GraphDatabase, error) {
	var db GraphDatabase
	var err error

	switch cfg.Store.Backend {
	case config.StoreNone:
		logger.Info("Run report persistence is disabled")
		return nil, nil
	case config.StoreKuzu:
		db, err = NewKuzuDatabase(cfg.Kuzu.Path, logger)
	case config.StoreNeo4j:
		db, err = NewNeo4jDatabase(cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	if err != nil {
		return nil, err
	}

	if err := db.VerifyConnectivity(ctx); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to verify database connectivity: %w", err)
	}
	if err := db.InitializeSchema(ctx); err != nil {
		db.Close(ctx)
		return nil, err
	}
	return db, nil
}

func executeSingle(records []map[string]any, err error) (map[string]any, error) {
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no records returned")
	}
	if len(records) > 1 {
		return nil, fmt.Errorf("expected single record, got %d", len(records))
	}
	return records[0], nil
}
