package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/kuzudb/go-kuzu"
	"go.uber.org/zap"
)

// KuzuDatabase implements the GraphDatabase interface using Kuzu
type KuzuDatabase struct {
	db     *kuzu.Database
	conn   *kuzu.Connection
	logger *zap.Logger
	mu     sync.Mutex // one connection, serialized queries
}

// NewKuzuDatabase creates a new Kuzu database instance
func NewKuzuDatabase(databasePath string, logger *zap.Logger) (*KuzuDatabase, error) {
	var db *kuzu.Database
	var err error

	if databasePath == ":memory:" || databasePath == "" {
		db, err = kuzu.OpenInMemoryDatabase(kuzu.DefaultSystemConfig())
	} else {
		db, err = kuzu.OpenDatabase(databasePath, kuzu.DefaultSystemConfig())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Kuzu database: %w", err)
	}

	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create Kuzu connection: %w", err)
	}

	return &KuzuDatabase{
		db:     db,
		conn:   conn,
		logger: logger,
	}, nil
}

// VerifyConnectivity checks if the database connection is working
func (db *KuzuDatabase) VerifyConnectivity(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	result, err := db.conn.Query("RETURN 1")
	if err != nil {
		return fmt.Errorf("failed to verify Kuzu connectivity: %w", err)
	}
	result.Close()
	return nil
}

// Close closes the database connection
func (db *KuzuDatabase) Close(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.conn != nil {
		db.conn.Close()
		db.conn = nil
	}
	if db.db != nil {
		db.db.Close()
		db.db = nil
	}
	return nil
}

// InitializeSchema creates the node and relationship tables for run reports
func (db *KuzuDatabase) InitializeSchema(ctx context.Context) error {
	schemas := []string{
		`CREATE NODE TABLE IF NOT EXISTS Run (
			id STRING,
			repo STRING,
			commitSha STRING,
			startedAt INT64,
			finishedAt INT64,
			filesChecked INT64,
			findings INT64,
			fix BOOLEAN,
			PRIMARY KEY (id)
		)`,
		`CREATE NODE TABLE IF NOT EXISTS Finding (
			id STRING,
			runId STRING,
			path STRING,
			rule STRING,
			message STRING,
			lineNo INT64,
			col INT64,
			charOffset INT64,
			PRIMARY KEY (id)
		)`,
		"CREATE REL TABLE IF NOT EXISTS HAS_FINDING (FROM Run TO Finding)",
	}

	for _, schema := range schemas {
		if _, err := db.ExecuteWrite(ctx, schema, nil); err != nil {
			db.logger.Error("Failed to create table", zap.String("schema", schema), zap.Error(err))
			return fmt.Errorf("failed to initialize Kuzu schema: %w", err)
		}
	}

	db.logger.Info("Successfully initialized Kuzu schema")
	return nil
}

// ExecuteRead executes a read-only Cypher query and returns the raw records
func (db *KuzuDatabase) ExecuteRead(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	return db.executeQuery(ctx, query, params, false)
}

// ExecuteWrite executes a write Cypher query and returns the raw records
func (db *KuzuDatabase) ExecuteWrite(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	return db.executeQuery(ctx, query, params, true)
}

// ExecuteReadSingle executes a read-only Cypher query expecting a single record
func (db *KuzuDatabase) ExecuteReadSingle(ctx context.Context, query string, params map[string]any) (map[string]any, error) {
	return executeSingle(db.ExecuteRead(ctx, query, params))
}

func (db *KuzuDatabase) executeQuery(ctx context.Context, query string, params map[string]any, isWrite bool) ([]map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if db.conn == nil {
		return nil, fmt.Errorf("kuzu database is closed")
	}

	var result *kuzu.QueryResult
	var err error

	if len(params) > 0 {
		preparedStatement, err := db.conn.Prepare(query)
		if err != nil {
			db.logger.Error("Failed to prepare Kuzu query",
				zap.String("query", query),
				zap.Bool("isWrite", isWrite),
				zap.Error(err))
			return nil, fmt.Errorf("failed to prepare query: %w", err)
		}
		defer preparedStatement.Close()

		result, err = db.conn.Execute(preparedStatement, params)
		if err != nil {
			return nil, db.queryError(query, isWrite, err)
		}
	} else {
		result, err = db.conn.Query(query)
		if err != nil {
			return nil, db.queryError(query, isWrite, err)
		}
	}
	defer result.Close()

	var records []map[string]any
	for result.HasNext() {
		tuple, err := result.Next()
		if err != nil {
			db.logger.Error("Failed to get next result row", zap.Error(err))
			return nil, fmt.Errorf("failed to get next result row: %w", err)
		}

		record, err := tuple.GetAsMap()
		if err != nil {
			db.logger.Error("Failed to convert tuple to map", zap.Error(err))
			return nil, fmt.Errorf("failed to convert tuple to map: %w", err)
		}

		converted := make(map[string]any, len(record))
		for key, value := range record {
			converted[key] = convertKuzuValue(value)
		}
		records = append(records, converted)
	}

	return records, nil
}

func (db *KuzuDatabase) queryError(query string, isWrite bool, err error) error {
	db.logger.Error("Failed to execute Kuzu query",
		zap.String("query", query),
		zap.Bool("isWrite", isWrite),
		zap.Error(err))
	return fmt.Errorf("failed to execute query: %w", err)
}

// convertKuzuValue flattens Kuzu nodes to their properties
func convertKuzuValue(value any) any {
	if node, ok := value.(kuzu.Node); ok {
		return node.Properties
	}
	return value
}
