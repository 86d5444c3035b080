// Package postgres implements the ModelProvider against a PostgreSQL
// source: base tables and columns become tables/columns, views become
// derived metrics (their SQL body is the definition), foreign keys become
// relationships, and row-level security policies become role filters.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/semlens-inc/semlens-engine/pkg/models"
	"github.com/semlens-inc/semlens-engine/pkg/retry"
)

// Config holds connection settings for a PostgreSQL source model.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnectionString returns a libpq-style connection string.
func (c *Config) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Provider reads the source model from PostgreSQL system catalogs.
type Provider struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewProvider connects to the source database. If logger is nil a no-op
// logger is used.
func NewProvider(ctx context.Context, cfg *Config, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*pgxpool.Pool, error) {
		return pgxpool.New(ctx, cfg.ConnectionString())
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := retry.Do(ctx, retry.DefaultConfig(), func() error {
		return pool.Ping(ctx)
	}); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Provider{pool: pool, logger: logger}, nil
}

// Close releases the connection pool.
func (p *Provider) Close() error {
	p.pool.Close()
	return nil
}

// qualifiedTableName returns a properly quoted table reference.
func qualifiedTableName(tableName string) string {
	return pgx.Identifier{tableName}.Sanitize()
}

// ListObjects returns tables, columns, view-backed metrics, foreign-key
// relationships, and RLS-policy roles from the public schema.
func (p *Provider) ListObjects(ctx context.Context) ([]models.Object, error) {
	var objects []models.Object

	tables, err := p.listTables(ctx)
	if err != nil {
		return nil, err
	}
	objects = append(objects, tables...)

	columns, err := p.listColumns(ctx)
	if err != nil {
		return nil, err
	}
	objects = append(objects, columns...)

	metrics, err := p.listViews(ctx)
	if err != nil {
		return nil, err
	}
	objects = append(objects, metrics...)

	rels, err := p.listForeignKeys(ctx)
	if err != nil {
		return nil, err
	}
	objects = append(objects, rels...)

	roles, err := p.listPolicies(ctx)
	if err != nil {
		return nil, err
	}
	objects = append(objects, roles...)

	p.logger.Debug("listed source objects", zap.Int("count", len(objects)))
	return objects, nil
}

func (p *Provider) listTables(ctx context.Context) ([]models.Object, error) {
	const query = `
		SELECT t.table_name, COALESCE(c.reltuples::bigint, 0)
		FROM information_schema.tables t
		LEFT JOIN pg_class c ON c.relname = t.table_name
		LEFT JOIN pg_namespace n ON n.oid = c.relnamespace AND n.nspname = t.table_schema
		WHERE t.table_type = 'BASE TABLE'
		  AND t.table_schema = 'public'
		ORDER BY t.table_name
	`
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var out []models.Object
	for rows.Next() {
		var name string
		var rowCount int64
		if err := rows.Scan(&name, &rowCount); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		rc := rowCount
		out = append(out, models.Object{
			ID:         models.ObjectID(models.ObjectTypeTable, "", name),
			Type:       models.ObjectTypeTable,
			Name:       name,
			Statistics: &models.ObjectStatistics{RowCount: &rc},
		})
	}
	return out, rows.Err()
}

func (p *Provider) listColumns(ctx context.Context) ([]models.Object, error) {
	const query = `
		SELECT c.table_name, c.column_name
		FROM information_schema.columns c
		JOIN information_schema.tables t
		  ON t.table_schema = c.table_schema AND t.table_name = c.table_name
		WHERE c.table_schema = 'public' AND t.table_type = 'BASE TABLE'
		ORDER BY c.table_name, c.ordinal_position
	`
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var out []models.Object
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		out = append(out, models.Object{
			ID:        models.ObjectID(models.ObjectTypeColumn, table, column),
			Type:      models.ObjectTypeColumn,
			Name:      column,
			TableName: table,
		})
	}
	return out, rows.Err()
}

func (p *Provider) listViews(ctx context.Context) ([]models.Object, error) {
	const query = `
		SELECT viewname, definition
		FROM pg_views
		WHERE schemaname = 'public'
		ORDER BY viewname
	`
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query views: %w", err)
	}
	defer rows.Close()

	var out []models.Object
	for rows.Next() {
		var name, definition string
		if err := rows.Scan(&name, &definition); err != nil {
			return nil, fmt.Errorf("scan view: %w", err)
		}
		out = append(out, models.Object{
			ID:         models.ObjectID(models.ObjectTypeMetric, "", name),
			Type:       models.ObjectTypeMetric,
			Name:       name,
			Definition: definition,
		})
	}
	return out, rows.Err()
}

func (p *Provider) listForeignKeys(ctx context.Context) ([]models.Object, error) {
	const query = `
		SELECT tc.constraint_name, kcu.table_name, kcu.column_name,
		       ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_schema = 'public'
		ORDER BY tc.constraint_name
	`
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	var out []models.Object
	for rows.Next() {
		var name, fromTable, fromColumn, toTable, toColumn string
		if err := rows.Scan(&name, &fromTable, &fromColumn, &toTable, &toColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		out = append(out, models.Object{
			ID:   models.ObjectID(models.ObjectTypeRelationship, "", name),
			Type: models.ObjectTypeRelationship,
			Name: name,
			Endpoints: &models.RelationshipEndpoints{
				FromTable:  fromTable,
				FromColumn: fromColumn,
				ToTable:    toTable,
				ToColumn:   toColumn,
				IsActive:   true,
			},
		})
	}
	return out, rows.Err()
}

func (p *Provider) listPolicies(ctx context.Context) ([]models.Object, error) {
	const query = `
		SELECT policyname, tablename, COALESCE(qual, '')
		FROM pg_policies
		WHERE schemaname = 'public'
		ORDER BY policyname
	`
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query policies: %w", err)
	}
	defer rows.Close()

	var out []models.Object
	for rows.Next() {
		var name, table, qual string
		if err := rows.Scan(&name, &table, &qual); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		out = append(out, models.Object{
			ID:         models.ObjectID(models.ObjectTypeRole, "", name),
			Type:       models.ObjectTypeRole,
			Name:       name,
			TableName:  table,
			Definition: qual,
		})
	}
	return out, rows.Err()
}

// GetDefinitionBody returns the definition text for one object. Only
// view-backed metrics and policies carry definitions in this source,
// so the lookup targets the single owning catalog instead of listing
// the whole model.
func (p *Provider) GetDefinitionBody(ctx context.Context, objectID string) (string, error) {
	kind, name, ok := strings.Cut(objectID, ":")
	if !ok {
		return "", fmt.Errorf("object %s: malformed id", objectID)
	}

	var query string
	switch models.ObjectType(kind) {
	case models.ObjectTypeMetric:
		query = `SELECT definition FROM pg_views WHERE schemaname = 'public' AND viewname = $1`
	case models.ObjectTypeRole:
		query = `SELECT COALESCE(qual, '') FROM pg_policies WHERE schemaname = 'public' AND policyname = $1`
	default:
		return "", fmt.Errorf("object %s: no definition", objectID)
	}

	var definition string
	if err := p.pool.QueryRow(ctx, query, name).Scan(&definition); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("object %s: no definition", objectID)
		}
		return "", fmt.Errorf("query definition of %s: %w", objectID, err)
	}
	return definition, nil
}

// GetStatistics returns exact row counts for tables and distinct counts
// for columns, via pg_stats where available.
func (p *Provider) GetStatistics(ctx context.Context, objectIDs []string) (map[string]models.ObjectStatistics, error) {
	const query = `
		SELECT s.tablename, s.attname, s.n_distinct, COALESCE(c.reltuples::bigint, 0)
		FROM pg_stats s
		LEFT JOIN pg_class c ON c.relname = s.tablename
		LEFT JOIN pg_namespace n ON n.oid = c.relnamespace AND n.nspname = s.schemaname
		WHERE s.schemaname = 'public'
	`
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query pg_stats: %w", err)
	}
	defer rows.Close()

	distinct := make(map[string]int64)
	for rows.Next() {
		var table, column string
		var nDistinct float64
		var relTuples int64
		if err := rows.Scan(&table, &column, &nDistinct, &relTuples); err != nil {
			return nil, fmt.Errorf("scan pg_stats: %w", err)
		}
		// Negative n_distinct is a fraction of the table's row count.
		if nDistinct < 0 {
			nDistinct = -nDistinct * float64(relTuples)
		}
		distinct[models.ObjectID(models.ObjectTypeColumn, table, column)] = int64(nDistinct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pg_stats: %w", err)
	}

	out := make(map[string]models.ObjectStatistics, len(objectIDs))
	for _, id := range objectIDs {
		if d, ok := distinct[id]; ok {
			dc := d
			out[id] = models.ObjectStatistics{DistinctCount: &dc}
		}
	}
	return out, nil
}

// SampleRows reads up to n rows from the named table.
func (p *Provider) SampleRows(ctx context.Context, tableName string, n int) (*models.SampleFile, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", qualifiedTableName(tableName), n)
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", tableName, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	sample := &models.SampleFile{TableName: tableName, Columns: columns}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read sample row from %s: %w", tableName, err)
		}
		sample.Rows = append(sample.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples from %s: %w", tableName, err)
	}
	return sample, nil
}
