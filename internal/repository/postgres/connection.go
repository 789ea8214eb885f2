package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"knowledgestack/internal/domain/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Organizations         string
	Users                 string
	Memberships           string
	Profiles              string
	UserThemes            string
	Departments           string
	DepartmentMembers     string
	Collections           string
	CollectionDepartments string
	CollectionDocuments   string
	Documents             string
	DocumentDepartments   string
	Sections              string
	Links                 string
	Versions              string
	Tags                  string
	DocumentTags          string
	CollectionTags        string
	Tiles                 string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Organizations:         fmt.Sprintf("%sorganizations", prefix),
		Users:                 fmt.Sprintf("%susers", prefix),
		Memberships:           fmt.Sprintf("%smemberships", prefix),
		Profiles:              fmt.Sprintf("%sprofiles", prefix),
		UserThemes:            fmt.Sprintf("%suser_themes", prefix),
		Departments:           fmt.Sprintf("%sdepartments", prefix),
		DepartmentMembers:     fmt.Sprintf("%sdepartment_members", prefix),
		Collections:           fmt.Sprintf("%scollections", prefix),
		CollectionDepartments: fmt.Sprintf("%scollection_departments", prefix),
		CollectionDocuments:   fmt.Sprintf("%scollection_documents", prefix),
		Documents:             fmt.Sprintf("%sdocuments", prefix),
		DocumentDepartments:   fmt.Sprintf("%sdocument_departments", prefix),
		Sections:              fmt.Sprintf("%ssections", prefix),
		Links:                 fmt.Sprintf("%sresource_links", prefix),
		Versions:              fmt.Sprintf("%sdocument_versions", prefix),
		Tags:                  fmt.Sprintf("%stags", prefix),
		DocumentTags:          fmt.Sprintf("%sdocument_tags", prefix),
		CollectionTags:        fmt.Sprintf("%scollection_tags", prefix),
		Tiles:                 fmt.Sprintf("%stiles", prefix),
	}
}

// All returns every table, dependents first, for drop and clear operations
func (t *TableNames) All() []string {
	return []string{
		t.Tiles,
		t.CollectionTags,
		t.DocumentTags,
		t.Tags,
		t.Versions,
		t.Links,
		t.Sections,
		t.DocumentDepartments,
		t.CollectionDocuments,
		t.CollectionDepartments,
		t.Documents,
		t.Collections,
		t.DepartmentMembers,
		t.Departments,
		t.UserThemes,
		t.Profiles,
		t.Memberships,
		t.Users,
		t.Organizations,
	}
}

// CreateConnectionPool creates a new pgx connection pool.
//
// Behind PgBouncer in transaction pooling mode (port 6543) prepared
// statements break, so the pool switches to QueryExecModeCacheDescribe,
// which still uses the extended protocol and encodes JSONB maps. An explicit
// default_query_exec_mode in the connection string takes precedence.
//
// Table names are interpolated with fmt.Sprintf before the SQL reaches the
// server, so each prefix gets its own cached statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	// Configure pool size
	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction.
// Otherwise, it returns the provided pool.
// This enables repositories to automatically participate in transactions when they exist.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	// Check if there's a transaction in the context
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	// No transaction, use the pool
	return pool
}
