package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// Dialect names the SQL backend a Store is opened against.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Open dials dsn with the driver matching dialect and wraps it in a bun.DB.
// Use this for a standalone Store; hosts that already manage a
// go-persistence-bun client should call FromPersistenceClient instead and
// share its pool.
func Open(dialect Dialect, dsn string) (*bun.DB, error) {
	switch dialect {
	case DialectPostgres:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case DialectSQLite:
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: open sqlite: %w", err)
		}
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported dialect %q", dialect)
	}
}

// ClientConfig satisfies the go-persistence-bun config contract with the
// handful of fields a credential store needs to care about.
type ClientConfig struct {
	Driver         string
	Server         string
	Debug          bool
	PingTimeout    time.Duration
	OtelIdentifier string
}

func (c ClientConfig) GetDebug() bool                { return c.Debug }
func (c ClientConfig) GetDriver() string             { return c.Driver }
func (c ClientConfig) GetServer() string             { return c.Server }
func (c ClientConfig) GetOtelIdentifier() string     { return c.OtelIdentifier }
func (c ClientConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return 5 * time.Second
	}
	return c.PingTimeout
}

// OpenPersistenceClient dials dsn and wraps it in a go-persistence-bun
// client, the pooling/migration/lifecycle layer a store expects to already
// be running. FromPersistenceClient then lifts the client's *bun.DB out for
// a Store to use.
func OpenPersistenceClient(dialect Dialect, dsn string) (*persistence.Client, error) {
	cfg := ClientConfig{Driver: string(dialect), Server: dsn, OtelIdentifier: "go-credentials-store"}

	switch dialect {
	case DialectPostgres:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
		}
		client, err := persistence.New(cfg, sqldb, pgdialect.New())
		if err != nil {
			_ = sqldb.Close()
			return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
		}
		return client, nil
	case DialectSQLite:
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: open sqlite: %w", err)
		}
		client, err := persistence.New(cfg, sqldb, sqlitedialect.New())
		if err != nil {
			_ = sqldb.Close()
			return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported dialect %q", dialect)
	}
}

// FromPersistenceClient unwraps a go-persistence-bun client into the bun.DB
// a Store needs by calling the client's DB method; a nil client or a client
// without a bun.DB is an error.
func FromPersistenceClient(client *persistence.Client) (*bun.DB, error) {
	if client == nil {
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	}
	db := client.DB()
	if db == nil {
		return nil, fmt.Errorf("sqlstore: persistence client has no bun.DB configured")
	}
	return db, nil
}

// EnsureSchema creates the document table if it does not already exist.
// Idempotent, intended for tests and small deployments; production
// rollouts are expected to manage the schema through their own migration
// tool.
func EnsureSchema(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*documentRecord)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: ensure schema: %w", err)
	}
	return nil
}
