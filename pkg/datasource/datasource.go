package datasource

import (
	"context"
	"time"
)

// =====================================
// DataSource Interface
// =====================================

// DataSource - a live, pooled connection source built by a Factory.
// The concrete pool object is exposed through Pool() so that the
// application can run queries with the driver of its choice.
type DataSource interface {
	// Ping verifies that the pool can reach the database.
	Ping(ctx context.Context) error
	// Pool returns the underlying pool object (*pgxpool.Pool, *sql.DB, ...).
	Pool() any
	// ConnInfo returns the connection metadata the pool was built from.
	ConnInfo() ConnInfo
	// Close releases all pooled resources. Safe to call more than once.
	Close()
}

// =====================================
// Factory Interface
// =====================================

// Factory - pluggable pool-builder. It turns connection metadata into a
// DataSource and later releases it.
type Factory interface {
	CreateDataSource(ctx context.Context, info ConnInfo, attrs PoolAttributes) (DataSource, error)
	CloseDataSource(ds DataSource)
}

// =====================================
// ConnInfo Definition
// =====================================

// ConnInfo - connection metadata for one managed database instance.
// It is built once per factory initialization and never mutated.
type ConnInfo struct {
	Engine   DatabaseType
	Host     string
	Port     int32
	DBName   string
	Username string
	Password string
}

// =====================================
// PoolAttributes Definition
// =====================================

// PoolAttributes - declarative pool overrides. Zero values mean
// "use the builder default".
type PoolAttributes struct {
	MaxConns int32
	// MaxIdleConns caps idle connections where the pool supports the
	// notion (database/sql); pgx pools ignore it.
	MaxIdleConns    int32
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}
