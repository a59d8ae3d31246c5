package pgxds

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marcodd23/go-rds-datasource/pkg/datasource"
	"github.com/marcodd23/go-rds-datasource/pkg/errorx"
	"github.com/marcodd23/go-rds-datasource/pkg/logx"
)

//###################################
//#     Pgx pool Factory            #
//###################################

// Factory - pool-builder for Postgres family engines backed by pgxpool.
// It implements datasource.Factory
type Factory struct {
	// AppName is used as application_name prefix on every pooled connection.
	AppName string
}

// NewFactory - Factory constructor.
func NewFactory(appName string) *Factory {
	return &Factory{AppName: appName}
}

// PgxDataSource - pooled connection source backed by pgxpool.
// It implements datasource.DataSource
type PgxDataSource struct {
	pool *pgxpool.Pool
	info datasource.ConnInfo
}

// CreateDataSource - build and connect a new pgx connection pool.
func (f *Factory) CreateDataSource(ctx context.Context, info datasource.ConnInfo, attrs datasource.PoolAttributes) (datasource.DataSource, error) {
	if info.Engine != datasource.Postgres {
		return nil, errorx.NewDatabaseError("pgx pool factory supports only the POSTGRES engine family, got: %s", info.Engine)
	}

	poolConfig, err := createConnectionConfiguration(f.AppName, info, attrs)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errorx.NewDatabaseErrorWrapper(err, "Error creating New Connection Pool")
	}

	logx.
		GetLogger().
		LogInfo(ctx, fmt.Sprintf("Created new Connection Pool: DB=%s, HOST=%s, PORT=%d",
			pool.Config().ConnConfig.Database,
			pool.Config().ConnConfig.Host,
			pool.Config().ConnConfig.Port))

	return &PgxDataSource{pool: pool, info: info}, nil
}

// CloseDataSource - close the pool owned by the given data source.
func (f *Factory) CloseDataSource(ds datasource.DataSource) {
	if ds != nil {
		ds.Close()
	}
}

func createConnectionConfiguration(appName string, info datasource.ConnInfo, attrs datasource.PoolAttributes) (*pgxpool.Config, error) {
	poolConfig, _ := pgxpool.ParseConfig("")

	if info.DBName == "" {
		return nil, errorx.NewDatabaseError("Error creating Connection Pool ConnConfig: DB_Name is EMPTY")
	}

	if info.Username == "" {
		return nil, errorx.NewDatabaseError("Error creating Connection Pool ConnConfig: DB_User is EMPTY")
	}

	if info.Password == "" {
		return nil, errorx.NewDatabaseError("Error creating Connection Pool ConnConfig: DB_Password is EMPTY")
	}

	poolConfig.ConnConfig.Host = info.Host
	poolConfig.ConnConfig.Port = uint16(info.Port)
	poolConfig.ConnConfig.Database = info.DBName
	poolConfig.ConnConfig.User = info.Username
	poolConfig.ConnConfig.Password = info.Password

	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}

	poolConfig.ConnConfig.RuntimeParams["application_name"] = fmt.Sprintf("%s-%s", appName, uuid.NewString()[:8])

	// pgxpool has no idle-connection cap; MaxIdleConns only applies to
	// database/sql backed pools.
	if attrs.MaxConns > 0 {
		poolConfig.MaxConns = attrs.MaxConns
	}

	if attrs.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = attrs.ConnMaxLifetime
	}

	if attrs.ConnMaxIdleTime > 0 {
		poolConfig.MaxConnIdleTime = attrs.ConnMaxIdleTime
	}

	return poolConfig, nil
}

// Ping - verify connectivity of the pool.
func (ds *PgxDataSource) Ping(ctx context.Context) error {
	if ds.pool == nil {
		return errorx.NewDatabaseError("error, Connection Pool To DB not initialized")
	}

	return ds.pool.Ping(ctx)
}

// Pool - return the underlying *pgxpool.Pool.
func (ds *PgxDataSource) Pool() any {
	return ds.pool
}

// ConnInfo - return the connection metadata the pool was built from.
func (ds *PgxDataSource) ConnInfo() datasource.ConnInfo {
	return ds.info
}

// Close - close db connection pool.
func (ds *PgxDataSource) Close() {
	if ds.pool != nil {
		ds.pool.Close()
		ds.pool = nil

		logx.GetLogger().LogInfo(context.TODO(), "DB Connection Pool Successfully Closed!")
	}
}
