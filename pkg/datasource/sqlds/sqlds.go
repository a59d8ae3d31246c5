package sqlds

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/marcodd23/go-rds-datasource/pkg/datasource"
	"github.com/marcodd23/go-rds-datasource/pkg/errorx"
	"github.com/marcodd23/go-rds-datasource/pkg/logx"
)

//###################################
//#   database/sql pool Factory     #
//###################################

// Factory - pool-builder for MySQL family engines backed by database/sql
// with the go-sql-driver/mysql driver.
// It implements datasource.Factory
type Factory struct{}

// NewFactory - Factory constructor.
func NewFactory() *Factory {
	return &Factory{}
}

// SQLDataSource - pooled connection source backed by *sql.DB.
// It implements datasource.DataSource
type SQLDataSource struct {
	db   *sql.DB
	info datasource.ConnInfo
}

// CreateDataSource - open a *sql.DB pool and apply the pool attributes.
func (f *Factory) CreateDataSource(ctx context.Context, info datasource.ConnInfo, attrs datasource.PoolAttributes) (datasource.DataSource, error) {
	if info.Engine != datasource.MySQL && info.Engine != datasource.MariaDB {
		return nil, errorx.NewDatabaseError("sql pool factory supports only the MYSQL/MARIADB engine families, got: %s", info.Engine)
	}

	dsn, err := BuildDSN(info)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errorx.NewDatabaseErrorWrapper(err, "Error creating New Connection Pool")
	}

	if attrs.MaxConns > 0 {
		db.SetMaxOpenConns(int(attrs.MaxConns))
	}

	if attrs.MaxIdleConns > 0 {
		db.SetMaxIdleConns(int(attrs.MaxIdleConns))
	}

	if attrs.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(attrs.ConnMaxLifetime)
	}

	if attrs.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(attrs.ConnMaxIdleTime)
	}

	logx.
		GetLogger().
		LogInfo(ctx, fmt.Sprintf("Created new Connection Pool: DB=%s, HOST=%s, PORT=%d",
			info.DBName, info.Host, info.Port))

	return &SQLDataSource{db: db, info: info}, nil
}

// CloseDataSource - close the pool owned by the given data source.
func (f *Factory) CloseDataSource(ds datasource.DataSource) {
	if ds != nil {
		ds.Close()
	}
}

// BuildDSN - build the mysql driver DSN for an instance endpoint.
// Format: username:password@tcp(host:port)/dbname?params
func BuildDSN(info datasource.ConnInfo) (string, error) {
	if info.DBName == "" {
		return "", errorx.NewDatabaseError("Error creating Connection Pool DSN: DB_Name is EMPTY")
	}

	if info.Username == "" {
		return "", errorx.NewDatabaseError("Error creating Connection Pool DSN: DB_User is EMPTY")
	}

	if info.Password == "" {
		return "", errorx.NewDatabaseError("Error creating Connection Pool DSN: DB_Password is EMPTY")
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		info.Username,
		info.Password,
		info.Host,
		info.Port,
		info.DBName,
	), nil
}

// Ping - verify connectivity of the pool.
func (ds *SQLDataSource) Ping(ctx context.Context) error {
	if ds.db == nil {
		return errorx.NewDatabaseError("error, Connection Pool To DB not initialized")
	}

	return ds.db.PingContext(ctx)
}

// Pool - return the underlying *sql.DB.
func (ds *SQLDataSource) Pool() any {
	return ds.db
}

// ConnInfo - return the connection metadata the pool was built from.
func (ds *SQLDataSource) ConnInfo() datasource.ConnInfo {
	return ds.info
}

// Close - close db connection pool.
func (ds *SQLDataSource) Close() {
	if ds.db != nil {
		if err := ds.db.Close(); err != nil {
			logx.GetLogger().LogWarning(context.TODO(), "Error closing DB Connection Pool", err)
			return
		}

		ds.db = nil

		logx.GetLogger().LogInfo(context.TODO(), "DB Connection Pool Successfully Closed!")
	}
}
