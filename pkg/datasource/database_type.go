package datasource

import (
	"strings"

	"github.com/marcodd23/go-rds-datasource/pkg/errorx"
)

// DatabaseType - relational engine family of a managed database instance.
type DatabaseType string

const (
	MySQL     DatabaseType = "MYSQL"
	MariaDB   DatabaseType = "MARIADB"
	Postgres  DatabaseType = "POSTGRES"
	Oracle    DatabaseType = "ORACLE"
	SQLServer DatabaseType = "SQLSERVER"
)

// DatabaseTypeForEngine maps the engine string reported by the provider
// onto a DatabaseType. Unknown engines are an error, never a default.
func DatabaseTypeForEngine(engine string) (DatabaseType, error) {
	normalized := strings.ToLower(engine)

	switch {
	case normalized == "mysql", normalized == "aurora", normalized == "aurora-mysql":
		return MySQL, nil
	case normalized == "mariadb":
		return MariaDB, nil
	case normalized == "postgres", normalized == "aurora-postgresql":
		return Postgres, nil
	case strings.HasPrefix(normalized, "oracle-"):
		return Oracle, nil
	case strings.HasPrefix(normalized, "sqlserver-"):
		return SQLServer, nil
	default:
		return "", errorx.NewDatabaseError("unsupported database engine: '%s'", engine)
	}
}
