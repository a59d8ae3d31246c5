package pgxds

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcodd23/go-rds-datasource/pkg/datasource"
)

func validConnInfo() datasource.ConnInfo {
	return datasource.ConnInfo{
		Engine:   datasource.Postgres,
		Host:     "localhost",
		Port:     5432,
		DBName:   "app-db",
		Username: "app-user",
		Password: "secret",
	}
}

func TestCreateDataSourceRejectsNonPostgresEngine(t *testing.T) {
	factory := NewFactory("test-app")

	info := validConnInfo()
	info.Engine = datasource.MySQL

	ds, err := factory.CreateDataSource(context.Background(), info, datasource.PoolAttributes{})
	require.Error(t, err)
	assert.Nil(t, ds)
	assert.Contains(t, err.Error(), "POSTGRES")
}

func TestCreateConnectionConfigurationValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(info *datasource.ConnInfo)
		wantErr string
	}{
		{
			name:    "missing db name",
			mutate:  func(info *datasource.ConnInfo) { info.DBName = "" },
			wantErr: "DB_Name is EMPTY",
		},
		{
			name:    "missing username",
			mutate:  func(info *datasource.ConnInfo) { info.Username = "" },
			wantErr: "DB_User is EMPTY",
		},
		{
			name:    "missing password",
			mutate:  func(info *datasource.ConnInfo) { info.Password = "" },
			wantErr: "DB_Password is EMPTY",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			info := validConnInfo()
			tc.mutate(&info)

			cfg, err := createConnectionConfiguration("test-app", info, datasource.PoolAttributes{})
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestCreateConnectionConfigurationAppliesPoolAttributes(t *testing.T) {
	attrs := datasource.PoolAttributes{
		MaxConns:        8,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}

	cfg, err := createConnectionConfiguration("test-app", validConnInfo(), attrs)
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.ConnConfig.Host)
	assert.Equal(t, uint16(5432), cfg.ConnConfig.Port)
	assert.Equal(t, "app-db", cfg.ConnConfig.Database)
	assert.Equal(t, "app-user", cfg.ConnConfig.User)
	assert.Equal(t, "secret", cfg.ConnConfig.Password)
	assert.Equal(t, int32(8), cfg.MaxConns)
	// MaxIdleConns has no pgxpool counterpart and must not raise MinConns.
	assert.Zero(t, cfg.MinConns)
	assert.Equal(t, 30*time.Minute, cfg.MaxConnLifetime)
	assert.Equal(t, 5*time.Minute, cfg.MaxConnIdleTime)
	assert.Contains(t, cfg.ConnConfig.RuntimeParams["application_name"], "test-app-")
}
