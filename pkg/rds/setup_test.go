package rds_test

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcodd23/go-rds-datasource/pkg/configmgr"
	"github.com/marcodd23/go-rds-datasource/pkg/rds"
)

func testSession(t *testing.T) *session.Session {
	t.Helper()

	sess, err := session.NewSession(aws.NewConfig().
		WithCredentials(credentials.NewStaticCredentials("test", "test", "")))
	require.NoError(t, err)

	return sess
}

func testConfig(datasources ...configmgr.DatasourceConfig) configmgr.Config {
	return &configmgr.BaseConfig{
		Name:        "TestApp",
		Environment: "development",
		Version:     "latest",
		Logging:     &configmgr.LoggingConfig{Level: "debug"},
		Aws:         &configmgr.AwsConfig{Region: "eu-central-1"},
		Datasources: datasources,
	}
}

func TestSetupFailsWithoutDatasources(t *testing.T) {
	_, err := rds.Setup(context.Background(), testConfig(), testSession(t), rds.SetupOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no datasources configured")
}

func TestSetupFailsValidationWithoutPassword(t *testing.T) {
	cfg := testConfig(configmgr.DatasourceConfig{
		DbInstanceIdentifier: "test",
	})

	_, err := rds.Setup(context.Background(), cfg, testSession(t), rds.SetupOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Password")
}

func TestSetupFailsValidationWithoutIdentifier(t *testing.T) {
	cfg := testConfig(configmgr.DatasourceConfig{
		Password: "secret",
	})

	_, err := rds.Setup(context.Background(), cfg, testSession(t), rds.SetupOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DbInstanceIdentifier")
}

func TestSetupFailsWithoutRegion(t *testing.T) {
	cfg := &configmgr.BaseConfig{
		Name: "TestApp",
		Aws:  &configmgr.AwsConfig{},
		Datasources: []configmgr.DatasourceConfig{
			{DbInstanceIdentifier: "test", Password: "secret"},
		},
	}

	_, err := rds.Setup(context.Background(), cfg, testSession(t), rds.SetupOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no AWS region configured for datasource 'test'")
}
