package rds_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	awsrds "github.com/aws/aws-sdk-go/service/rds"
	"github.com/aws/aws-sdk-go/service/rds/rdsiface"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcodd23/go-rds-datasource/pkg/datasource"
	"github.com/marcodd23/go-rds-datasource/pkg/errorx"
	"github.com/marcodd23/go-rds-datasource/pkg/rds"
)

//###################################
//#    Mocks                        #
//###################################

type mockRDSClient struct {
	mu                sync.Mutex
	describeCallCount int
	describeInputs    []*awsrds.DescribeDBInstancesInput
	describeOutputs   map[string][]*awsrds.DescribeDBInstancesOutput
	describeErrs      map[string]error
	rdsiface.RDSAPI
}

func newMockRDSClient() *mockRDSClient {
	return &mockRDSClient{
		describeOutputs: map[string][]*awsrds.DescribeDBInstancesOutput{},
		describeErrs:    map[string]error{},
	}
}

func (m *mockRDSClient) onDescribe(instanceID string, outputs ...*awsrds.DescribeDBInstancesOutput) {
	m.describeOutputs[instanceID] = outputs
}

func (m *mockRDSClient) DescribeDBInstancesWithContext(_ aws.Context, input *awsrds.DescribeDBInstancesInput, _ ...request.Option) (*awsrds.DescribeDBInstancesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.describeCallCount++
	m.describeInputs = append(m.describeInputs, input)

	id := aws.StringValue(input.DBInstanceIdentifier)

	if err, ok := m.describeErrs[id]; ok {
		return nil, err
	}

	outputs, ok := m.describeOutputs[id]
	if !ok || len(outputs) == 0 {
		return nil, fmt.Errorf("unexpected call to DescribeDBInstances: %v", input)
	}

	out := outputs[0]
	if len(outputs) > 1 {
		m.describeOutputs[id] = outputs[1:]
	}

	return out, nil
}

type mockDataSource struct {
	info   datasource.ConnInfo
	closed int
}

func (m *mockDataSource) Ping(context.Context) error { return nil }

func (m *mockDataSource) Pool() any { return nil }

func (m *mockDataSource) ConnInfo() datasource.ConnInfo { return m.info }

func (m *mockDataSource) Close() { m.closed++ }

type mockFactory struct {
	created     []datasource.ConnInfo
	attrs       []datasource.PoolAttributes
	closeCount  int
	createErr   error
	dataSources []*mockDataSource
}

func (m *mockFactory) CreateDataSource(_ context.Context, info datasource.ConnInfo, attrs datasource.PoolAttributes) (datasource.DataSource, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}

	m.created = append(m.created, info)
	m.attrs = append(m.attrs, attrs)

	ds := &mockDataSource{info: info}
	m.dataSources = append(m.dataSources, ds)

	return ds, nil
}

func (m *mockFactory) CloseDataSource(ds datasource.DataSource) {
	m.closeCount++

	if mock, ok := ds.(*mockDataSource); ok {
		mock.Close()
	}
}

func describeOutputForInstance(id, status, engine, masterUsername, dbName, host string, port int64, replicaIDs ...string) *awsrds.DescribeDBInstancesOutput {
	instance := &awsrds.DBInstance{
		DBInstanceIdentifier: aws.String(id),
		DBInstanceStatus:     aws.String(status),
		DBName:               aws.String(dbName),
		Engine:               aws.String(engine),
		MasterUsername:       aws.String(masterUsername),
		Endpoint: &awsrds.Endpoint{
			Address: aws.String(host),
			Port:    aws.Int64(port),
		},
	}

	for _, replicaID := range replicaIDs {
		instance.ReadReplicaDBInstanceIdentifiers = append(instance.ReadReplicaDBInstanceIdentifiers, aws.String(replicaID))
	}

	return &awsrds.DescribeDBInstancesOutput{
		DBInstances: []*awsrds.DBInstance{instance},
	}
}

//###################################
//#    Tests                        #
//###################################

func TestInitNoInstanceFoundReportsInstanceNotFound(t *testing.T) {
	client := newMockRDSClient()
	client.describeErrs["test"] = awserr.New(awsrds.ErrCodeDBInstanceNotFoundFault, "foo", nil)

	source := rds.NewInstanceDataSource(client, "test", "secret", rds.WithFactory(&mockFactory{}))

	err := source.Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database instance found with identifier: 'test'")

	var notFound *errorx.InstanceNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestInitWithResolverUsesResolvedName(t *testing.T) {
	client := newMockRDSClient()
	client.onDescribe("bar", describeOutputForInstance("bar", "available", "mysql", "admin", "test", "localhost", 3306))

	factory := &mockFactory{}
	source := rds.NewInstanceDataSource(client, "test", "secret",
		rds.WithFactory(factory),
		rds.WithResolver(rds.StaticResolver{"test": "bar"}),
	)

	require.NoError(t, source.Init(context.Background()))

	require.Len(t, client.describeInputs, 1)
	assert.Equal(t, "bar", aws.StringValue(client.describeInputs[0].DBInstanceIdentifier))

	require.Len(t, factory.created, 1)
	assert.Equal(t, datasource.ConnInfo{
		Engine:   datasource.MySQL,
		Host:     "localhost",
		Port:     3306,
		DBName:   "test",
		Username: "admin",
		Password: "secret",
	}, factory.created[0])
}

func TestInitNoUsernameSetUsesUsernameFromMetadata(t *testing.T) {
	client := newMockRDSClient()
	client.onDescribe("test", describeOutputForInstance("test", "available", "mysql", "admin", "test", "localhost", 3306))

	factory := &mockFactory{}
	source := rds.NewInstanceDataSource(client, "test", "secret", rds.WithFactory(factory))

	require.NoError(t, source.Init(context.Background()))

	ds, err := source.DataSource(context.Background())
	require.NoError(t, err)
	require.NotNil(t, ds)

	require.Len(t, factory.created, 1)
	assert.Equal(t, "admin", factory.created[0].Username)
}

func TestInitCustomUsernameOverridesMetadata(t *testing.T) {
	client := newMockRDSClient()
	client.onDescribe("test", describeOutputForInstance("test", "available", "mysql", "admin", "test", "localhost", 3306))

	factory := &mockFactory{}
	source := rds.NewInstanceDataSource(client, "test", "secret",
		rds.WithFactory(factory),
		rds.WithUsername("superAdmin"),
	)

	require.NoError(t, source.Init(context.Background()))

	require.Len(t, factory.created, 1)
	assert.Equal(t, "superAdmin", factory.created[0].Username)
	assert.Equal(t, "secret", factory.created[0].Password)
}

func TestCloseReleasesDataSourceExactlyOnce(t *testing.T) {
	client := newMockRDSClient()
	client.onDescribe("test", describeOutputForInstance("test", "available", "mysql", "admin", "test", "localhost", 3306))

	factory := &mockFactory{}
	source := rds.NewInstanceDataSource(client, "test", "secret", rds.WithFactory(factory))

	require.NoError(t, source.Init(context.Background()))

	source.Close(context.Background())
	source.Close(context.Background())

	assert.Equal(t, 1, factory.closeCount)
	require.Len(t, factory.dataSources, 1)
	assert.Equal(t, 1, factory.dataSources[0].closed)
}

func TestCloseWithoutInitDoesNothing(t *testing.T) {
	factory := &mockFactory{}
	source := rds.NewInstanceDataSource(newMockRDSClient(), "test", "secret", rds.WithFactory(factory))

	source.Close(context.Background())

	assert.Zero(t, factory.closeCount)
}

func TestStatusReflectsSuccessiveProviderResponses(t *testing.T) {
	client := newMockRDSClient()
	client.onDescribe("test",
		&awsrds.DescribeDBInstancesOutput{DBInstances: []*awsrds.DBInstance{{DBInstanceStatus: aws.String("available")}}},
		&awsrds.DescribeDBInstancesOutput{DBInstances: []*awsrds.DBInstance{{DBInstanceStatus: aws.String("rebooting")}}},
	)

	status := rds.NewInstanceStatus(client, "test", nil)

	available, err := status.IsAvailable(context.Background())
	require.NoError(t, err)
	assert.True(t, available)

	available, err = status.IsAvailable(context.Background())
	require.NoError(t, err)
	assert.False(t, available)
}

func TestStatusIsCaseSensitive(t *testing.T) {
	client := newMockRDSClient()
	client.onDescribe("test",
		&awsrds.DescribeDBInstancesOutput{DBInstances: []*awsrds.DBInstance{{DBInstanceStatus: aws.String("Available")}}},
	)

	status := rds.NewInstanceStatus(client, "test", nil)

	available, err := status.IsAvailable(context.Background())
	require.NoError(t, err)
	assert.False(t, available)
}

func TestAsyncInitDataSourceBlocksUntilReady(t *testing.T) {
	client := newMockRDSClient()
	client.onDescribe("test", describeOutputForInstance("test", "available", "mysql", "admin", "test", "localhost", 3306))

	factory := &mockFactory{}
	source := rds.NewInstanceDataSource(client, "test", "secret", rds.WithFactory(factory))

	source.InitAsync(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ds, err := source.DataSource(ctx)
	require.NoError(t, err)
	require.NotNil(t, ds)
	assert.Equal(t, "localhost", ds.ConnInfo().Host)
}

func TestAsyncInitSurfacesErrorThroughDataSource(t *testing.T) {
	client := newMockRDSClient()
	client.describeErrs["test"] = awserr.New(awsrds.ErrCodeDBInstanceNotFoundFault, "foo", nil)

	source := rds.NewInstanceDataSource(client, "test", "secret", rds.WithFactory(&mockFactory{}))
	source.InitAsync(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := source.DataSource(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database instance found with identifier: 'test'")
}

func TestDataSourceHonorsContextCancellation(t *testing.T) {
	source := rds.NewInstanceDataSource(newMockRDSClient(), "test", "secret", rds.WithFactory(&mockFactory{}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := source.DataSource(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInitUnknownEngineFails(t *testing.T) {
	client := newMockRDSClient()
	client.onDescribe("test", describeOutputForInstance("test", "available", "neptune", "admin", "test", "localhost", 8182))

	source := rds.NewInstanceDataSource(client, "test", "secret", rds.WithFactory(&mockFactory{}))

	err := source.Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database engine")
}

func TestInitPropagatesOtherProviderErrors(t *testing.T) {
	client := newMockRDSClient()
	client.describeErrs["test"] = awserr.New("Throttling", "rate exceeded", nil)

	source := rds.NewInstanceDataSource(client, "test", "secret", rds.WithFactory(&mockFactory{}))

	err := source.Init(context.Background())
	require.Error(t, err)

	var notFound *errorx.InstanceNotFoundError
	assert.False(t, errors.As(err, &notFound))
	assert.Contains(t, err.Error(), "Throttling")
}
