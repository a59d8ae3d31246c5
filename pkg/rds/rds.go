package rds

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	awsrds "github.com/aws/aws-sdk-go/service/rds"
	"github.com/aws/aws-sdk-go/service/rds/rdsiface"
	"github.com/pkg/errors"

	"github.com/marcodd23/go-rds-datasource/pkg/datasource"
	"github.com/marcodd23/go-rds-datasource/pkg/datasource/pgxds"
	"github.com/marcodd23/go-rds-datasource/pkg/datasource/sqlds"
	"github.com/marcodd23/go-rds-datasource/pkg/errorx"
	"github.com/marcodd23/go-rds-datasource/pkg/logx"
)

const defaultAppName = "go-rds-datasource"

//###################################
//#    Instance Data Source         #
//###################################

// InstanceDataSource builds a pooled connection source for one managed
// database instance. It resolves the logical instance identifier, queries
// the control plane for connection metadata and hands that metadata to a
// pluggable pool-builder. Initialization runs at most once; the pooled
// source is released through the same builder on Close.
type InstanceDataSource struct {
	client     rdsiface.RDSAPI
	instanceID string
	password   string
	username   string
	appName    string
	resolver   ResourceIdResolver
	factory    datasource.Factory
	poolAttrs  datasource.PoolAttributes

	initOnce  sync.Once
	closeOnce sync.Once
	ready     chan struct{}
	initErr   error
	source    datasource.DataSource
	instance  *awsrds.DBInstance
}

// Option - InstanceDataSource configuration option.
type Option func(*InstanceDataSource)

// WithUsername overrides the administrative username reported by the provider.
func WithUsername(username string) Option {
	return func(ds *InstanceDataSource) {
		ds.username = username
	}
}

// WithResolver sets the indirection layer translating the logical instance
// identifier into the physical one registered with the provider.
func WithResolver(resolver ResourceIdResolver) Option {
	return func(ds *InstanceDataSource) {
		ds.resolver = resolver
	}
}

// WithFactory sets the pool-builder. When unset the builder is picked by
// the engine family reported by the provider.
func WithFactory(factory datasource.Factory) Option {
	return func(ds *InstanceDataSource) {
		ds.factory = factory
	}
}

// WithPoolAttributes sets the declarative pool overrides handed to the
// pool-builder.
func WithPoolAttributes(attrs datasource.PoolAttributes) Option {
	return func(ds *InstanceDataSource) {
		ds.poolAttrs = attrs
	}
}

// WithAppName sets the application name used by the default pool-builders.
func WithAppName(appName string) Option {
	return func(ds *InstanceDataSource) {
		ds.appName = appName
	}
}

// NewInstanceDataSource - InstanceDataSource constructor.
func NewInstanceDataSource(client rdsiface.RDSAPI, instanceID, password string, opts ...Option) *InstanceDataSource {
	ds := &InstanceDataSource{
		client:     client,
		instanceID: instanceID,
		password:   password,
		appName:    defaultAppName,
		ready:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(ds)
	}

	return ds
}

// Init resolves the instance identifier, describes the instance and builds
// the pooled connection source. It runs the sequence at most once; later
// calls return the first outcome.
func (ds *InstanceDataSource) Init(ctx context.Context) error {
	ds.initOnce.Do(func() {
		defer close(ds.ready)
		ds.source, ds.initErr = ds.createInstance(ctx)
	})

	<-ds.ready

	return ds.initErr
}

// InitAsync runs Init off the caller's goroutine. The outcome is surfaced
// by DataSource.
func (ds *InstanceDataSource) InitAsync(ctx context.Context) {
	go func() {
		if err := ds.Init(ctx); err != nil {
			logx.GetLogger().LogError(ctx, fmt.Sprintf("async initialization of data source '%s' failed", ds.instanceID), err)
		}
	}()
}

// DataSource blocks until initialization completes and returns the pooled
// connection source or the initialization error.
func (ds *InstanceDataSource) DataSource(ctx context.Context) (datasource.DataSource, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-ds.ready:
		return ds.source, ds.initErr
	}
}

// Close releases the pooled connection source through the pool-builder
// that created it, exactly once.
func (ds *InstanceDataSource) Close(ctx context.Context) {
	ds.closeOnce.Do(func() {
		if ds.source == nil {
			return
		}

		ds.factory.CloseDataSource(ds.source)
		logx.GetLogger().LogInfo(ctx, fmt.Sprintf("Released data source for instance '%s'", ds.instanceID))
	})
}

func (ds *InstanceDataSource) createInstance(ctx context.Context) (datasource.DataSource, error) {
	instance, err := describeInstance(ctx, ds.client, ds.resolver, ds.instanceID)
	if err != nil {
		return nil, err
	}

	ds.instance = instance

	info, err := ds.connInfoForInstance(instance)
	if err != nil {
		return nil, err
	}

	if ds.factory == nil {
		ds.factory, err = defaultFactoryForEngine(info.Engine, ds.appName)
		if err != nil {
			return nil, err
		}
	}

	return ds.factory.CreateDataSource(ctx, info, ds.poolAttrs)
}

// describeInstance issues the control-plane lookup for one identifier,
// translating it through the resolver first.
func describeInstance(ctx context.Context, client rdsiface.RDSAPI, resolver ResourceIdResolver, instanceID string) (*awsrds.DBInstance, error) {
	physicalID, err := resolvePhysicalID(ctx, resolver, instanceID)
	if err != nil {
		return nil, err
	}

	out, err := client.DescribeDBInstancesWithContext(ctx, &awsrds.DescribeDBInstancesInput{
		DBInstanceIdentifier: aws.String(physicalID),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == awsrds.ErrCodeDBInstanceNotFoundFault {
			return nil, errorx.NewInstanceNotFoundErrorWrapper(err, "no database instance found with identifier: '%s'", instanceID)
		}

		return nil, errors.Wrapf(err, "error describing database instance '%s'", physicalID)
	}

	if len(out.DBInstances) == 0 {
		return nil, errorx.NewInstanceNotFoundError("no database instance found with identifier: '%s'", instanceID)
	}

	return out.DBInstances[0], nil
}

// connInfoForInstance maps the provider response into the immutable
// connection record handed to the pool-builder. The explicit username wins
// over the administrative user reported by the provider.
func (ds *InstanceDataSource) connInfoForInstance(instance *awsrds.DBInstance) (datasource.ConnInfo, error) {
	engine, err := datasource.DatabaseTypeForEngine(aws.StringValue(instance.Engine))
	if err != nil {
		return datasource.ConnInfo{}, err
	}

	if instance.Endpoint == nil {
		return datasource.ConnInfo{}, errorx.NewGeneralError("database instance '%s' has no endpoint yet", aws.StringValue(instance.DBInstanceIdentifier))
	}

	username := ds.username
	if username == "" {
		username = aws.StringValue(instance.MasterUsername)
	}

	return datasource.ConnInfo{
		Engine:   engine,
		Host:     aws.StringValue(instance.Endpoint.Address),
		Port:     int32(aws.Int64Value(instance.Endpoint.Port)),
		DBName:   aws.StringValue(instance.DBName),
		Username: username,
		Password: ds.password,
	}, nil
}

func defaultFactoryForEngine(engine datasource.DatabaseType, appName string) (datasource.Factory, error) {
	switch engine {
	case datasource.Postgres:
		return pgxds.NewFactory(appName), nil
	case datasource.MySQL, datasource.MariaDB:
		return sqlds.NewFactory(), nil
	default:
		return nil, errorx.NewGeneralError("no default pool factory for engine family %s, set one explicitly", engine)
	}
}

func resolvePhysicalID(ctx context.Context, resolver ResourceIdResolver, logicalID string) (string, error) {
	if resolver == nil {
		return logicalID, nil
	}

	physicalID, err := resolver.ResolveToPhysicalResourceId(ctx, logicalID)
	if err != nil {
		return "", errors.Wrapf(err, "error resolving physical id for '%s'", logicalID)
	}

	return physicalID, nil
}
