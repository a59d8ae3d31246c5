package rds

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/client"
	awsrds "github.com/aws/aws-sdk-go/service/rds"
	"github.com/aws/aws-sdk-go/service/sts"

	"github.com/marcodd23/go-rds-datasource/pkg/configmgr"
	"github.com/marcodd23/go-rds-datasource/pkg/datasource"
	"github.com/marcodd23/go-rds-datasource/pkg/errorx"
	"github.com/marcodd23/go-rds-datasource/pkg/validator"
)

//###################################
//#    Declarative Setup            #
//###################################

// ManagedInstance - everything wired for one datasource config section.
type ManagedInstance struct {
	Identifier string
	Source     *InstanceDataSource
	// ReplicaAware is set instead of plain routing when the section
	// enables read replica support; Source then points at its master.
	ReplicaAware *ReplicaAwareInstanceDataSource
	Status       *InstanceStatus
	// Tags is only wired when the section asks for user tags.
	Tags *InstanceTags
}

// Close - release every pooled resource of this instance.
func (mi *ManagedInstance) Close(ctx context.Context) {
	if mi.ReplicaAware != nil {
		mi.ReplicaAware.Close(ctx)
		return
	}

	mi.Source.Close(ctx)
}

// SetupOptions - cross-cutting options applied to every configured datasource.
type SetupOptions struct {
	// Resolver translates logical identifiers for every section. May be nil.
	Resolver ResourceIdResolver
	// AsyncInit hands initialization off the caller's goroutine; callers
	// then block on DataSource() when they first need the pool.
	AsyncInit bool
}

// Setup translates the declarative datasource sections of the
// configuration into fully wired managed instances: it validates each
// section, builds the control-plane clients, chooses the replica-aware
// variant when requested and optionally attaches the tag reader.
func Setup(ctx context.Context, cfg configmgr.Config, confProvider client.ConfigProvider, opts SetupOptions) ([]*ManagedInstance, error) {
	sections := cfg.GetDatasourceConfigs()
	if len(sections) == 0 {
		return nil, errorx.NewGeneralError("no datasources configured")
	}

	instances := make([]*ManagedInstance, 0, len(sections))

	for _, section := range sections {
		instance, err := setupInstance(ctx, cfg, confProvider, section, opts)
		if err != nil {
			for _, prev := range instances {
				prev.Close(ctx)
			}

			return nil, err
		}

		instances = append(instances, instance)
	}

	return instances, nil
}

func setupInstance(ctx context.Context, cfg configmgr.Config, confProvider client.ConfigProvider, section configmgr.DatasourceConfig, opts SetupOptions) (*ManagedInstance, error) {
	if valErrors := validator.NewValidator().ValidateStruct(section); len(valErrors) > 0 {
		return nil, validator.NewValidationError(valErrors)
	}

	region, err := regionForSection(cfg, section)
	if err != nil {
		return nil, err
	}

	awsConfig := aws.NewConfig().WithRegion(region)
	if cfg.GetAwsConfig().Endpoint != "" {
		awsConfig = awsConfig.WithEndpoint(cfg.GetAwsConfig().Endpoint)
	}

	rdsClient := awsrds.New(confProvider, awsConfig)

	dsOpts := []Option{
		WithAppName(cfg.GetServiceName()),
		WithPoolAttributes(poolAttributesForSection(section)),
	}

	if section.Username != "" {
		dsOpts = append(dsOpts, WithUsername(section.Username))
	}

	if opts.Resolver != nil {
		dsOpts = append(dsOpts, WithResolver(opts.Resolver))
	}

	instance := &ManagedInstance{
		Identifier: section.DbInstanceIdentifier,
		Status:     NewInstanceStatus(rdsClient, section.DbInstanceIdentifier, opts.Resolver),
	}

	if section.UserTags {
		stsClient := sts.New(confProvider, awsConfig)
		instance.Tags = NewInstanceTags(rdsClient, stsClient, section.DbInstanceIdentifier, region, opts.Resolver)
	}

	if section.ReadReplicaSupport {
		replicaAware := NewReplicaAwareInstanceDataSource(rdsClient, section.DbInstanceIdentifier, section.Password, dsOpts...)
		instance.ReplicaAware = replicaAware
		instance.Source = replicaAware.InstanceDataSource

		if opts.AsyncInit {
			replicaAware.InitAsync(ctx)
		} else if err := replicaAware.Init(ctx); err != nil {
			return nil, err
		}

		return instance, nil
	}

	instance.Source = NewInstanceDataSource(rdsClient, section.DbInstanceIdentifier, section.Password, dsOpts...)

	if opts.AsyncInit {
		instance.Source.InitAsync(ctx)
	} else if err := instance.Source.Init(ctx); err != nil {
		return nil, err
	}

	return instance, nil
}

// regionForSection reconciles the per-datasource region override with the
// shared one. The explicit section region wins; having neither is only
// acceptable when a custom endpoint is configured.
func regionForSection(cfg configmgr.Config, section configmgr.DatasourceConfig) (string, error) {
	if section.Region != "" {
		return section.Region, nil
	}

	if cfg.GetAwsConfig().Region != "" {
		return cfg.GetAwsConfig().Region, nil
	}

	if cfg.GetAwsConfig().Endpoint != "" {
		return "", nil
	}

	return "", errorx.NewGeneralError("no AWS region configured for datasource '%s'", section.DbInstanceIdentifier)
}

func poolAttributesForSection(section configmgr.DatasourceConfig) datasource.PoolAttributes {
	if section.Pool == nil {
		return datasource.PoolAttributes{}
	}

	return datasource.PoolAttributes{
		MaxConns:        section.Pool.MaxConns,
		MaxIdleConns:    section.Pool.MaxIdleConns,
		ConnMaxLifetime: time.Duration(section.Pool.ConnMaxLifetimeMinutes) * time.Minute,
		ConnMaxIdleTime: time.Duration(section.Pool.ConnMaxIdleTimeMinutes) * time.Minute,
	}
}
