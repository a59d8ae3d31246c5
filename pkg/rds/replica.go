package rds

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/rds/rdsiface"

	"github.com/marcodd23/go-rds-datasource/pkg/datasource"
	"github.com/marcodd23/go-rds-datasource/pkg/logx"
)

//###################################
//#  Replica Aware Data Source      #
//###################################

// ReplicaAwareInstanceDataSource builds, next to the master pool, one
// pooled connection source per read replica registered for the instance.
// Read-only work is handed out round-robin over the replicas, falling
// back to the master when the instance has none.
type ReplicaAwareInstanceDataSource struct {
	*InstanceDataSource

	replicas     []datasource.DataSource
	next         atomic.Uint32
	closeAllOnce sync.Once

	// allInitOnce guards the full master+replica sequence; allReady is
	// closed only once the replica pools exist, so DataSource and Reader
	// never observe a partially built replica set.
	allInitOnce sync.Once
	allReady    chan struct{}
	allInitErr  error
}

// NewReplicaAwareInstanceDataSource - ReplicaAwareInstanceDataSource constructor.
func NewReplicaAwareInstanceDataSource(client rdsiface.RDSAPI, instanceID, password string, opts ...Option) *ReplicaAwareInstanceDataSource {
	return &ReplicaAwareInstanceDataSource{
		InstanceDataSource: NewInstanceDataSource(client, instanceID, password, opts...),
		allReady:           make(chan struct{}),
	}
}

// Init builds the master pool and then one pool per read replica. It runs
// the sequence at most once; later calls return the first outcome.
func (ds *ReplicaAwareInstanceDataSource) Init(ctx context.Context) error {
	ds.allInitOnce.Do(func() {
		defer close(ds.allReady)
		ds.allInitErr = ds.createAll(ctx)
	})

	<-ds.allReady

	return ds.allInitErr
}

// InitAsync runs Init off the caller's goroutine. The outcome is surfaced
// by DataSource and Reader.
func (ds *ReplicaAwareInstanceDataSource) InitAsync(ctx context.Context) {
	go func() {
		if err := ds.Init(ctx); err != nil {
			logx.GetLogger().LogError(ctx, fmt.Sprintf("async initialization of data source '%s' failed", ds.instanceID), err)
		}
	}()
}

func (ds *ReplicaAwareInstanceDataSource) createAll(ctx context.Context) error {
	if err := ds.InstanceDataSource.Init(ctx); err != nil {
		return err
	}

	for _, replicaID := range ds.instance.ReadReplicaDBInstanceIdentifiers {
		replica, err := ds.createReplica(ctx, aws.StringValue(replicaID))
		if err != nil {
			ds.closeReplicas()
			return err
		}

		ds.replicas = append(ds.replicas, replica)
	}

	logx.GetLogger().LogInfo(ctx, fmt.Sprintf("Instance '%s' initialized with %d read replica(s)", ds.instanceID, len(ds.replicas)))

	return nil
}

func (ds *ReplicaAwareInstanceDataSource) createReplica(ctx context.Context, replicaID string) (datasource.DataSource, error) {
	instance, err := describeInstance(ctx, ds.client, nil, replicaID)
	if err != nil {
		return nil, err
	}

	info, err := ds.connInfoForInstance(instance)
	if err != nil {
		return nil, err
	}

	// Replicas report no DBName of their own.
	if info.DBName == "" {
		info.DBName = aws.StringValue(ds.instance.DBName)
	}

	return ds.factory.CreateDataSource(ctx, info, ds.poolAttrs)
}

// DataSource blocks until master and replica pools are built and returns
// the master pool or the initialization error.
func (ds *ReplicaAwareInstanceDataSource) DataSource(ctx context.Context) (datasource.DataSource, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-ds.allReady:
	}

	if ds.allInitErr != nil {
		return nil, ds.allInitErr
	}

	return ds.InstanceDataSource.DataSource(ctx)
}

// Master - the read-write pool of the master instance.
func (ds *ReplicaAwareInstanceDataSource) Master(ctx context.Context) (datasource.DataSource, error) {
	return ds.DataSource(ctx)
}

// Reader - a pool suitable for read-only work. Round-robins over the read
// replicas and falls back to the master when none exist.
func (ds *ReplicaAwareInstanceDataSource) Reader(ctx context.Context) (datasource.DataSource, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-ds.allReady:
	}

	if ds.allInitErr != nil {
		return nil, ds.allInitErr
	}

	if len(ds.replicas) == 0 {
		return ds.InstanceDataSource.DataSource(ctx)
	}

	idx := ds.next.Add(1)

	return ds.replicas[int(idx-1)%len(ds.replicas)], nil
}

// Replicas - number of read replica pools currently held. Zero until
// initialization completes.
func (ds *ReplicaAwareInstanceDataSource) Replicas() int {
	select {
	case <-ds.allReady:
		return len(ds.replicas)
	default:
		return 0
	}
}

// Close releases the replica pools and then the master pool. When
// initialization never completed there are no replica pools to release.
func (ds *ReplicaAwareInstanceDataSource) Close(ctx context.Context) {
	ds.closeAllOnce.Do(func() {
		select {
		case <-ds.allReady:
			ds.closeReplicas()
		default:
		}
	})

	ds.InstanceDataSource.Close(ctx)
}

func (ds *ReplicaAwareInstanceDataSource) closeReplicas() {
	for _, replica := range ds.replicas {
		ds.factory.CloseDataSource(replica)
	}

	ds.replicas = nil
}
