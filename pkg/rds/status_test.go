package rds_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	awsrds "github.com/aws/aws-sdk-go/service/rds"
	"github.com/aws/aws-sdk-go/service/rds/rdsiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcodd23/go-rds-datasource/pkg/rds"
)

type describeResult struct {
	status string
	err    error
}

// sequenceRDSClient serves a fixed sequence of describe results, repeating
// the last one once the sequence is exhausted.
type sequenceRDSClient struct {
	mu      sync.Mutex
	idx     int
	results []describeResult
	rdsiface.RDSAPI
}

func (m *sequenceRDSClient) DescribeDBInstancesWithContext(aws.Context, *awsrds.DescribeDBInstancesInput, ...request.Option) (*awsrds.DescribeDBInstancesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := m.results[m.idx]
	if m.idx < len(m.results)-1 {
		m.idx++
	}

	if result.err != nil {
		return nil, result.err
	}

	return &awsrds.DescribeDBInstancesOutput{
		DBInstances: []*awsrds.DBInstance{{DBInstanceStatus: aws.String(result.status)}},
	}, nil
}

func TestStatusWatcherReportsTransitionsAndSurvivesPollErrors(t *testing.T) {
	client := &sequenceRDSClient{
		results: []describeResult{
			{status: "available"},
			{err: awserr.New("Throttling", "rate exceeded", nil)},
			{status: "rebooting"},
			{status: "rebooting"},
			{status: "available"},
		},
	}

	var mu sync.Mutex

	var transitions []bool

	watcher := rds.NewStatusWatcher(
		rds.NewInstanceStatus(client, "test", nil),
		5*time.Millisecond,
		func(_ context.Context, available bool) {
			mu.Lock()
			defer mu.Unlock()
			transitions = append(transitions, available)
		})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		watcher.Watch(ctx)
	}()

	// available -> (poll error skipped) -> rebooting -> available; the
	// repeated "rebooting" must not fire the callback again.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(transitions) >= 3
	}, 5*time.Second, 5*time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on context cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false, true}, transitions)
}
