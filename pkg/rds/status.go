package rds

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/service/rds/rdsiface"

	"github.com/marcodd23/go-rds-datasource/pkg/logx"
)

// statusAvailable - the only status under which the provider serves
// connections. The compare is case-sensitive, matching the provider API.
const statusAvailable = "available"

//###################################
//#    Instance Status              #
//###################################

// InstanceStatus polls the control plane for the current status of one
// managed database instance.
type InstanceStatus struct {
	client     rdsiface.RDSAPI
	instanceID string
	resolver   ResourceIdResolver
}

// NewInstanceStatus - InstanceStatus constructor. The resolver may be nil.
func NewInstanceStatus(client rdsiface.RDSAPI, instanceID string, resolver ResourceIdResolver) *InstanceStatus {
	return &InstanceStatus{
		client:     client,
		instanceID: instanceID,
		resolver:   resolver,
	}
}

// Status - current instance status string as reported by the provider.
func (s *InstanceStatus) Status(ctx context.Context) (string, error) {
	instance, err := describeInstance(ctx, s.client, s.resolver, s.instanceID)
	if err != nil {
		return "", err
	}

	if instance.DBInstanceStatus == nil {
		return "", nil
	}

	return *instance.DBInstanceStatus, nil
}

// IsAvailable - whether the instance currently reports the "available" status.
func (s *InstanceStatus) IsAvailable(ctx context.Context) (bool, error) {
	status, err := s.Status(ctx)
	if err != nil {
		return false, err
	}

	return status == statusAvailable, nil
}

//###################################
//#    Status Watcher               #
//###################################

// StatusWatcher polls the instance status on a fixed interval and reports
// availability transitions.
type StatusWatcher struct {
	status   *InstanceStatus
	interval time.Duration
	onChange func(ctx context.Context, available bool)
}

// NewStatusWatcher - StatusWatcher constructor. onChange may be nil, in
// which case transitions are only logged.
func NewStatusWatcher(status *InstanceStatus, interval time.Duration, onChange func(ctx context.Context, available bool)) *StatusWatcher {
	return &StatusWatcher{
		status:   status,
		interval: interval,
		onChange: onChange,
	}
}

// Watch blocks, polling until the context is cancelled. Poll errors are
// logged and do not stop the loop.
func (w *StatusWatcher) Watch(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var known bool

	var lastAvailable bool

	for {
		select {
		case <-ctx.Done():
			logx.GetLogger().LogInfo(ctx, fmt.Sprintf("Stopped watching status of instance '%s'", w.status.instanceID))
			return
		case <-ticker.C:
			available, err := w.status.IsAvailable(ctx)
			if err != nil {
				logx.GetLogger().LogWarning(ctx, fmt.Sprintf("Error polling status of instance '%s'", w.status.instanceID), err)
				continue
			}

			if known && available == lastAvailable {
				continue
			}

			known = true
			lastAvailable = available

			logx.GetLogger().LogInfo(ctx, fmt.Sprintf("Instance '%s' availability changed: available=%t", w.status.instanceID, available))

			if w.onChange != nil {
				w.onChange(ctx, available)
			}
		}
	}
}
