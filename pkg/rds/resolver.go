package rds

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/cloudformation"
	"github.com/aws/aws-sdk-go/service/cloudformation/cloudformationiface"
	"github.com/pkg/errors"
)

//###################################
//#    Resource Id Resolver         #
//###################################

// ResourceIdResolver translates a logical instance name into the physical
// identifier registered with the provider. Used in environments where
// physical names are generated per deployment (e.g. stack-based setups).
type ResourceIdResolver interface {
	ResolveToPhysicalResourceId(ctx context.Context, logicalID string) (string, error)
}

// StaticResolver - map backed resolver. Names without a mapping pass
// through unchanged.
type StaticResolver map[string]string

// ResolveToPhysicalResourceId - return the mapped physical id, or the
// logical id itself when no mapping exists.
func (r StaticResolver) ResolveToPhysicalResourceId(_ context.Context, logicalID string) (string, error) {
	if physicalID, ok := r[logicalID]; ok {
		return physicalID, nil
	}

	return logicalID, nil
}

//###################################
//#  CloudFormation Resolver        #
//###################################

// CloudFormationResolver resolves a logical name as a stack resource of
// one CloudFormation stack. Names that are not resources of the stack
// pass through unchanged, so fixed instance identifiers keep working.
type CloudFormationResolver struct {
	client    cloudformationiface.CloudFormationAPI
	stackName string
}

// NewCloudFormationResolver - CloudFormationResolver constructor.
func NewCloudFormationResolver(client cloudformationiface.CloudFormationAPI, stackName string) *CloudFormationResolver {
	return &CloudFormationResolver{
		client:    client,
		stackName: stackName,
	}
}

// ResolveToPhysicalResourceId - look up the physical resource id of the
// stack resource with the given logical id.
func (r *CloudFormationResolver) ResolveToPhysicalResourceId(ctx context.Context, logicalID string) (string, error) {
	out, err := r.client.DescribeStackResourceWithContext(ctx, &cloudformation.DescribeStackResourceInput{
		StackName:         aws.String(r.stackName),
		LogicalResourceId: aws.String(logicalID),
	})
	if err != nil {
		var aerr awserr.Error
		// The stack exists but has no resource with this logical id.
		if errors.As(err, &aerr) && aerr.Code() == "ValidationError" {
			return logicalID, nil
		}

		return "", errors.Wrapf(err, "error resolving stack resource '%s' in stack '%s'", logicalID, r.stackName)
	}

	if out.StackResourceDetail == nil || out.StackResourceDetail.PhysicalResourceId == nil {
		return logicalID, nil
	}

	return *out.StackResourceDetail.PhysicalResourceId, nil
}
