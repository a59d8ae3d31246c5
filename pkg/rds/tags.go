package rds

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/arn"
	awsrds "github.com/aws/aws-sdk-go/service/rds"
	"github.com/aws/aws-sdk-go/service/rds/rdsiface"
	"github.com/aws/aws-sdk-go/service/sts"
	"github.com/aws/aws-sdk-go/service/sts/stsiface"
	"github.com/pkg/errors"
)

//###################################
//#    Instance Tags                #
//###################################

// InstanceTags fetches the user tag map of one managed database instance.
// The instance ARN is assembled from the region and the account id of the
// current credentials.
type InstanceTags struct {
	rdsClient  rdsiface.RDSAPI
	stsClient  stsiface.STSAPI
	instanceID string
	region     string
	resolver   ResourceIdResolver
}

// NewInstanceTags - InstanceTags constructor. The resolver may be nil.
func NewInstanceTags(rdsClient rdsiface.RDSAPI, stsClient stsiface.STSAPI, instanceID, region string, resolver ResourceIdResolver) *InstanceTags {
	return &InstanceTags{
		rdsClient:  rdsClient,
		stsClient:  stsClient,
		instanceID: instanceID,
		region:     region,
		resolver:   resolver,
	}
}

// UserTags - tag key/value map of the instance.
func (t *InstanceTags) UserTags(ctx context.Context) (map[string]string, error) {
	physicalID, err := resolvePhysicalID(ctx, t.resolver, t.instanceID)
	if err != nil {
		return nil, err
	}

	identity, err := t.stsClient.GetCallerIdentityWithContext(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, errors.Wrap(err, "error resolving account id for instance ARN")
	}

	instanceARN := arn.ARN{
		Partition: "aws",
		Service:   "rds",
		Region:    t.region,
		AccountID: aws.StringValue(identity.Account),
		Resource:  "db:" + physicalID,
	}

	out, err := t.rdsClient.ListTagsForResourceWithContext(ctx, &awsrds.ListTagsForResourceInput{
		ResourceName: aws.String(instanceARN.String()),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error listing tags for '%s'", instanceARN.String())
	}

	tags := make(map[string]string, len(out.TagList))
	for _, tag := range out.TagList {
		tags[aws.StringValue(tag.Key)] = aws.StringValue(tag.Value)
	}

	return tags, nil
}
