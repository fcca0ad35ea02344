// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ClientOptions selects the AWS endpoint and region.
type ClientOptions struct {
	// Region overrides the region from the default chain.
	Region string
	// EndpointURL points both clients at an alternative endpoint, such as
	// LocalStack. S3 then uses path-style addressing.
	EndpointURL string
}

// NewClients loads credentials from the default AWS chain and returns Lambda
// and S3 clients sharing that configuration.
func NewClients(ctx context.Context, opts ClientOptions) (*lambda.Client, *s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("load aws config: %w", err)
	}
	lambdaClient, s3Client := NewClientsFromConfig(cfg, opts.EndpointURL)
	return lambdaClient, s3Client, nil
}

// NewClientsFromConfig builds Lambda and S3 clients from an existing AWS
// configuration. A non-empty endpoint overrides the service endpoints.
func NewClientsFromConfig(cfg aws.Config, endpoint string) (*lambda.Client, *s3.Client) {
	lambdaClient := lambda.NewFromConfig(cfg, func(o *lambda.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return lambdaClient, s3Client
}
