// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"bytes"
	"context"
	_ "crypto/sha256" // registers digest.SHA256
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
)

// DefaultInlineLimit is the largest archive sent as inline ZipFile content.
const DefaultInlineLimit int64 = 50 << 20

type (
	// LambdaAPI is the subset of the Lambda client the publisher calls.
	LambdaAPI interface {
		PublishLayerVersion(ctx context.Context, in *lambda.PublishLayerVersionInput, optFns ...func(*lambda.Options)) (*lambda.PublishLayerVersionOutput, error)
	}

	// S3API is the subset of the S3 client used for staging.
	S3API interface {
		PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
		DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	}

	// LambdaOptions configures a Lambda publisher.
	LambdaOptions struct {
		// Bucket receives archives larger than InlineLimit.
		Bucket string
		// KeyPrefix is prepended to staged object keys.
		KeyPrefix string
		// InlineLimit is the largest archive uploaded inline. Zero selects
		// DefaultInlineLimit.
		InlineLimit int64
		// Logger receives progress output. Nil disables logging.
		Logger *log.Logger
	}

	// Lambda publishes layers with the PublishLayerVersion API.
	Lambda struct {
		client LambdaAPI
		s3     S3API
		opts   LambdaOptions
	}
)

// NewLambda creates a Lambda publisher. s3Client may be nil when no staging
// bucket is configured.
func NewLambda(client LambdaAPI, s3Client S3API, opts LambdaOptions) *Lambda {
	if opts.InlineLimit <= 0 {
		opts.InlineLimit = DefaultInlineLimit
	}
	return &Lambda{client: client, s3: s3Client, opts: opts}
}

// Publish implements Publisher.
func (l *Lambda) Publish(ctx context.Context, layer Layer) (Published, error) {
	if len(layer.Content) == 0 {
		return Published{}, newPublishError(layer.Name, ErrEmptyContent)
	}
	if layer.Digest == "" {
		layer.Digest = digest.FromBytes(layer.Content)
	}

	content, cleanup, err := l.content(ctx, layer)
	if err != nil {
		return Published{}, newPublishError(layer.Name, err)
	}
	defer cleanup()

	in := &lambda.PublishLayerVersionInput{
		LayerName: aws.String(layer.Name),
		Content:   content,
	}
	if layer.Description != "" {
		in.Description = aws.String(layer.Description)
	}
	if layer.LicenseInfo != "" {
		in.LicenseInfo = aws.String(layer.LicenseInfo)
	}
	for _, r := range layer.CompatibleRuntimes {
		in.CompatibleRuntimes = append(in.CompatibleRuntimes, lambdatypes.Runtime(r))
	}
	for _, a := range layer.CompatibleArchitectures {
		in.CompatibleArchitectures = append(in.CompatibleArchitectures, lambdatypes.Architecture(a))
	}

	out, err := l.client.PublishLayerVersion(ctx, in)
	if err != nil {
		return Published{}, newPublishError(layer.Name, err)
	}

	pub := Published{
		LayerArn:        aws.ToString(out.LayerArn),
		LayerVersionArn: aws.ToString(out.LayerVersionArn),
		Version:         out.Version,
	}
	if out.Content != nil {
		pub.CodeSize = out.Content.CodeSize
		pub.CodeSha256 = aws.ToString(out.Content.CodeSha256)
	}

	if pub.CodeSha256 != "" {
		want, err := CodeSha256(layer.Digest)
		if err != nil {
			return pub, newPublishError(layer.Name, err)
		}
		if pub.CodeSha256 != want {
			return pub, newPublishError(layer.Name,
				fmt.Errorf("%w: sent %s, lambda reports %s for %s", ErrDigestMismatch, want, pub.CodeSha256, pub.LayerVersionArn))
		}
	}

	if l.opts.Logger != nil {
		l.opts.Logger.Info("published layer version", "layer", layer.Name, "arn", pub.LayerVersionArn, "version", pub.Version)
	}
	return pub, nil
}

// content builds the upload descriptor, staging the archive in S3 when it
// exceeds the inline limit. The returned cleanup removes the staged object.
func (l *Lambda) content(ctx context.Context, layer Layer) (*lambdatypes.LayerVersionContentInput, func(), error) {
	size := int64(len(layer.Content))
	if size <= l.opts.InlineLimit {
		return &lambdatypes.LayerVersionContentInput{ZipFile: layer.Content}, func() {}, nil
	}
	if l.opts.Bucket == "" {
		return nil, nil, fmt.Errorf("%w: %d > %d bytes", ErrNoStagingBucket, size, l.opts.InlineLimit)
	}
	if l.s3 == nil {
		return nil, nil, fmt.Errorf("staging bucket %q configured without an S3 client", l.opts.Bucket)
	}

	key := path.Join(l.opts.KeyPrefix, fmt.Sprintf("%s-%s.zip", layer.Name, uuid.NewString()))
	if _, err := l.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(l.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(layer.Content),
		ContentLength: aws.Int64(size),
	}); err != nil {
		return nil, nil, fmt.Errorf("stage archive in s3://%s/%s: %w", l.opts.Bucket, key, err)
	}
	if l.opts.Logger != nil {
		l.opts.Logger.Debug("staged archive", "bucket", l.opts.Bucket, "key", key, "bytes", size)
	}

	cleanup := func() {
		// The staged object is only needed until PublishLayerVersion returns.
		_, err := l.s3.DeleteObject(context.WithoutCancel(ctx), &s3.DeleteObjectInput{
			Bucket: aws.String(l.opts.Bucket),
			Key:    aws.String(key),
		})
		if err != nil && l.opts.Logger != nil {
			l.opts.Logger.Warn("failed to delete staged archive", "bucket", l.opts.Bucket, "key", key, "error", err)
		}
	}
	return &lambdatypes.LayerVersionContentInput{
		S3Bucket: aws.String(l.opts.Bucket),
		S3Key:    aws.String(key),
	}, cleanup, nil
}

// CodeSha256 converts a sha256 digest into the base64 form Lambda reports.
func CodeSha256(d digest.Digest) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	if d.Algorithm() != digest.SHA256 {
		return "", fmt.Errorf("unsupported digest algorithm %q", d.Algorithm())
	}
	raw, err := hex.DecodeString(d.Encoded())
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
