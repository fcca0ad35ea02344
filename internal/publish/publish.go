// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
	"github.com/opencontainers/go-digest"
)

var (
	// ErrPublishFailed is the sentinel error wrapped by PublishError.
	ErrPublishFailed = errors.New("layer publication failed")

	// ErrDigestMismatch is returned when Lambda reports a code hash that
	// differs from the archive that was sent.
	ErrDigestMismatch = errors.New("published code digest mismatch")

	// ErrEmptyContent is returned for a layer without archive bytes.
	ErrEmptyContent = errors.New("layer content is empty")

	// ErrNoStagingBucket is returned when an archive is too large for an
	// inline upload and no S3 bucket is configured.
	ErrNoStagingBucket = errors.New("archive exceeds the inline upload limit and no staging bucket is configured")
)

type (
	// Layer describes one layer version to publish.
	Layer struct {
		Name                    string
		Description             string
		LicenseInfo             string
		CompatibleRuntimes      []string
		CompatibleArchitectures []string
		// Content is the serialized zip archive.
		Content []byte
		// Digest is the sha256 digest of Content. It is computed when empty.
		Digest digest.Digest
	}

	// Published is what the service reports about a new layer version.
	Published struct {
		LayerArn        string
		LayerVersionArn string
		Version         int64
		CodeSize        int64
		CodeSha256      string
	}

	// Publisher creates layer versions.
	Publisher interface {
		Publish(ctx context.Context, layer Layer) (Published, error)
	}

	// PublishError is returned when a layer version could not be created.
	// Code holds the service error code when the failure came from AWS.
	PublishError struct {
		Layer string
		Code  string
		Err   error
	}
)

// newPublishError wraps err, extracting the AWS error code when present.
func newPublishError(layer string, err error) *PublishError {
	pe := &PublishError{Layer: layer, Err: err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		pe.Code = apiErr.ErrorCode()
	}
	return pe
}

// Error implements the error interface for PublishError.
func (e *PublishError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("publish layer %q: %s: %v", e.Layer, e.Code, e.Err)
	}
	return fmt.Sprintf("publish layer %q: %v", e.Layer, e.Err)
}

// Unwrap returns ErrPublishFailed and the underlying cause.
func (e *PublishError) Unwrap() []error {
	return []error{ErrPublishFailed, e.Err}
}
