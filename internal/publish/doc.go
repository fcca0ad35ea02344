// SPDX-License-Identifier: MPL-2.0

// Package publish uploads relocated archives as AWS Lambda layer versions.
//
// The Lambda publisher sends small archives inline as ZipFile content and
// stages larger ones in an S3 bucket for the duration of the call.
// The CodeSha256 reported by Lambda is checked against the digest computed
// while the archive was written.
package publish
