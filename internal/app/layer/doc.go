// SPDX-License-Identifier: MPL-2.0

// Package layer builds and publishes a Lambda layer for one PyPI module.
//
// Service.Run downloads the module's wheel into an invocation-scoped scratch
// workspace, relocates its entries under the runtime's site-packages prefix,
// publishes the result and always removes the workspace. Failures are
// reported as a Response carrying a status code and an error kind tag, in
// the shape returned by the Lambda handler.
package layer
