// SPDX-License-Identifier: MPL-2.0

// Package pyruntime identifies the Python runtime a layer is built for.
//
// The identity (major.minor) determines the site-packages prefix that archive
// entries are relocated under and the compatibility tag the layer is
// published with. It can be pinned in configuration, read from the Lambda
// execution environment, or probed from a local interpreter.
package pyruntime
