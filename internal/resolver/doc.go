// SPDX-License-Identifier: MPL-2.0

// Package resolver downloads the binary distribution of a Python module.
//
// The production resolver shells out to pip ("pip download --no-deps") with
// an invocation-scoped destination and cache directory. FindDistribution
// then locates the wheel pip left in the destination.
package resolver
