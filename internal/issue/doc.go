// SPDX-License-Identifier: MPL-2.0

// Package issue holds pylayer's user-facing errors: ActionableError, which
// carries the failed operation and remediation hints, and a catalog of
// Markdown explanations rendered with glamour for the most common failures.
package issue
