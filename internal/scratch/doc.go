// SPDX-License-Identifier: MPL-2.0

// Package scratch manages the invocation-scoped working directories used
// while building a layer.
//
// Every invocation gets its own namespace, <base>/pylayer-<module>-<uuid>,
// holding a download and a cache directory, so concurrent invocations for
// the same module never share files. Namespaces left behind by aborted runs
// are swept on later invocations for the same module.
package scratch
