// SPDX-License-Identifier: MPL-2.0

// Package wheel parses Python binary distribution file names and derives
// the names pylayer gives to the layers built from them.
//
// File names follow the PEP 427 convention
// {distribution}-{version}(-{build tag})?-{python tag}-{abi tag}-{platform tag}.whl.
// Only the first two fields are required; the tags are filled in when the
// name carries all of them.
package wheel
