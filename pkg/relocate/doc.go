// SPDX-License-Identifier: MPL-2.0

// Package relocate rewrites the entry names of a zip archive under a fixed
// path prefix.
//
// Entries are copied raw: the compressed bytes, CRC-32, sizes, compression
// method, modification time, external attributes (permission bits), extra
// fields and comments of every entry are carried over unchanged. Only the
// name is rewritten, to <prefix>/<original name>. The output holds exactly
// one entry per input entry, in input order; nothing is merged, dropped or
// deduplicated, so relocating an already relocated archive prefixes it twice.
package relocate
