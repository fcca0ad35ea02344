// SPDX-License-Identifier: MPL-2.0

// Package cueutil validates CUE and JSON documents against embedded schemas.
//
// Every document goes through the same three steps:
//
//  1. Compile the embedded schema
//  2. Compile the user data and unify it with a schema definition
//  3. Validate and decode into a Go value
//
// Errors carry the file name and a JSON-style path to the offending field:
//
//	config.cue: publish.architectures[0]: 2 errors in empty disjunction
//
// # Usage
//
//	//go:embed event_schema.cue
//	var eventSchema []byte
//
//	res, err := cueutil.ParseAndDecode[layer.Request](eventSchema, data, "#Event",
//	    cueutil.WithFilename("event.json"))
package cueutil
