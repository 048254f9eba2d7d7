// SPDX-License-Identifier: MPL-2.0

// Package cueutil compiles a CUE document against an embedded schema and
// decodes it into a Go value.
//
//	//go:embed config_schema.cue
//	var schema []byte
//
//	res, err := cueutil.ParseAndDecode[Config](schema, data, "#Config",
//	    cueutil.WithFilename("config.cue"))
//
// Errors carry the file name and the JSON-style path of the offending field,
// e.g. "config.cue: extensions[1].name: invalid value".
package cueutil
