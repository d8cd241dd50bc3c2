// Package schemas holds the JSON Schemas for chunk set input files and evaluation reports.
package schemas

import "embed"

// Files contains every *.schema.json in this directory.
//
//go:embed *.schema.json
var Files embed.FS
