// Package reference bundles the baseline CMOR tables that ancillary files
// are built from when no reference directory is given.
package reference

import (
	"embed"
	"io/fs"
)

//go:embed *.json
var files embed.FS

// FS returns the bundled reference directory.
func FS() fs.FS {
	return files
}
