package testutil

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/reference"
)

// ReferenceFS returns a copy of the bundled reference directory with extra
// files added or replaced. A nil extra value removes the file.
func ReferenceFS(t testing.TB, extra map[string][]byte) fstest.MapFS {
	t.Helper()

	fsys := fstest.MapFS{}
	err := fs.WalkDir(reference.FS(), ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(reference.FS(), path)
		if err != nil {
			return err
		}
		fsys[path] = &fstest.MapFile{Data: data}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to copy reference files: %v", err)
	}

	for name, data := range extra {
		if data == nil {
			delete(fsys, name)
			continue
		}
		fsys[name] = &fstest.MapFile{Data: data}
	}
	return fsys
}
