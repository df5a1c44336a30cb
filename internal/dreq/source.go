package dreq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
)

// Export file names inside a version directory.
const (
	VariablesFile   = "variables.json"
	CoordinatesFile = "coordinates.json"
)

// ErrVersionNotFound is returned when no export exists for a request version.
var ErrVersionNotFound = errors.New("data request version not found")

// Source supplies the records of one data request version.
type Source interface {
	Variables(ctx context.Context, version string) (VariableSet, error)
	Coordinates(ctx context.Context, version string) ([]Coordinate, error)
}

// FileSource reads a data request export laid out as
// <root>/<version>/variables.json and <root>/<version>/coordinates.json.
type FileSource struct {
	fsys fs.FS
}

// NewFileSource returns a source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{fsys: os.DirFS(dir)}
}

// NewFSSource returns a source rooted at fsys.
func NewFSSource(fsys fs.FS) *FileSource {
	return &FileSource{fsys: fsys}
}

// Variables loads every variable record of the version, keyed as in the export.
func (s *FileSource) Variables(ctx context.Context, version string) (VariableSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw map[string]Attrs
	if err := s.decode(version, VariablesFile, &raw); err != nil {
		return nil, err
	}
	set := make(VariableSet, len(raw))
	for key, attrs := range raw {
		set[key] = NewVariable(attrs)
	}
	return set, nil
}

// Coordinates loads every coordinate record of the version, ordered by record id.
// Records without a name attribute are named after their id.
func (s *FileSource) Coordinates(ctx context.Context, version string) ([]Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw struct {
		Records map[string]Attrs `json:"records"`
	}
	if err := s.decode(version, CoordinatesFile, &raw); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(raw.Records))
	for id := range raw.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	coords := make([]Coordinate, 0, len(ids))
	for _, id := range ids {
		attrs := raw.Records[id]
		name := attrs.Lookup("name").String()
		if name == "" {
			name = id
		}
		coords = append(coords, Coordinate{ID: id, Name: name, Attrs: attrs})
	}
	return coords, nil
}

func (s *FileSource) decode(version, name string, v any) error {
	if version == "" || !fs.ValidPath(version) {
		return fmt.Errorf("invalid data request version %q", version)
	}
	if _, err := fs.Stat(s.fsys, version); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrVersionNotFound, version)
		}
		return err
	}
	data, err := fs.ReadFile(s.fsys, path.Join(version, name))
	if err != nil {
		return fmt.Errorf("failed to read %s for %s: %w", name, version, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s for %s: %w", name, version, err)
	}
	return nil
}

// StaticSource serves records held in memory, regardless of version.
type StaticSource struct {
	Vars   VariableSet
	Coords []Coordinate
}

// Variables returns a copy of the held variables.
func (s StaticSource) Variables(ctx context.Context, _ string) (VariableSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(VariableSet, len(s.Vars))
	for k, v := range s.Vars {
		out[k] = v
	}
	return out, nil
}

// Coordinates returns the held coordinates.
func (s StaticSource) Coordinates(ctx context.Context, _ string) ([]Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]Coordinate(nil), s.Coords...), nil
}
