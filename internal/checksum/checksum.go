// Package checksum signs and verifies table documents. The digest covers the
// whole document with the header checksum removed, so any edit to a signed
// document without re-signing is detected.
package checksum

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/pyjson"
)

// Document keys.
const (
	HeaderKey = "Header"
	Key       = "checksum"
	Prefix    = "md5: "
)

var (
	// ErrChecksumExists is returned when signing a signed document without
	// permission to overwrite.
	ErrChecksumExists = errors.New("checksum already exists")
	// ErrChecksumMissing is returned when verifying an unsigned document.
	ErrChecksumMissing = errors.New("no checksum to validate")
	// ErrNoHeader is returned when the document has no Header object.
	ErrNoHeader = errors.New("document has no Header object")
)

// MismatchError reports a stored checksum that does not match the content.
type MismatchError struct {
	Stored   string
	Computed string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected %q, calculated %q", e.Stored, e.Computed)
}

// Canonical selects the serialization that is hashed.
type Canonical string

const (
	// Python hashes the bytes of Python's json.dumps(obj, sort_keys=True),
	// which keeps checksums compatible with tables produced by the CMOR
	// tooling.
	Python Canonical = "python"
	// JCS hashes the RFC 8785 canonical form.
	JCS Canonical = "jcs"
)

// ParseCanonical validates a canonical form name. The empty string selects
// Python.
func ParseCanonical(s string) (Canonical, error) {
	switch Canonical(s) {
	case "", Python:
		return Python, nil
	case JCS:
		return JCS, nil
	}
	return "", fmt.Errorf("unknown canonical form %q (want %s or %s)", s, Python, JCS)
}

// Signer computes and checks document checksums.
type Signer struct {
	Canonical Canonical
	// Overwrite allows Sign to replace an existing checksum.
	Overwrite bool
}

// Sign stores the checksum of doc in its header and returns it.
func (s Signer) Sign(doc map[string]any) (string, error) {
	header, err := headerOf(doc)
	if err != nil {
		return "", err
	}
	if _, ok := header[Key]; ok && !s.Overwrite {
		return "", ErrChecksumExists
	}
	sum, err := s.Compute(doc)
	if err != nil {
		return "", err
	}
	header[Key] = sum
	return sum, nil
}

// Verify recomputes the checksum of doc and compares it with the stored one.
func (s Signer) Verify(doc map[string]any) error {
	header, err := headerOf(doc)
	if err != nil {
		return err
	}
	raw, ok := header[Key]
	if !ok {
		return ErrChecksumMissing
	}
	stored, _ := raw.(string)
	computed, err := s.Compute(doc)
	if err != nil {
		return err
	}
	if stored != computed {
		return &MismatchError{Stored: stored, Computed: computed}
	}
	return nil
}

// Compute returns the checksum of doc with any stored checksum left out.
// doc is not modified.
func (s Signer) Compute(doc map[string]any) (string, error) {
	header, err := headerOf(doc)
	if err != nil {
		return "", err
	}
	stripped := make(map[string]any, len(doc))
	for k, v := range doc {
		stripped[k] = v
	}
	h := make(map[string]any, len(header))
	for k, v := range header {
		if k != Key {
			h[k] = v
		}
	}
	stripped[HeaderKey] = h

	data, err := s.canonicalize(stripped)
	if err != nil {
		return "", fmt.Errorf("failed to serialize document: %w", err)
	}
	sum := md5.Sum(data)
	return Prefix + hex.EncodeToString(sum[:]), nil
}

func (s Signer) canonicalize(v any) ([]byte, error) {
	switch s.Canonical {
	case "", Python:
		return pyjson.Marshal(v)
	case JCS:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return jcs.Transform(data)
	}
	return nil, fmt.Errorf("unknown canonical form %q", s.Canonical)
}

func headerOf(doc map[string]any) (map[string]any, error) {
	header, ok := doc[HeaderKey].(map[string]any)
	if !ok {
		return nil, ErrNoHeader
	}
	return header, nil
}

// Sign signs doc with the Python canonical form, replacing any existing
// checksum.
func Sign(doc map[string]any) (string, error) {
	return Signer{Canonical: Python, Overwrite: true}.Sign(doc)
}

// Verify checks doc with the Python canonical form.
func Verify(doc map[string]any) error {
	return Signer{Canonical: Python}.Verify(doc)
}
