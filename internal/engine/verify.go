package engine

import (
	"fmt"
	"os"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/checksum"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/schema"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/table"
)

// Check is the outcome of verifying one table file.
type Check struct {
	Path     string
	Kind     schema.Kind
	Checksum string
	Err      error
}

// OK reports whether the file passed.
func (c Check) OK() bool {
	return c.Err == nil
}

// Verifier re-checks written table files.
type Verifier struct {
	Signer checksum.Signer
	// Validator is optional; without it only checksums are checked.
	Validator *schema.Validator
}

// VerifyFile checks the checksum of the table at path, then its schema.
func (v Verifier) VerifyFile(path string) Check {
	c := Check{Path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		c.Err = fmt.Errorf("failed to read table: %w", err)
		return c
	}
	tree, err := table.Decode(data)
	if err != nil {
		c.Err = fmt.Errorf("failed to decode table: %w", err)
		return c
	}
	c.Kind = schema.KindOf(tree)
	if header, ok := tree[checksum.HeaderKey].(map[string]any); ok {
		c.Checksum, _ = header[checksum.Key].(string)
	}
	if err := v.Signer.Verify(tree); err != nil {
		c.Err = err
		return c
	}
	if v.Validator != nil {
		c.Err = v.Validator.Validate(c.Kind, tree)
	}
	return c
}

// VerifyFiles checks every path in order.
func (v Verifier) VerifyFiles(paths []string) []Check {
	checks := make([]Check, 0, len(paths))
	for _, p := range paths {
		checks = append(checks, v.VerifyFile(p))
	}
	return checks
}
