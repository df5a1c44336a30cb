package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/checksum"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cli/output"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/engine"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/schema"
)

// VerifyOptions holds options for the verify command.
type VerifyOptions struct {
	SkipSchema bool
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand() *cobra.Command {
	opts := &VerifyOptions{}

	cmd := &cobra.Command{
		Use:   "verify <file>...",
		Short: "Verify the checksums of produced tables",
		Long: `Recompute the md5 checksum of each table and compare it with the one
stored in its Header, then validate the table against its JSON schema.

The canonical form used for hashing follows --canonical and must match the
one the tables were built with.`,
		Example: `  # Verify every table of a build
  cmortables verify tables/*.json

  # Checksums only
  cmortables verify --skip-schema tables/CMIP7_ocean.json`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.SkipSchema, "skip-schema", false, "Only verify checksums")

	return cmd
}

type checkResult struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	Checksum string `json:"checksum"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

func runVerify(cmd *cobra.Command, opts *VerifyOptions, paths []string) error {
	c := NewCommandContext(cmd)
	canonical, err := checksum.ParseCanonical(c.Cfg.Canonical)
	if err != nil {
		return err
	}

	v := engine.Verifier{Signer: checksum.Signer{Canonical: canonical}}
	if !opts.SkipSchema {
		if v.Validator, err = schema.NewValidator(); err != nil {
			return fmt.Errorf("failed to load table schemas: %w", err)
		}
	}

	checks := v.VerifyFiles(paths)
	var firstErr error
	failed := 0
	results := make([]checkResult, 0, len(checks))
	for _, check := range checks {
		res := checkResult{Path: check.Path, Kind: string(check.Kind), Checksum: check.Checksum, OK: check.OK()}
		if !check.OK() {
			failed++
			res.Error = check.Err.Error()
			if firstErr == nil {
				firstErr = check.Err
			}
			c.Logger.Debug("verification failed", "file", check.Path, "error", check.Err)
		}
		results = append(results, res)
	}

	r := c.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			detail := res.Checksum
			if !res.OK {
				detail = res.Error
			}
			r.StatusLine(res.Path, res.OK, detail)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d tables failed verification: %w", failed, len(checks), firstErr)
	}
	if r.EffectiveMode() != output.ModeJSON {
		r.Success(fmt.Sprintf("%d tables verified", len(checks)))
	}
	return nil
}
