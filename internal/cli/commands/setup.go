package commands

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/checksum"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cli/config"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cli/output"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/dreq"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/engine"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the config and logger
// stored on the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// NewEngine creates an engine for version writing into outputDir.
func (c *CommandContext) NewEngine(version, outputDir string) (*engine.Engine, error) {
	if err := c.Cfg.ValidateDirectories(); err != nil {
		return nil, err
	}
	header, err := c.Cfg.HeaderTemplate(time.Now())
	if err != nil {
		return nil, err
	}

	engineCfg := engine.Config{
		Version:           version,
		OutputDir:         outputDir,
		ReportDir:         c.Cfg.ReportDir,
		Source:            dreq.NewFileSource(c.Cfg.DataRequestDir),
		TablePrefix:       c.Cfg.TablePrefix,
		Header:            &header,
		Canonical:         checksum.Canonical(c.Cfg.Canonical),
		BlankComments:     c.Cfg.BlankComments,
		BlankCellMeasures: c.Cfg.BlankCellMeasures,
		ValidateOutput:    c.Cfg.ValidateOutput,
		Logger:            c.Logger,
		Progress:          c.Renderer,
	}
	if c.Cfg.ReferenceFilePath != "" {
		engineCfg.Reference = os.DirFS(c.Cfg.ReferenceFilePath)
	}

	eng, err := engine.New(engineCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return eng, nil
}

// UsageError marks a malformed command line.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return e.Err.Error() }

func (e *UsageError) Unwrap() error { return e.Err }

// usageArgs wraps an argument validator so its failures are usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &UsageError{Err: err}
		}
		return nil
	}
}
