package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cli/output"
)

// BuildInfo identifies a cmortables binary.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and build information",
		Long: `Print the cmortables release, the commit and date it was built from,
and the Go toolchain used. With -o json the same fields are printed as an object.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := NewCommandContext(cmd).Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(info)
			}
			r.Printf("cmortables v%s (CMIP7 CMOR table builder)\n", info.Version)
			r.Printf("  commit: %s\n", info.GitCommit)
			r.Printf("  built:  %s\n", info.BuildDate)
			r.Printf("  go:     %s\n", info.GoVersion)
			return nil
		},
	}
}
