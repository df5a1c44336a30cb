// Package main provides the cmortables CLI.
package main

import (
	"os"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
