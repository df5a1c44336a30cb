package cli

import (
	"errors"

	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/ancil"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/checksum"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/cli/commands"
	"github.com/WCRP-CMIP/cmip7-cmor-tables/internal/table"
)

// Process exit codes.
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitUsage            = 2
	ExitPlaceholder      = 3
	ExitChecksum         = 4
	ExitMissingReference = 5
)

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var usage *commands.UsageError
	var placeholder *table.UnresolvedPlaceholderError
	var mismatch *checksum.MismatchError
	var missing *ancil.MissingReferenceEntryError

	switch {
	case errors.As(err, &usage):
		return ExitUsage
	case errors.As(err, &placeholder):
		return ExitPlaceholder
	case errors.As(err, &mismatch),
		errors.Is(err, checksum.ErrChecksumMissing),
		errors.Is(err, checksum.ErrChecksumExists),
		errors.Is(err, checksum.ErrNoHeader):
		return ExitChecksum
	case errors.As(err, &missing):
		return ExitMissingReference
	}
	return ExitFailure
}
