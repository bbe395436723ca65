// Package main implements the tabloader command line tool.
package main

import (
	"fmt"
	"os"

	apperrors "github.com/tabloader/tabloader/internal/errors"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if apperrors.IsRetryable(err) {
			fmt.Fprintln(os.Stderr, "The failure is transient; retrying may succeed.")
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error to the process exit status by its category.
func exitCode(err error) int {
	switch apperrors.GetCategory(err) {
	case apperrors.ErrCategoryValidation:
		return 2
	case apperrors.ErrCategoryFile:
		return 3
	case apperrors.ErrCategoryDataset, apperrors.ErrCategoryStorage:
		return 4
	case apperrors.ErrCategoryDatabase:
		return 5
	default:
		return 1
	}
}
