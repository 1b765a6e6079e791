package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/josephgoksu/ideaflow/internal/branch"
	"github.com/josephgoksu/ideaflow/internal/memory"
	"github.com/josephgoksu/ideaflow/internal/util"
)

// HandleFatalError handles unrecoverable errors that should terminate the application.
func HandleFatalError(userMsg string, technicalErr error) {
	PrintError(userMsg, technicalErr)
	os.Exit(1)
}

// PrintError prints an error message without exiting, allowing for recovery.
func PrintError(userMsg string, technicalErr error) {
	if viper.GetBool("verbose") && technicalErr != nil {
		// In verbose mode, print the detailed, underlying technical error.
		fmt.Fprintf(os.Stderr, "Error: %v\n", technicalErr)
	} else {
		fmt.Fprintln(os.Stderr, userMsg)
	}
}

// LogError logs an error without printing to stderr if verbose mode is off.
func LogError(msg string, err error) {
	if viper.GetBool("verbose") {
		if err != nil {
			fmt.Fprintf(os.Stderr, "[DEBUG] %s: %v\n", msg, err)
		} else {
			fmt.Fprintf(os.Stderr, "[DEBUG] %s\n", msg)
		}
	}
}

// userMessage turns known errors into a short hint for the terminal.
func userMessage(err error) string {
	switch {
	case errors.Is(err, util.ErrAmbiguousID):
		return fmt.Sprintf("%v\nUse a longer prefix.", err)
	case errors.Is(err, util.ErrNotFound), errors.Is(err, memory.ErrNotFound):
		return fmt.Sprintf("%v\nRun `ideaflow idea list` to see IDs.", err)
	case errors.Is(err, branch.ErrNoProjectPath):
		return "This idea has no project folder yet.\nRun `ideaflow idea scaffold <idea>` first."
	case errors.Is(err, branch.ErrRootBranch):
		return "The root branch cannot be deleted."
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
