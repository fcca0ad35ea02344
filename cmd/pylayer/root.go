// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for pylayer.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/pylayer/pylayer/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "pylayer",
		Short: "Package a PyPI module as an AWS Lambda layer",
		Long: TitleStyle.Render("pylayer") + SubtitleStyle.Render(" - Package a PyPI module as an AWS Lambda layer") + `

pylayer downloads a module's wheel with pip, moves every file under
python/lib/pythonX.Y/site-packages and publishes the result as a new
Lambda layer version.

` + SubtitleStyle.Render("Examples:") + `
  pylayer publish numpy                       Publish numpy for the detected Python
  pylayer publish "requests==2.32.3" --python-version 3.12
  pylayer publish --event event.json -o json  Publish from a Lambda-style event
  pylayer relocate numpy-2.1.0-*.whl          Relocate a local wheel without publishing
  pylayer lambda                              Serve as the Lambda function handler
  pylayer config init                         Create a default configuration file`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/pylayer/config.cue)")

	rootCmd.AddCommand(
		newPublishCommand(app, g),
		newRelocateCommand(app, g),
		newInspectCommand(app),
		newLambdaCommand(app, g),
		newConfigCommand(app, g),
		newVersionCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// errorHandler skips errors that were already reported and prints
// actionable errors with their suggestions.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		fmt.Fprintln(w, ErrorStyle.Render("Error: ")+ae.Format(false))
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// formatErrorForDisplay formats an error for user display.
// ActionableErrors include their suggestions, and verbose mode adds the chain.
func formatErrorForDisplay(err error, verbose bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verbose)
	}
	return err.Error()
}

func newVersionCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pylayer version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(app.stdout, "pylayer "+getVersionString())
			return err
		},
	}
}
