// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pylayer/pylayer/internal/config"
	"github.com/pylayer/pylayer/internal/issue"
)

// newConfigCommand creates the `pylayer config` command tree.
func newConfigCommand(app *App, g *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage pylayer configuration",
		Long: `Manage pylayer configuration.

Configuration is read from, in order of precedence:
  - PYLAYER_* environment variables, e.g. PYLAYER_PUBLISH_REGION
  - the file given with --config
  - ` + config.DefaultFilePath("") + `
  - ./` + config.LocalConfigFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, g)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if path == "" {
				path = config.DefaultFilePath("")
			}
			_, err := fmt.Fprintln(app.stdout, path)
			return err
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context(), g)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return err
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, g *globalFlags) error {
	cfg, path, err := app.loadConfig(ctx, g)
	if err != nil {
		rendered, renderErr := issue.Get(issue.ConfigLoadFailedId).Render("dark")
		if renderErr == nil {
			fmt.Fprint(app.stderr, rendered)
		}
		return err
	}

	w := app.stdout
	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintf(w, "%s: %s\n", KeyStyle.Render("Scratch root"), cfg.ResolveScratchDir())

	section := func(name string, kv ...string) {
		fmt.Fprintf(w, "\n%s:\n", KeyStyle.Render(name))
		for i := 0; i+1 < len(kv); i += 2 {
			fmt.Fprintf(w, "  %s: %s\n", kv[i], valueOrUnset(kv[i+1]))
		}
	}
	section("scratch", "stale_after", cfg.Scratch.StaleAfter.String())
	section("resolver",
		"command", cfg.Resolver.Command,
		"extra_args", strings.Join(cfg.Resolver.ExtraArgs, " "),
		"index_url", cfg.Resolver.IndexURL,
		"platform", cfg.Resolver.Platform,
		"only_binary", fmt.Sprint(cfg.Resolver.OnlyBinary),
		"timeout", cfg.Resolver.Timeout.String())
	section("runtime",
		"python_version", cfg.Runtime.PythonVersion.String(),
		"prefix_template", cfg.Runtime.PrefixTemplate)
	section("publish",
		"region", cfg.Publish.Region,
		"endpoint_url", cfg.Publish.EndpointURL,
		"description", cfg.Publish.Description,
		"license_info", cfg.Publish.LicenseInfo,
		"architectures", strings.Join(cfg.Publish.ArchitectureStrings(), ", "),
		"s3_bucket", cfg.Publish.S3Bucket,
		"s3_key_prefix", cfg.Publish.S3KeyPrefix,
		"s3_threshold_bytes", fmt.Sprint(cfg.Publish.S3ThresholdBytes))
	section("log", "level", cfg.Log.Level.String(), "format", cfg.Log.Format.String())
	return nil
}

func valueOrUnset(v string) string {
	if v == "" {
		return SubtitleStyle.Render("(not set)")
	}
	return SuccessStyle.Render(v)
}

func initConfig(app *App) error {
	path, created, err := config.CreateDefaultConfig(app.Fs, "")
	if err != nil {
		return issue.WrapWithContext(err, "create configuration", config.ConfigDir())
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s %s\n", WarningStyle.Render("Configuration already exists:"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s %s\n", SuccessStyle.Render("✓ Created"), path)
	return nil
}
