// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/pylayer/pylayer/internal/app/layer"
)

type publishFlags struct {
	layerName     string
	pythonVersion string
	eventFile     string
	output        string
	verify        bool
}

// newPublishCommand creates the `pylayer publish` command.
func newPublishCommand(app *App, g *globalFlags) *cobra.Command {
	f := &publishFlags{}

	cmd := &cobra.Command{
		Use:   "publish [module]",
		Short: "Download a module and publish it as a Lambda layer",
		Long: `Download a module's wheel with pip, relocate it under the Lambda
site-packages directory and publish it as a new layer version.

The module is a pip requirement such as "numpy" or "numpy==1.26.4". It can
also come from a Lambda-style event file given with --event.

The exit status is 0 when the layer was published and 1 otherwise.`,
		Example: `  pylayer publish numpy
  pylayer publish "numpy==1.26.4" --layer-name numpy-py312 --python-version 3.12
  pylayer publish --event event.json -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, app, g, f, args)
		},
	}

	cmd.Flags().StringVar(&f.layerName, "layer-name", "", "layer name (default <module>_<version>_py<XY>)")
	cmd.Flags().StringVar(&f.pythonVersion, "python-version", "", "target Python version, e.g. 3.12 (default detected)")
	cmd.Flags().StringVar(&f.eventFile, "event", "", "read ModuleName and CustomLayerName from a JSON or CUE event file")
	cmd.Flags().StringVarP(&f.output, "output", "o", string(OutputText), "output format: text, json or toml")
	cmd.Flags().BoolVar(&f.verify, "verify", false, "check every entry's CRC-32 before relocating it")
	return cmd
}

func runPublish(cmd *cobra.Command, app *App, g *globalFlags, f *publishFlags, args []string) error {
	ctx := cmd.Context()

	format := OutputFormat(f.output)
	if valid, errs := format.IsValid(); !valid {
		return errs[0]
	}

	var req layer.Request
	if f.eventFile != "" {
		ev, err := loadEvent(app.Fs, f.eventFile)
		if err != nil {
			return err
		}
		req = ev
	}
	if len(args) == 1 {
		req.ModuleName = args[0]
	}
	if f.layerName != "" {
		req.CustomLayerName = f.layerName
	}

	cfg, _, err := app.loadConfig(ctx, g)
	if err != nil {
		return err
	}
	logger, err := app.newLogger(cfg, g, "")
	if err != nil {
		return err
	}
	svc, err := app.layerService(ctx, cfg, logger, serviceOverrides{
		pythonVersion: f.pythonVersion,
		verify:        f.verify,
	})
	if err != nil {
		return err
	}

	res, buildErr := svc.Build(ctx, req)
	resp := layer.SuccessResponse(res)
	if buildErr != nil {
		resp = layer.ErrorResponse(buildErr)
	}
	if err := writeResponse(app.stdout, resp, format); err != nil {
		return err
	}
	if resp.OK() {
		return nil
	}

	if format == OutputText {
		styled := ""
		if g.verbose {
			styled = SubtitleStyle.Render(formatErrorForDisplay(buildErr, true)) + "\n"
		}
		renderServiceError(app.stderr, newServiceError(buildErr, issueForError(buildErr), styled), logger)
	}
	return &ExitError{Code: 1}
}
