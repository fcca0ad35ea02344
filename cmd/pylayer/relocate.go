// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pylayer/pylayer/internal/config"
	"github.com/pylayer/pylayer/internal/issue"
	"github.com/pylayer/pylayer/internal/pyruntime"
	"github.com/pylayer/pylayer/pkg/relocate"
	"github.com/pylayer/pylayer/pkg/wheel"
)

type relocateFlags struct {
	pythonVersion string
	prefix        string
	verify        bool
}

// newRelocateCommand creates the `pylayer relocate` command.
func newRelocateCommand(app *App, g *globalFlags) *cobra.Command {
	f := &relocateFlags{}

	cmd := &cobra.Command{
		Use:   "relocate <wheel> [output.zip]",
		Short: "Relocate a local wheel into a layer archive without publishing",
		Long: `Copy every entry of a wheel into a new zip archive under the Lambda
site-packages prefix. Entry bytes are copied without recompression.

The output defaults to <module>_layer_ver_<version>_<timestamp>.zip next to
the wheel and must not exist.`,
		Example: `  pylayer relocate numpy-2.1.0-cp312-cp312-manylinux_2_17_x86_64.whl --python-version 3.12
  pylayer relocate pkg.whl out.zip --prefix python --verify`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelocate(cmd.Context(), app, g, f, args)
		},
	}

	cmd.Flags().StringVar(&f.pythonVersion, "python-version", "", "target Python version, e.g. 3.12 (default detected)")
	cmd.Flags().StringVar(&f.prefix, "prefix", "", "relocation prefix; overrides --python-version")
	cmd.Flags().BoolVar(&f.verify, "verify", false, "check every entry's CRC-32 while copying")
	return cmd
}

func runRelocate(ctx context.Context, app *App, g *globalFlags, f *relocateFlags, args []string) error {
	src := args[0]

	cfg, _, err := app.loadConfig(ctx, g)
	if err != nil {
		return err
	}
	logger, err := app.newLogger(cfg, g, "")
	if err != nil {
		return err
	}

	prefix, err := relocationPrefix(ctx, cfg, f)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("derive relocation prefix").
			WithSuggestion("Pass --python-version, e.g. --python-version 3.12").
			WithSuggestion("Or pass an explicit --prefix").
			WithIssue(issue.PythonNotFoundId).
			Wrap(err).
			BuildError()
	}

	dst := defaultArchivePath(src, time.Now())
	if len(args) == 2 {
		dst = args[1]
	}

	opts := []relocate.Option{relocate.WithLogger(logger)}
	if f.verify {
		opts = append(opts, relocate.WithVerify())
	}
	res, err := relocate.RelocateFile(app.Fs, src, dst, prefix, opts...)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("relocate wheel").
			WithResource(src).
			WithSuggestion("Check the file with 'pylayer inspect " + src + "'").
			WithIssue(issue.MalformedWheelId).
			Wrap(err).
			BuildError()
	}

	fmt.Fprintln(app.stdout, SuccessStyle.Render("✓ ")+fmt.Sprintf("Relocated %d entries under %s", res.Entries, prefix))
	fmt.Fprintf(app.stdout, "  %s %s\n", KeyStyle.Render("Archive:"), dst)
	fmt.Fprintf(app.stdout, "  %s %d bytes (%d uncompressed)\n", KeyStyle.Render("Size:"), res.Size, res.UncompressedBytes)
	fmt.Fprintf(app.stdout, "  %s %s\n", KeyStyle.Render("Digest:"), res.Digest)
	return nil
}

// relocationPrefix returns --prefix, or the configured layout rendered for
// the pinned or detected Python version.
func relocationPrefix(ctx context.Context, cfg *config.Config, f *relocateFlags) (relocate.Prefix, error) {
	if f.prefix != "" {
		p := relocate.Prefix(f.prefix)
		if valid, errs := p.IsValid(); !valid {
			return "", errs[0]
		}
		return p, nil
	}

	if f.pythonVersion != "" {
		cfg.Runtime.PythonVersion = config.PythonVersion(f.pythonVersion)
	}
	provider, err := runtimeProvider(cfg)
	if err != nil {
		return "", err
	}
	if provider == nil {
		provider = pyruntime.Chain{pyruntime.NewLambdaEnv(), pyruntime.Probe{}}
	}
	id, err := provider.Identity(ctx)
	if err != nil {
		return "", err
	}
	layout, err := pyruntime.NewLayout(cfg.Runtime.PrefixTemplate)
	if err != nil {
		return "", err
	}
	return layout.Prefix(id)
}

// defaultArchivePath names the output after the wheel, next to it.
func defaultArchivePath(src string, now time.Time) string {
	base := filepath.Base(src)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + "_layer.zip"
	if fn, err := wheel.Parse(base); err == nil {
		name = wheel.ArchiveName(fn.Distribution, fn, now)
	}
	return filepath.Join(filepath.Dir(src), name)
}
