// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/shell"
)

// DefaultPipCommand runs pip as a module of the default interpreter, which
// avoids depending on a pip executable on PATH.
const DefaultPipCommand = "python3 -m pip"

// pipeWaitDelay bounds how long output pipes are drained after pip is killed.
const pipeWaitDelay = 2 * time.Second

type (
	// PipOptions configures the pip resolver.
	PipOptions struct {
		// Command is the shell-style command line that starts pip, e.g.
		// "python3 -m pip". Environment references are expanded.
		Command string
		// ExtraArgs are appended to every "pip download" invocation.
		ExtraArgs []string
		// IndexURL overrides the package index.
		IndexURL string
		// Platform targets a specific platform tag, e.g. "manylinux2014_x86_64".
		Platform string
		// PythonVersion targets a specific interpreter version, e.g. "3.9".
		PythonVersion string
		// OnlyBinary refuses source distributions.
		OnlyBinary bool
		// Timeout bounds a single download; zero means no bound beyond ctx.
		Timeout time.Duration
		// Logger receives pip's output. Nil disables logging.
		Logger *log.Logger
	}

	// Pip resolves modules with "pip download".
	Pip struct {
		argv []string
		opts PipOptions
	}
)

// NewPip builds a pip resolver. The command line is split with shell
// quoting rules and $VAR references are expanded from the environment.
func NewPip(opts PipOptions) (*Pip, error) {
	command := opts.Command
	if strings.TrimSpace(command) == "" {
		command = DefaultPipCommand
	}
	argv, err := shell.Fields(command, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("parse pip command %q: %w", command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("parse pip command %q: no executable", command)
	}
	return &Pip{argv: argv, opts: opts}, nil
}

// Args returns the full argument vector for req, executable first.
func (p *Pip) Args(req Request) []string {
	args := append([]string{}, p.argv...)
	args = append(args, "download", req.Module,
		"--no-deps",
		"--dest", req.DestDir,
		"--cache-dir", req.CacheDir,
		"--disable-pip-version-check",
	)
	if p.opts.IndexURL != "" {
		args = append(args, "--index-url", p.opts.IndexURL)
	}
	if p.opts.OnlyBinary || p.opts.Platform != "" {
		args = append(args, "--only-binary=:all:")
	}
	if p.opts.Platform != "" {
		args = append(args, "--platform", p.opts.Platform)
	}
	if p.opts.PythonVersion != "" {
		args = append(args, "--python-version", p.opts.PythonVersion)
	}
	return append(args, p.opts.ExtraArgs...)
}

// Download implements Resolver.
func (p *Pip) Download(ctx context.Context, req Request) (Output, error) {
	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}

	args := p.Args(req)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	// pip must not write into a home directory it may not own.
	cmd.Env = append(os.Environ(), "PIP_NO_INPUT=1", "HOME="+req.CacheDir)
	cmd.WaitDelay = pipeWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if p.opts.Logger != nil {
		p.opts.Logger.Debug("running resolver", "argv", args)
	}

	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		if p.opts.Logger != nil {
			p.opts.Logger.Info("pip found a distribution", "module", req.Module)
			p.opts.Logger.Debug("pip output", "stdout", strings.TrimSpace(out.Stdout))
		}
		return out, nil
	}

	resErr := &ResolutionError{Module: req.Module, Diagnostic: strings.TrimSpace(out.Stderr)}
	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		resErr.Err = ctx.Err()
	case errors.As(err, &exitErr):
		resErr.ExitCode = exitErr.ExitCode()
	default:
		resErr.Err = err
	}
	if p.opts.Logger != nil {
		p.opts.Logger.Error("pip was not able to find a module", "module", req.Module, "stderr", resErr.Diagnostic)
	}
	return out, resErr
}
