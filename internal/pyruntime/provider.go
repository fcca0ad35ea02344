// SPDX-License-Identifier: MPL-2.0

package pyruntime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// LambdaExecutionEnvVar is set by the Lambda service to the runtime
// identifier, e.g. "AWS_Lambda_python3.9".
const LambdaExecutionEnvVar = "AWS_EXECUTION_ENV"

// probeScript prints the interpreter's major.minor version.
const probeScript = "import sys; print('%d.%d' % sys.version_info[:2])"

// ErrUnavailable is returned when no provider could determine the runtime.
var ErrUnavailable = errors.New("python runtime identity unavailable")

type (
	// Provider determines the runtime identity a layer targets.
	Provider interface {
		Identity(ctx context.Context) (Identity, error)
	}

	// Static always returns the same identity.
	Static struct {
		ID Identity
	}

	// Env reads the identity from an environment variable such as
	// AWS_EXECUTION_ENV. It fails when the variable is unset or does not
	// name a Python runtime.
	Env struct {
		Var    string
		Lookup func(string) (string, bool)
	}

	// Probe asks a Python interpreter for its version.
	Probe struct {
		// Interpreter is the executable to run, e.g. "python3".
		Interpreter string
		// Args are inserted before the -c flag.
		Args []string
	}

	// Chain tries each provider in order and returns the first identity found.
	Chain []Provider
)

// Identity implements Provider.
func (s Static) Identity(context.Context) (Identity, error) {
	if valid, errs := s.ID.IsValid(); !valid {
		return Identity{}, errs[0]
	}
	return s.ID, nil
}

// NewLambdaEnv returns an Env provider for AWS_EXECUTION_ENV.
func NewLambdaEnv() Env {
	return Env{Var: LambdaExecutionEnvVar, Lookup: os.LookupEnv}
}

// Identity implements Provider.
func (e Env) Identity(context.Context) (Identity, error) {
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	value, ok := lookup(e.Var)
	if !ok || value == "" {
		return Identity{}, fmt.Errorf("%w: %s is not set", ErrUnavailable, e.Var)
	}
	id, err := ParseVersion(value)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %s=%q: %w", ErrUnavailable, e.Var, value, err)
	}
	return id, nil
}

// Identity implements Provider.
func (p Probe) Identity(ctx context.Context) (Identity, error) {
	interpreter := p.Interpreter
	if interpreter == "" {
		interpreter = "python3"
	}
	args := append(append([]string{}, p.Args...), "-c", probeScript)

	cmd := exec.CommandContext(ctx, interpreter, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return Identity{}, fmt.Errorf("%w: probe %s: %s", ErrUnavailable, interpreter, msg)
	}
	return ParseVersion(strings.TrimSpace(stdout.String()))
}

// Identity implements Provider.
func (c Chain) Identity(ctx context.Context) (Identity, error) {
	var errs []error
	for _, p := range c {
		id, err := p.Identity(ctx)
		if err == nil {
			return id, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Identity{}, ErrUnavailable
	}
	return Identity{}, errors.Join(errs...)
}
