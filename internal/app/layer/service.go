// SPDX-License-Identifier: MPL-2.0

package layer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/pylayer/pylayer/internal/publish"
	"github.com/pylayer/pylayer/internal/pyruntime"
	"github.com/pylayer/pylayer/internal/resolver"
	"github.com/pylayer/pylayer/internal/scratch"
	"github.com/pylayer/pylayer/pkg/relocate"
	"github.com/pylayer/pylayer/pkg/wheel"
)

const (
	// DefaultDescription is the layer description when none is configured.
	DefaultDescription = "Layer generated by pylayer"
	// DefaultStaleAfter is the age after which abandoned workspaces are swept.
	DefaultStaleAfter = time.Hour
)

// ErrMissingDependency is returned by NewService when a required
// dependency is nil.
var ErrMissingDependency = errors.New("missing service dependency")

type (
	// Dependencies holds everything a Service needs. Resolver and Publisher
	// are required; nil or zero optional fields get defaults.
	Dependencies struct {
		Resolver  resolver.Resolver
		Publisher publish.Publisher

		// Runtime determines the target Python version. Defaults to the
		// Lambda execution environment, then a python3 probe.
		Runtime pyruntime.Provider
		// Layout renders the relocation prefix. Defaults to the Lambda
		// site-packages layout.
		Layout *pyruntime.Layout

		Fs     afero.Fs
		Logger *log.Logger
		Now    func() time.Time

		// ScratchDir is the parent of per-invocation workspaces.
		ScratchDir string
		// StaleAfter is the age after which workspaces left by aborted runs
		// for the same module are removed. Negative disables the sweep.
		StaleAfter time.Duration

		Description   string
		LicenseInfo   string
		Architectures []string
		// Verify checks every entry's CRC-32 before relocating it.
		Verify bool
	}

	// Service builds and publishes layers.
	Service struct {
		deps Dependencies
	}

	// Result describes a published layer.
	Result struct {
		Module      string
		LayerName   string
		Wheel       wheel.Filename
		Runtime     pyruntime.Identity
		ArchiveName string
		Relocation  relocate.Result
		Published   publish.Published
	}
)

// NewService validates deps and fills in defaults.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Resolver == nil {
		return nil, errors.Join(ErrMissingDependency, errors.New("resolver is required"))
	}
	if deps.Publisher == nil {
		return nil, errors.Join(ErrMissingDependency, errors.New("publisher is required"))
	}
	if deps.Runtime == nil {
		deps.Runtime = pyruntime.Chain{pyruntime.NewLambdaEnv(), pyruntime.Probe{}}
	}
	if deps.Layout == nil {
		layout, err := pyruntime.NewLayout("")
		if err != nil {
			return nil, err
		}
		deps.Layout = layout
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	if deps.Logger == nil {
		deps.Logger = log.New(io.Discard)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.ScratchDir == "" {
		deps.ScratchDir = os.TempDir()
	}
	if deps.StaleAfter == 0 {
		deps.StaleAfter = DefaultStaleAfter
	}
	if deps.Description == "" {
		deps.Description = DefaultDescription
	}
	return &Service{deps: deps}, nil
}

// Run builds and publishes the layer for req and reports the outcome as a
// Response. It never returns an error; failures are encoded in the response.
func (s *Service) Run(ctx context.Context, req Request) Response {
	res, err := s.Build(ctx, req)
	if err != nil {
		return ErrorResponse(err)
	}
	return SuccessResponse(res)
}

// Build runs every step for req. Errors are always *Error. The scratch
// workspace is removed before Build returns, whatever the outcome.
//
// A logger stored in ctx with log.WithContext is used instead of
// Dependencies.Logger for this call.
func (s *Service) Build(ctx context.Context, req Request) (res Result, err error) {
	logger := s.deps.Logger
	if l, ok := ctx.Value(log.ContextKey).(*log.Logger); ok {
		logger = l
	}

	module := strings.TrimSpace(req.ModuleName)
	if module == "" {
		logger.Error("no module name in request", "step", "input")
		return Result{}, &Error{Kind: KindMissingInput}
	}
	if strings.HasPrefix(module, "-") {
		logger.Error("module name looks like a resolver option", "step", "input", "module", module)
		return Result{}, &Error{Kind: KindInvalidInput, Module: module}
	}
	logger = logger.With("module", module)
	logger.Info("module name provided", "step", "input")
	if req.CustomLayerName != "" {
		logger.Info("custom layer name provided", "step", "input", "layer", req.CustomLayerName)
	}
	res.Module = module

	ws, err := s.workspace(logger, module)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if closeErr := ws.Close(); closeErr != nil {
			logger.Warn("failed to remove workspace", "step", "cleanup", "error", closeErr)
			return
		}
		logger.Debug("removed workspace", "step", "cleanup", "dir", ws.Root)
	}()

	if _, err := s.deps.Resolver.Download(ctx, resolver.Request{
		Module:   module,
		DestDir:  ws.DownloadDir,
		CacheDir: ws.CacheDir,
	}); err != nil {
		logger.Error("resolver failed", "step", "resolve", "error", err)
		return Result{}, &Error{Kind: KindResolutionFailed, Module: module, Err: err}
	}

	dist, err := resolver.FindDistribution(s.deps.Fs, ws.DownloadDir)
	if err != nil {
		logger.Error("no wheel file downloaded", "step", "locate", "error", err)
		if errors.Is(err, resolver.ErrNoDistribution) {
			return Result{}, &Error{Kind: KindNoArchiveProduced, Module: module, Err: err}
		}
		return Result{}, &Error{Kind: KindWorkspaceFailed, Module: module, Err: err}
	}
	if len(dist.Ignored) > 0 {
		logger.Warn("several wheel files downloaded, using the first by name", "step", "locate", "wheel", dist.Name, "ignored", dist.Ignored)
	}
	logger.Info("wheel file downloaded", "step", "locate", "wheel", dist.Name)

	fn, err := wheel.Parse(dist.Name)
	if err != nil {
		return Result{}, &Error{Kind: KindMalformedName, Module: module, Err: err}
	}
	res.Wheel = fn
	if !fn.RunsOnLinux() {
		logger.Warn("wheel is built for another platform and may not import on Lambda", "step", "locate",
			"wheel", dist.Name, "platform", fn.PlatformTag)
	}

	id, err := s.deps.Runtime.Identity(ctx)
	if err != nil {
		logger.Error("python runtime unknown", "step", "runtime", "error", err)
		return Result{}, &Error{Kind: KindRuntimeUnavailable, Module: module, Err: err}
	}
	prefix, err := s.deps.Layout.Prefix(id)
	if err != nil {
		return Result{}, &Error{Kind: KindRuntimeUnavailable, Module: module, Err: err}
	}
	res.Runtime = id
	logger.Info("relocation prefix derived", "step", "runtime", "python", id.Dotted(), "prefix", prefix)

	res.ArchiveName = wheel.ArchiveName(module, fn, s.deps.Now())
	archivePath := filepath.Join(ws.DownloadDir, res.ArchiveName)
	opts := []relocate.Option{relocate.WithLogger(logger)}
	if s.deps.Verify {
		opts = append(opts, relocate.WithVerify())
	}
	res.Relocation, err = relocate.RelocateFile(s.deps.Fs, dist.Path, archivePath, prefix, opts...)
	if err != nil {
		logger.Error("relocation failed", "step", "relocate", "error", err)
		if errors.Is(err, relocate.ErrMalformedArchive) {
			return Result{}, &Error{Kind: KindMalformedArchive, Module: module, Err: err}
		}
		return Result{}, &Error{Kind: KindRelocationFailed, Module: module, Err: err}
	}
	logger.Info("archive relocated", "step", "relocate", "archive", res.ArchiveName,
		"entries", res.Relocation.Entries, "bytes", res.Relocation.Size, "digest", res.Relocation.Digest)

	if err := s.deps.Fs.Remove(dist.Path); err != nil {
		logger.Warn("failed to remove wheel file", "step", "relocate", "error", err)
	}
	if err := ws.DropCache(); err != nil {
		logger.Warn("failed to remove resolver cache", "step", "relocate", "error", err)
	}

	content, err := afero.ReadFile(s.deps.Fs, archivePath)
	if err != nil {
		return Result{}, &Error{Kind: KindRelocationFailed, Module: module, Err: err}
	}

	res.LayerName = req.CustomLayerName
	if strings.TrimSpace(res.LayerName) == "" {
		res.LayerName = wheel.LayerName(module, fn, id.Compact())
	}

	res.Published, err = s.deps.Publisher.Publish(ctx, publish.Layer{
		Name:                    res.LayerName,
		Description:             s.deps.Description,
		LicenseInfo:             s.deps.LicenseInfo,
		CompatibleRuntimes:      []string{id.CompatibleRuntime()},
		CompatibleArchitectures: s.deps.Architectures,
		Content:                 content,
		Digest:                  res.Relocation.Digest,
	})
	if err != nil {
		logger.Error("publish failed", "step", "publish", "layer", res.LayerName, "error", err)
		return Result{}, &Error{Kind: KindPublishFailed, Module: module, Err: err}
	}
	logger.Info("new layer created", "step", "publish", "layer", res.LayerName, "arn", res.Published.LayerVersionArn)
	return res, nil
}

// workspace sweeps stale workspaces for module and creates a fresh one.
func (s *Service) workspace(logger *log.Logger, module string) (*scratch.Workspace, error) {
	if s.deps.StaleAfter > 0 {
		removed, err := scratch.Sweep(s.deps.Fs, s.deps.ScratchDir, module, s.deps.StaleAfter, s.deps.Now())
		if err != nil {
			logger.Warn("failed to sweep stale workspaces", "step", "workspace", "error", err)
		}
		if len(removed) > 0 {
			logger.Info("removed stale workspaces", "step", "workspace", "dirs", removed)
		}
	}

	ws, err := scratch.New(s.deps.Fs, s.deps.ScratchDir, module)
	if err != nil {
		logger.Error("failed to create workspace", "step", "workspace", "error", err)
		return nil, &Error{Kind: KindWorkspaceFailed, Module: module, Err: err}
	}
	logger.Debug("created workspace", "step", "workspace", "dir", ws.Root)
	return ws, nil
}
