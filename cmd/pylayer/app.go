// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/pylayer/pylayer/internal/app/layer"
	"github.com/pylayer/pylayer/internal/config"
	"github.com/pylayer/pylayer/internal/logging"
	"github.com/pylayer/pylayer/internal/publish"
	"github.com/pylayer/pylayer/internal/pyruntime"
	"github.com/pylayer/pylayer/internal/resolver"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer; every command handler receives it.
	App struct {
		Config       ConfigProvider
		NewResolver  ResolverFactory
		NewPublisher PublisherFactory
		StartLambda  func(handler any)
		Fs           afero.Fs
		stdout       io.Writer
		stderr       io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config       ConfigProvider
		NewResolver  ResolverFactory
		NewPublisher PublisherFactory
		// StartLambda runs the Lambda runtime loop; defaults to lambda.Start.
		StartLambda func(handler any)
		Fs          afero.Fs
		Stdout      io.Writer
		Stderr      io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, string, error)
	}

	// ResolverFactory builds the resolver for a configuration.
	ResolverFactory func(cfg *config.Config, logger *log.Logger) (resolver.Resolver, error)

	// PublisherFactory builds the publisher for a configuration.
	PublisherFactory func(ctx context.Context, cfg *config.Config, logger *log.Logger) (publish.Publisher, error)

	// globalFlags holds the persistent root flags.
	globalFlags struct {
		verbose    bool
		configPath string
	}

	// serviceOverrides are per-invocation settings taken from command flags.
	serviceOverrides struct {
		pythonVersion string
		verify        bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.NewResolver == nil {
		deps.NewResolver = newPipResolver
	}
	if deps.NewPublisher == nil {
		deps.NewPublisher = newLambdaPublisher
	}
	if deps.StartLambda == nil {
		deps.StartLambda = lambda.Start
	}
	if deps.Fs == nil {
		deps.Fs = afero.NewOsFs()
	}
	return &App{
		Config:       deps.Config,
		NewResolver:  deps.NewResolver,
		NewPublisher: deps.NewPublisher,
		StartLambda:  deps.StartLambda,
		Fs:           deps.Fs,
		stdout:       deps.Stdout,
		stderr:       deps.Stderr,
	}
}

// loadConfig loads configuration honoring --config.
func (a *App) loadConfig(ctx context.Context, g *globalFlags) (*config.Config, string, error) {
	return a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: g.configPath, Fs: a.Fs})
}

// newLogger builds the logger for cfg. --verbose forces debug level and an
// explicit format overrides the configured one.
func (a *App) newLogger(cfg *config.Config, g *globalFlags, format config.LogFormat) (*log.Logger, error) {
	level := cfg.Log.Level
	if g.verbose {
		level = config.LogLevelDebug
	}
	if format == "" {
		format = cfg.Log.Format
	}
	return logging.New(logging.Options{
		Level:      level.String(),
		Format:     format.String(),
		Writer:     a.stderr,
		Prefix:     config.AppName,
		Timestamps: true,
	})
}

// layerService assembles a layer.Service from cfg.
func (a *App) layerService(ctx context.Context, cfg *config.Config, logger *log.Logger, o serviceOverrides) (*layer.Service, error) {
	if o.pythonVersion != "" {
		cfg.Runtime.PythonVersion = config.PythonVersion(o.pythonVersion)
	}
	runtime, err := runtimeProvider(cfg)
	if err != nil {
		return nil, err
	}
	layout, err := pyruntime.NewLayout(cfg.Runtime.PrefixTemplate)
	if err != nil {
		return nil, fmt.Errorf("runtime.prefix_template: %w", err)
	}
	staleAfter, err := cfg.Scratch.StaleAfter.Duration()
	if err != nil {
		return nil, err
	}

	res, err := a.NewResolver(cfg, logger)
	if err != nil {
		return nil, err
	}
	pub, err := a.NewPublisher(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return layer.NewService(layer.Dependencies{
		Resolver:      res,
		Publisher:     pub,
		Runtime:       runtime,
		Layout:        layout,
		Fs:            a.Fs,
		Logger:        logger,
		ScratchDir:    cfg.ResolveScratchDir(),
		StaleAfter:    staleAfter,
		Description:   cfg.Publish.Description,
		LicenseInfo:   cfg.Publish.LicenseInfo,
		Architectures: cfg.Publish.ArchitectureStrings(),
		Verify:        o.verify,
	})
}

// runtimeProvider pins the configured Python version, or returns nil to let
// the service detect it.
func runtimeProvider(cfg *config.Config) (pyruntime.Provider, error) {
	id, ok, err := cfg.Runtime.PythonVersion.Identity()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return pyruntime.Static{ID: id}, nil
}

func newPipResolver(cfg *config.Config, logger *log.Logger) (resolver.Resolver, error) {
	timeout, err := cfg.Resolver.Timeout.Duration()
	if err != nil {
		return nil, err
	}
	return resolver.NewPip(resolver.PipOptions{
		Command:       cfg.Resolver.Command,
		ExtraArgs:     cfg.Resolver.ExtraArgs,
		IndexURL:      cfg.Resolver.IndexURL,
		Platform:      cfg.Resolver.Platform,
		PythonVersion: cfg.Runtime.PythonVersion.String(),
		OnlyBinary:    cfg.Resolver.OnlyBinary,
		Timeout:       timeout,
		Logger:        logger,
	})
}

func newLambdaPublisher(ctx context.Context, cfg *config.Config, logger *log.Logger) (publish.Publisher, error) {
	lambdaClient, s3Client, err := publish.NewClients(ctx, publish.ClientOptions{
		Region:      cfg.Publish.Region,
		EndpointURL: cfg.Publish.EndpointURL,
	})
	if err != nil {
		return nil, err
	}
	return publish.NewLambda(lambdaClient, s3Client, publish.LambdaOptions{
		Bucket:      cfg.Publish.S3Bucket,
		KeyPrefix:   cfg.Publish.S3KeyPrefix,
		InlineLimit: cfg.Publish.S3ThresholdBytes,
		Logger:      logger,
	}), nil
}
