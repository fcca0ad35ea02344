// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/pylayer/pylayer/internal/issue"
	"github.com/pylayer/pylayer/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "pylayer"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// LocalConfigFile is looked up in the working directory when the user
	// config file does not exist.
	LocalConfigFile = AppName + "." + ConfigFileExt
	// EnvPrefix prefixes environment overrides: PYLAYER_PUBLISH_REGION.
	EnvPrefix = "PYLAYER"
)

//go:embed config_schema.cue
var configSchema []byte

// ConfigDir returns the pylayer configuration directory,
// $XDG_CONFIG_HOME/pylayer or the platform equivalent.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// CacheDir returns the pylayer cache directory, used as the default scratch
// root outside Lambda.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// DefaultFilePath returns the user config file path inside dir, or inside
// ConfigDir when dir is empty.
func DefaultFilePath(dir string) string {
	if dir == "" {
		dir = ConfigDir()
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
}

// ResolveScratchDir returns the configured scratch root, or /tmp inside the
// Lambda execution environment, or the user cache directory elsewhere.
func (c *Config) ResolveScratchDir() string {
	if c.ScratchDir != "" {
		return c.ScratchDir
	}
	if InLambda() {
		return "/tmp"
	}
	return CacheDir()
}

// InLambda reports whether the process runs inside the Lambda execution
// environment.
func InLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" || os.Getenv("AWS_LAMBDA_RUNTIME_API") != ""
}

// setDefaults registers every key so that Unmarshal and AutomaticEnv see it.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("scratch_dir", d.ScratchDir)
	v.SetDefault("scratch.stale_after", string(d.Scratch.StaleAfter))
	v.SetDefault("resolver.command", d.Resolver.Command)
	v.SetDefault("resolver.extra_args", d.Resolver.ExtraArgs)
	v.SetDefault("resolver.index_url", d.Resolver.IndexURL)
	v.SetDefault("resolver.platform", d.Resolver.Platform)
	v.SetDefault("resolver.only_binary", d.Resolver.OnlyBinary)
	v.SetDefault("resolver.timeout", string(d.Resolver.Timeout))
	v.SetDefault("runtime.python_version", string(d.Runtime.PythonVersion))
	v.SetDefault("runtime.prefix_template", d.Runtime.PrefixTemplate)
	v.SetDefault("publish.region", d.Publish.Region)
	v.SetDefault("publish.endpoint_url", d.Publish.EndpointURL)
	v.SetDefault("publish.description", d.Publish.Description)
	v.SetDefault("publish.license_info", d.Publish.LicenseInfo)
	v.SetDefault("publish.architectures", d.Publish.ArchitectureStrings())
	v.SetDefault("publish.s3_bucket", d.Publish.S3Bucket)
	v.SetDefault("publish.s3_key_prefix", d.Publish.S3KeyPrefix)
	v.SetDefault("publish.s3_threshold_bytes", d.Publish.S3ThresholdBytes)
	v.SetDefault("log.level", string(d.Log.Level))
	v.SetDefault("log.format", string(d.Log.Format))
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state. It returns the config and the file it came from, if any.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	resolvedPath := ""
	if opts.ConfigFilePath != "" {
		// An explicit path must exist.
		if !fileExists(fs, opts.ConfigFilePath) {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Run 'pylayer config init' to create a default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		resolvedPath = opts.ConfigFilePath
	} else {
		for _, candidate := range []string{DefaultFilePath(opts.ConfigDirPath), LocalConfigFile} {
			if fileExists(fs, candidate) {
				resolvedPath = candidate
				break
			}
		}
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(fs, v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Compare it with the output of 'pylayer config dump'").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment overrides bypass the CUE schema.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Check " + EnvPrefix + "_* environment variables for typos").
			WithSuggestion("Durations use Go syntax, e.g. 90s or 5m").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into v.
// Fields stay optional, so the file is decoded into a map rather than a Config.
func loadCUEIntoViper(fs afero.Fs, v *viper.Viper, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.DecodeMap(configSchema, data, "#Config", cueutil.WithFilename(path))
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the default config file into dir (ConfigDir
// when empty) unless one exists. It returns the path and whether the file
// was created.
func CreateDefaultConfig(fs afero.Fs, dir string) (string, bool, error) {
	path := DefaultFilePath(dir)
	if fileExists(fs, path) {
		return path, false, nil
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := afero.WriteFile(fs, path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}
	return path, true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// pylayer configuration file\n")
	sb.WriteString("// Environment variables such as PYLAYER_PUBLISH_REGION override these values.\n\n")

	fmt.Fprintf(&sb, "scratch_dir: %q\n", cfg.ScratchDir)

	sb.WriteString("\nscratch: {\n")
	fmt.Fprintf(&sb, "\tstale_after: %q\n", cfg.Scratch.StaleAfter)
	sb.WriteString("}\n")

	sb.WriteString("\nresolver: {\n")
	fmt.Fprintf(&sb, "\tcommand: %q\n", cfg.Resolver.Command)
	fmt.Fprintf(&sb, "\textra_args: %s\n", cueList(cfg.Resolver.ExtraArgs))
	if cfg.Resolver.IndexURL != "" {
		fmt.Fprintf(&sb, "\tindex_url: %q\n", cfg.Resolver.IndexURL)
	}
	if cfg.Resolver.Platform != "" {
		fmt.Fprintf(&sb, "\tplatform: %q\n", cfg.Resolver.Platform)
	}
	fmt.Fprintf(&sb, "\tonly_binary: %v\n", cfg.Resolver.OnlyBinary)
	fmt.Fprintf(&sb, "\ttimeout: %q\n", cfg.Resolver.Timeout)
	sb.WriteString("}\n")

	sb.WriteString("\nruntime: {\n")
	fmt.Fprintf(&sb, "\tpython_version: %q\n", cfg.Runtime.PythonVersion)
	fmt.Fprintf(&sb, "\tprefix_template: %q\n", cfg.Runtime.PrefixTemplate)
	sb.WriteString("}\n")

	sb.WriteString("\npublish: {\n")
	if cfg.Publish.Region != "" {
		fmt.Fprintf(&sb, "\tregion: %q\n", cfg.Publish.Region)
	}
	if cfg.Publish.EndpointURL != "" {
		fmt.Fprintf(&sb, "\tendpoint_url: %q\n", cfg.Publish.EndpointURL)
	}
	fmt.Fprintf(&sb, "\tdescription: %q\n", cfg.Publish.Description)
	fmt.Fprintf(&sb, "\tlicense_info: %q\n", cfg.Publish.LicenseInfo)
	fmt.Fprintf(&sb, "\tarchitectures: %s\n", cueList(cfg.Publish.ArchitectureStrings()))
	if cfg.Publish.S3Bucket != "" {
		fmt.Fprintf(&sb, "\ts3_bucket: %q\n", cfg.Publish.S3Bucket)
	}
	if cfg.Publish.S3KeyPrefix != "" {
		fmt.Fprintf(&sb, "\ts3_key_prefix: %q\n", cfg.Publish.S3KeyPrefix)
	}
	fmt.Fprintf(&sb, "\ts3_threshold_bytes: %d\n", cfg.Publish.S3ThresholdBytes)
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	fmt.Fprintf(&sb, "\tformat: %q\n", cfg.Log.Format)
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
