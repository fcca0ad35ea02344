// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from $XDG_CONFIG_HOME/pylayer/config.cue (resolved
// with adrg/xdg on every platform), or from ./pylayer.cue when that file is
// absent, or from an explicit --config path. The file is validated against
// the embedded config_schema.cue, merged over the defaults, and finally
// overridden by PYLAYER_* environment variables, e.g. PYLAYER_PUBLISH_REGION
// or PYLAYER_RESOLVER_TIMEOUT.
package config
