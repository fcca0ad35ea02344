// SPDX-License-Identifier: MPL-2.0

package wheel

import (
	"strings"
	"time"
)

// archiveTimeLayout is an ISO 8601 basic timestamp, free of characters that
// are awkward in file names.
const archiveTimeLayout = "20060102T150405Z"

// LayerName returns the generated layer name for a module:
// <module>_<version without dots>_py<major><minor>.
//
// Lambda layer names only allow [A-Za-z0-9_-]. A module that is a pip
// requirement such as "requests==2.32.3" is replaced by the distribution
// name from the wheel, and any other disallowed character becomes "_".
func LayerName(module string, fn Filename, pythonCompact string) string {
	name := module
	if strings.IndexFunc(name, func(r rune) bool { return !layerNameAllowed(r) }) >= 0 && fn.Distribution != "" {
		name = fn.Distribution
	}
	return strings.Map(func(r rune) rune {
		if layerNameAllowed(r) {
			return r
		}
		return '_'
	}, name+"_"+fn.CompactVersion()+"_py"+pythonCompact)
}

// ArchiveName returns the file name of the relocated layer archive:
// <module>_layer_ver_<version>_<timestamp>.zip.
func ArchiveName(module string, fn Filename, now time.Time) string {
	safe := strings.NewReplacer("/", "_", `\`, "_", " ", "_").Replace(module)
	return safe + "_layer_ver_" + fn.Version + "_" + now.UTC().Format(archiveTimeLayout) + ".zip"
}

func layerNameAllowed(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_'
}
