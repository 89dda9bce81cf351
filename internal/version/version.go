// Package version carries the build-time identity of the strand CLI.
package version

import (
	"strings"

	"github.com/fatih/color"
)

// Overridden at release time via -ldflags.
var (
	// Number is the semantic version of the CLI.
	Number = "0.1.0-dev"

	// GitCommit is an optional git commit hash.
	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var componentColors = []*color.Color{
	color.New(color.FgYellow, color.Bold),
	color.New(color.FgGreen, color.Bold),
	color.New(color.FgBlue, color.Bold),
}

// Colored tints the major.minor.patch components of Number for terminal
// output. A pre-release suffix stays attached to its patch component.
func Colored() string {
	parts := strings.SplitN(Number, ".", len(componentColors))
	for i, part := range parts {
		parts[i] = componentColors[i].Sprint(part)
	}
	return strings.Join(parts, ".")
}
