// Package version provides the agent build version.
package version

// Version contains the semantic version of the agent.
// The value is set when building the binary.
var Version = "dev" //nolint:gochecknoglobals
