// Package cli holds the wiring shared by the botflow commands: building an App from
// the configuration and small console helpers.
package cli
