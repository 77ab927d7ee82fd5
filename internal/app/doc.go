// Package app wires application dependencies for the CLI.
//
// It loads configuration (an optional config.yaml in the home directory,
// overridable by flags), sets up logging, and builds the concrete stores the
// commands use.
package app
