// Package config defines dotmod's configuration and how it is assembled
// from defaults, an optional YAML file, environment variables and, last,
// command-line flags (applied by the cli package).
package config
