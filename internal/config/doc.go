// Package config loads CLI configuration from YAML files and the
// environment.
package config
