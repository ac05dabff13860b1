// Package config loads, validates, and normalizes recast's TOML
// configuration. Defaults live in defaults.go; Load layers an optional
// config file on top and expands all path fields.
package config
