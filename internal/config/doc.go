// Package config defines the AIAS configuration schema and loads it from
// multiple sources (YAML file, environment variables, CLI flags) with
// precedence: CLI flags > Environment variables > YAML config > Defaults.
// The parsed YAML document is kept available alongside the typed view so
// that keys outside the schema, key order, and comments survive a
// load/save cycle.
package config
