// Package config loads application configuration in three layers:
// built-in defaults, an optional YAML file, and TAB_* environment
// variables, in that order of precedence. It also owns the data
// directory layout the batch pipeline operates on.
package config
