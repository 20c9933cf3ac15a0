// Package config defines the pqcall-server configuration.
//
// Configuration is merged from three layers in increasing priority:
// built-in defaults, an optional YAML file, and PQCALL_ environment
// variables. See internal/infra/confloader for the loading machinery.
package config
