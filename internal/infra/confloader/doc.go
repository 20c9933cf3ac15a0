// Package confloader loads server configuration.
//
// Sources merge in increasing priority: struct defaults, a YAML file,
// then PQCALL_-prefixed environment variables. A fsnotify-based
// watcher supports live reload of a subset of settings (log level).
package confloader
