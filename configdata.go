// Package hyprshutdown provides embedded assets for the hyprshutdown binary.
//
// The root package exists solely to embed [config.default.toml] via
// [DefaultConfigTOML]. The binary prints it for --print-config so users can
// seed their own config file.
package hyprshutdown

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml, embedded at
// build time. It is regenerated by go generate in internal/config.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
