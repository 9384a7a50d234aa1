// Package configs embeds the configuration template written by
// `folder-observer config init`.
//
// The template is compiled into the binary so source builds and releases
// ship the same file. Every key in it is commented out, so a fresh file
// loads exactly the defaults from internal/config NewConfig().
package configs

import _ "embed"

// UserConfigTemplate is the template for ~/.config/folder-observer/config.yaml.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
