// Package config defines the settings shared by catpoint-server and catpointctl
// and provides helpers to load, validate and save them in YAML format.
//
// Load starts from Default, so a settings file only needs the keys it changes.
package config
