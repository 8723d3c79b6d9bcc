// Package config loads client configuration from YAML files and maps
// it onto the channel and transport option structs.
package config
