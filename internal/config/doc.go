// Package config provides configuration loading and validation for the
// voice bot service. It handles YAML-based configuration with per-section
// validation and expands ${VAR} environment references so API keys can be
// injected at deploy time.
package config
