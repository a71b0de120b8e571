// Package config loads prefkit's own settings with viper.
//
// Settings come from the first of ./prefkit.yml, ./config/prefkit.yml or
// $XDG_CONFIG_HOME/prefkit/config.yml, then from a .env file, then from
// PREFKIT_* environment variables (PREFKIT_SERVER_PORT=7070). These are the
// engine's settings, not the workspace preferences it resolves.
package config
