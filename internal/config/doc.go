// SPDX-License-Identifier: MPL-2.0

// Package config handles bundlerepo configuration using Viper with CUE as the file format.
//
// Configuration is loaded from ~/.config/bundlerepo/config.cue (or the XDG equivalent on
// Linux, ~/Library/Application Support/bundlerepo/config.cue on macOS,
// %APPDATA%\bundlerepo\config.cue on Windows), falling back to ./config.cue. Files are
// validated against the embedded config_schema.cue before being merged over the defaults.
// Every key can also be set from the environment with a BUNDLEREPO_ prefix, for example
// BUNDLEREPO_INSTALL_DIR or BUNDLEREPO_USE_CACHE.
package config
