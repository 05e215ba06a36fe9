// Package config loads, normalizes, and validates barberq configuration.
//
// Configuration lives in TOML (default ~/.config/barberq/config.toml, falling
// back to ./barberq.toml) and is decoded into Config, then normalized: paths
// are expanded, BARBERQ_* environment variables fill unset credentials, and
// barber display names default to a title-cased id. Validate rejects settings
// that would leave a poll loop or the API client unusable.
//
// CreateSample writes the embedded sample configuration used by
// `barberq config init`.
package config
