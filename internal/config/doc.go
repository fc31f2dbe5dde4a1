// Package config loads, normalizes, and validates sst settings and the
// per-project pick-lists used to pre-fill scan protocols.
//
// Tool settings live in a TOML file (default ~/.config/sst/config.toml, then
// ./sst.toml) and cover log output, the state directory used for job locks,
// and the archive conventions: image extensions, the Turbo-BrainVoyager
// folder name, the reference anatomy measurement, and the document sweep
// whitelist. Project pick-lists live in a YAML file named sst.yaml, looked up
// in the working directory and then in $HOME.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical extensions, and clear validation errors.
package config
