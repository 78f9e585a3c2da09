// Package config loads and saves the typed configuration tree
// (pkg/types.Config) that drives model selection, RAM-tier detection,
// orchestration overrides, context budgeting, and platform display
// preferences.
//
// # Layout
//
// Everything lives under one directory, OLLAMABOT_CONFIG_DIR (default
// ~/.config/ollamabot): config.yaml, sessions/, and telemetry/. This is
// a deliberate simplification of the four-way XDG Data/Config/Cache/
// State split older configuration systems use — there is nothing here
// that benefits from being spread across directories a user has to
// hunt for.
//
// # Migration
//
// A pre-existing config.json (which may contain comments) at the same
// root is migrated automatically on the first Load: comments are
// stripped with tidwall/jsonc, the result is decoded into the typed
// tree, written out as config.yaml, the original file is renamed to
// config.json.bak rather than deleted, and config.json is recreated as
// a symlink to config.yaml.
//
// # Precedence
//
// Load starts from Default(), applies config.yaml if present, then
// applies environment overrides (currently OLLAMA_URL). There is no
// project-level override file; a single global config plus environment
// variables is judged sufficient for a local-only assistant with no
// per-repo provider credentials to manage.
package config
