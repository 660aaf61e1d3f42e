// Package logging constructs the slog loggers used across minutebook.
//
// It maps config values to handler level and format (console text or JSON),
// fans output across stdout and the run log file, and exposes the attribute
// helpers and standardized field keys the pipeline uses so per-meeting log
// lines stay queryable.
package logging
