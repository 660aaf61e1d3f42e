// Package services holds shared plumbing for external collaborator clients:
// the sentinel error taxonomy the pipeline classifies failures with, the
// bounded retry helper for transient remote failures, and context annotation
// helpers for correlating log lines with meetings, phases, and runs.
package services
