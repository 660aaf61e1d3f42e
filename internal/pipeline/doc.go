// Package pipeline orchestrates the archive run: discover meetings on the
// portal, download their documents, transcribe their recordings, structure
// the results into agenda items and motions linked to recurring matters, and
// finally embed everything structured in the run.
//
// Two modes exist. A full run discovers and processes every meeting; a
// selective run asks the update detector what changed and touches only that.
// Meetings are processed concurrently under a bounded semaphore, and each
// meeting is isolated: its failure is recorded on the meeting row and the run
// report while its siblings proceed. Only fatal conditions (store loss,
// canceled context) abort a run.
package pipeline
