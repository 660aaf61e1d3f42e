// Command minutebook archives municipal meeting records: it scrapes the
// meeting portal, downloads documents, transcribes recordings, structures
// the results into agenda items and motions, and tracks recurring matters
// across meetings.
package main
