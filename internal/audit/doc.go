// Package audit reconstructs the history of document field values from
// change-log entries.
//
// All functions are pure: they operate on already-loaded documents and
// entries and never touch storage. Entries must be supplied oldest first.
package audit
