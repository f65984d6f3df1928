// Package common holds types shared by the patching core and its driver:
// result statuses, source kinds and the error taxonomy.
package common

//go:generate go tool go-enum --marshal --names --values

// Outcome of processing a single file.
// ENUM(modified, already-correct, no-target-entry, read-error, write-error, ignored)
type Status int

// Failed reports whether status is an error outcome.
func (s Status) Failed() bool {
	return s == StatusReadError || s == StatusWriteError
}

// Skipped reports whether file was left alone without being an error.
func (s Status) Skipped() bool {
	return s == StatusNoTargetEntry || s == StatusIgnored
}

// What was handed to a file task.
// ENUM(fragment, archive)
type SourceKind int
