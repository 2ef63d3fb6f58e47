// Package archiver defines the core types and capability interfaces shared
// across the clerking subsystems: documents split into sections, closure
// status, archive batches, and the result of one archiving pass over a page.
package archiver
