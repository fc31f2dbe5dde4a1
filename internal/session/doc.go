// Package session defines the SessionRecord and Measurement value types that
// describe one documented scan session.
//
// The archiving engine receives an immutable snapshot of a record (see
// SessionRecord.Clone) and only ever writes resolved pattern lists into its own
// copy. Naming helpers here are the single source for the subject/session
// labels and the protocol filename so the archive hierarchy and the protocol
// file always agree.
package session
