// Package archive reorganizes the raw acquisition data of one scan session
// into the canonical archive hierarchy.
//
// An Archiver takes a snapshot of a session.SessionRecord and a source
// directory. For every measurement it locates the image files by the number
// encoded in their names, checks the count against the expected volumes,
// copies them below <root>/<project>/sub-NNN/ses-NNN/<type>/NNN-<name>/DICOM
// and derives BrainVoyager and Turbo-BrainVoyager cross-reference links.
// Logfile and document patterns are resolved against the source, the protocol
// is written into the session folder, and every failure along the way ends up
// as an entry in the returned Report instead of aborting the job.
//
// The classifier, locator, path builder, and logfile copier are exported so
// the CLI and tests can exercise them on their own.
package archive
