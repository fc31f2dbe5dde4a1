// Package fileutil holds the copy, tree copy, and hard-link primitives the
// archiving engine uses to populate an archive.
package fileutil
