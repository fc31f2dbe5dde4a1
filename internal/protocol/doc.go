// Package protocol reads and writes scan protocol files: the fixed-column
// text rendering of a session.SessionRecord.
//
// Every field sits on its own line with the label padded to a 24 character
// column. Multi-line fields (notes, files, checklist, logfiles, comments)
// continue on following lines with the label column left blank. The file has
// three sections, General Information, Documents and Measurements, each
// underlined with '='.
package protocol
