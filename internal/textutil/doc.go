// Package textutil sanitizes user-entered names before they become path
// segments of an archive.
package textutil
