// SPDX-License-Identifier: MPL-2.0

package descriptor

import (
	"github.com/gabriel-vasile/mimetype"
)

const zipMIME = "application/zip"

// IsArchive reports whether the file content sniffs as a zip archive or one
// of its descendants (jar, and so on). The file name is not consulted.
func IsArchive(path string) bool {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is(zipMIME) {
			return true
		}
	}
	return false
}

// Validate reports whether path is a well-formed bundle: a zip archive whose
// descriptor carries an identifier.
func Validate(path string) bool {
	if !IsArchive(path) {
		return false
	}
	_, err := Read(path)
	return err == nil
}
