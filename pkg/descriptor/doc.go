// SPDX-License-Identifier: MPL-2.0

// Package descriptor reads the package descriptor stored inside a bundle
// archive.
//
// Bundles are zip archives carrying a META-INF/MANIFEST.MF manifest. Three
// facts are taken from it: the identifier (Bundle-SymbolicName), the version
// (Bundle-Version) and whether the archive is an interim fix, signalled by
// an IBM-Interim-Fixes or IBM-Test-Fixes header (the unprefixed
// Interim-Fixes and Test-Fixes spellings are accepted too).
package descriptor
