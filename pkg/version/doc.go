// SPDX-License-Identifier: MPL-2.0

// Package version implements the version and version-range model used to
// select bundle archives.
//
// A [Version] is a (major, minor, micro) triple plus an optional qualifier.
// Ordering looks only at the triple: two versions that differ just in their
// qualifier compare equal, which is what lets an interim fix and the base it
// overlays sit next to each other in a sorted candidate list.
//
// A [Range] is an interval over versions written in bracket notation:
//
//	[1.0.0,2.0.0)   1.0.0 <= v < 2.0.0
//	(1.0,1.5]       1.0.0 <  v <= 1.5.0
//	1.2             1.2.0 <= v
//
// The literals "" and "0" are reserved and parse to [MatchAll].
package version
