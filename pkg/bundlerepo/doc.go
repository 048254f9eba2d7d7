// SPDX-License-Identifier: MPL-2.0

// Package bundlerepo resolves which bundle archive on disk satisfies a
// request for an identifier and a version range.
//
// An installation is a set of repositories, each rooted at an install
// directory with one or more search roots (sub-directories such as "lib/")
// holding archives. A repository scans its roots on demand, keeps what it
// learned in a candidate set and, for [ContentRepository], persists that set
// in a line-oriented cache file so later processes can skip re-reading
// descriptors of unchanged archives.
//
// # Selection
//
// [Select] filters candidates by search root and range, sorts them by
// version (highest first) and walks the list. Interim fixes overlay the base
// archive they patch: when a fix is followed by a base, the fix wins, unless
// base resolution was requested. A fix that never meets a base is an orphan;
// it is reported through [SelectOptions.OnOrphan] and never selected. The
// [Overrides] table lists identifiers whose fixes replace the archive in
// place, for which the first fix seen is authoritative.
//
// # Registry
//
// [Registry] maps repository names to install directories and builds
// repositories lazily. It is an explicit value: callers create one per
// provisioning pass, resolve through it and call [Registry.DisposeAll] to
// flush caches.
package bundlerepo
