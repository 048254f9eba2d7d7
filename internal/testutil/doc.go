// SPDX-License-Identifier: MPL-2.0

// Package testutil holds fixtures shared by the package tests.
//
// Bundle and its writers (WriteBundle, WriteBase, WriteFix) produce real zip
// archives with a jar manifest, stamped with FixedModTime so cache records
// stay comparable across runs. The Must* helpers fail the test on any
// filesystem or environment error.
package testutil
