// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the bundlerepo command tree.
//
// Every command receives an *App, the composition root holding the
// configuration provider and output writers. Commands open a session per
// invocation: configuration is loaded, flags are applied on top of it and a
// fresh repository registry is built, so repeated runs (for example under
// `bundlerepo watch`) never share scan state.
package cmd
