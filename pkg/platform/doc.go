// SPDX-License-Identifier: MPL-2.0

// Package platform holds operating system names and the filename rules
// that differ between them, such as the device names Windows refuses to
// use for files. Repository cache files are named after repositories, so
// those names pass through here first.
package platform
