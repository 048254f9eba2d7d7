// SPDX-License-Identifier: MPL-2.0

// Package issue holds the catalog of user-facing problems (missing install
// directory, bundle not found, corrupt cache and so on) as Markdown rendered
// with glamour, plus ActionableError for failures that carry fix-up hints.
package issue
