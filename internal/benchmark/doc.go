// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks for the resolution hot paths:
//   - manifest parsing and version range evaluation
//   - the selection walk over a sorted candidate list
//   - cold descriptor scans and warm starts from the persistent cache
//
// The profiles they produce feed PGO builds:
//
//	go test -run=^$ -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
