// SPDX-License-Identifier: MPL-2.0

package bundlerepo

import (
	"maps"
	"slices"
)

// OverridePolicy changes how interim fixes of one identifier are treated.
type OverridePolicy int

const (
	// PolicyOverlay is the default: a fix overlays its base and needs one.
	PolicyOverlay OverridePolicy = iota
	// PolicyFirstFixWins makes the first fix in the walk authoritative
	// without looking for a base. Used for archives patched in place.
	PolicyFirstFixWins
)

// Identifiers of the launcher archives, patched in place rather than overlaid.
const (
	KernelBootIdentifier     = "kernel.boot"
	KernelLauncherIdentifier = "kernel.launcher"
)

// Overrides maps identifiers to a non-default fix policy.
type Overrides map[string]OverridePolicy

// DefaultOverrides returns the built-in table.
func DefaultOverrides() Overrides {
	return Overrides{
		KernelBootIdentifier:     PolicyFirstFixWins,
		KernelLauncherIdentifier: PolicyFirstFixWins,
	}
}

// FirstFixWins builds a table where every listed identifier uses
// PolicyFirstFixWins.
func FirstFixWins(identifiers ...string) Overrides {
	o := make(Overrides, len(identifiers))
	for _, id := range identifiers {
		o[id] = PolicyFirstFixWins
	}
	return o
}

// Policy returns the policy for identifier. A nil table yields PolicyOverlay.
func (o Overrides) Policy(identifier string) OverridePolicy {
	return o[identifier]
}

// Identifiers returns the overridden identifiers in sorted order.
func (o Overrides) Identifiers() []string {
	return slices.Sorted(maps.Keys(o))
}

// String returns the policy name.
func (p OverridePolicy) String() string {
	switch p {
	case PolicyFirstFixWins:
		return "first-fix-wins"
	default:
		return "overlay"
	}
}
