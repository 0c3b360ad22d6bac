// Package pathutils holds filesystem path helpers for home directory expansion,
// canonicalization and containment checks.
package pathutils
