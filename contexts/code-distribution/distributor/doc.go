// Package distributor implements the distribution registry: it tracks which
// (code, initializer) pairs are instantiable, instantiates fresh instances
// from hosted code modules with all-or-nothing initializer execution, and
// answers the beforeCall/afterCall admission checks instances use to prove
// they are still legitimately tracked.
//
// Instance history is immutable: removing a distribution only revokes future
// admission-check validity, never the recorded instance mappings.
package distributor
