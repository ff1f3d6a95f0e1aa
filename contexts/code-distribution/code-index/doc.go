// Package codeindex implements the append-only content-addressed code
// registry: one bytecode fingerprint maps to at most one canonical deployed
// address. Registration is permissionless, insert-if-absent only; there is
// no removal operation.
package codeindex
