package v1

// Canonical event types emitted by the code-distribution contexts.
// Consumers match on these strings; never rename a published value.
const (
	EventTypeArtifactRegistered       = "codeindex.artifact.registered"
	EventTypeDistributionAdded        = "distribution.added"
	EventTypeDistributionRemoved      = "distribution.removed"
	EventTypeDistributionInstantiated = "distribution.instantiated"
)
