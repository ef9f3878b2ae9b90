package topic

// Filter wildcards.
const (
	// Wildcard matches one level: "canbridge/v1/frames/+".
	Wildcard = "+"

	// MultiWildcard matches the rest of the topic and must come last.
	MultiWildcard = "#"
)
