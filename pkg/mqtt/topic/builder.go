package topic

import (
	"strings"

	"github.com/autopeer-io/canbridge/pkg/can"
)

// Constants defining the standard topic segments.
// These act as the contract between the gateway and every consumer.
const (
	// SuffixFrames carries one message per received frame.
	// Structure: {root}/frames/CAN_XXX
	SuffixFrames = "frames"

	// SuffixTx carries outgoing send requests consumed only by the gateway.
	// Structure: {root}/tx
	SuffixTx = "tx"

	// SuffixStatus carries the gateway online flag (retained, last will).
	// Structure: {root}/status/{clientID}
	SuffixStatus = "status"
)

// Builder encapsulates the logic for constructing MQTT topic strings.
type Builder struct {
	// root is the base namespace for all topics (e.g., "canbridge/v1").
	root string
}

// NewBuilder creates a new Builder with the specified root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: strings.TrimSuffix(root, "/")}
}

// Frame returns the topic on which frames with the given identifier are published.
func (b *Builder) Frame(id uint32) string {
	return b.Build(SuffixFrames, can.Topic(id))
}

// FrameWildcard matches every frame topic.
func (b *Builder) FrameWildcard() string {
	return b.Build(SuffixFrames, Wildcard)
}

// Tx returns the outgoing send request topic.
func (b *Builder) Tx() string {
	if b.root == "" {
		return SuffixTx
	}
	return b.root + "/" + SuffixTx
}

// Status returns the online status topic of one client.
func (b *Builder) Status(clientID string) string {
	return b.Build(SuffixStatus, clientID)
}

// Build constructs {root}/{suffix}/{identifier}.
func (b *Builder) Build(suffix, id string) string {
	if b.root == "" {
		return suffix + "/" + id
	}
	return b.root + "/" + suffix + "/" + id
}
