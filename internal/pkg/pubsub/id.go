package pubsub

import "github.com/google/uuid"

func shortID() string {
	return uuid.NewString()[:8]
}
