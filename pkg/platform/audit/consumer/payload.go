package consumer

import (
	"time"
)

// eventPayload matches the JSON structure the outbox relay publishes.
// Field names follow the producer-side payload struct.
type eventPayload struct {
	ID             string `json:"ID"`
	Category       string `json:"Category"`
	Timestamp      string `json:"Timestamp"`
	TenantID       string `json:"TenantID"`
	VerificationID string `json:"VerificationID"`
	Action         string `json:"Action"`
	Decision       string `json:"Decision"`
	Reason         string `json:"Reason"`
	RequestID      string `json:"RequestID"`
	ActorID        string `json:"ActorID"`
	Sandbox        bool   `json:"Sandbox"`
}

func (p eventPayload) parsedTimestamp() time.Time {
	if p.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
			return ts
		}
	}
	return time.Now()
}
