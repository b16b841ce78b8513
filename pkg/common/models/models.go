package models

import (
	"encoding/json"
	"time"
)

// Event types carried on the Kafka topics.
const (
	EventHealthRecordSubmitted = "health-record.submitted"
	EventRiskAssessed          = "risk.assessed"
	EventModelTrained          = "model.trained"
)

// Event is the envelope for every message on the bus. Data holds the
// type-specific payload.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Source    string            `json:"source"`
	Data      json.RawMessage   `json:"data"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}
