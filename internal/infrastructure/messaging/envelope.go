package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/nlp-inference-service/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/nlp-inference-service/pkg/errors"
)

// Event types carried by the metric sink.
const (
	EventRunStarted      = "run.started"
	EventInferenceLogged = "inference.logged"
)

// SchemaVersion is stamped on every envelope.
const SchemaVersion = "v1"

// DefaultSource identifies this service in envelopes.
const DefaultSource = "nlp-inference-service"

// Envelope standardizes sink messages.
type Envelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	TraceID       string            `json:"trace_id,omitempty"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// NewEnvelope marshals payload into a fresh envelope.  The request id on ctx,
// if any, becomes the trace id.
func NewEnvelope(ctx context.Context, eventType, source string, payload interface{}) (*Envelope, error) {
	if eventType == "" {
		return nil, errors.New(errors.ErrCodeValidation, "event type is required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	if source == "" {
		source = DefaultSource
	}
	return &Envelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: SchemaVersion,
		TraceID:       logging.RequestIDFrom(ctx),
		Payload:       data,
	}, nil
}

// Encode returns the JSON form of the envelope.
func (e *Envelope) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	return b, nil
}

// DecodeEnvelope parses an encoded envelope.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	if e.EventType == "" {
		return nil, errors.New(errors.ErrCodeSerialization, "envelope has no event type")
	}
	return &e, nil
}

// DecodePayload unmarshals the payload into target.  An empty payload leaves
// target untouched.
func (e *Envelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal payload").
			WithDetail("event_type=" + e.EventType)
	}
	return nil
}

//Personal.AI order the ending
