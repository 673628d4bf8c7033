// Package event defines the event envelope shared by every service and the
// typed payloads of the catalog.
//
// On the wire an event is one flat JSON object: the header fields sit next
// to the payload fields.
package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/andreyxaxa/order-saga/pkg/types/errs"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// amounts travel as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

var _headerFields = []string{"event_id", "event_type", "correlation_id", "timestamp"}

// Envelope is the header of an event plus its raw body.
type Envelope struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     Timestamp `json:"timestamp"`

	// Raw is the complete original body, header included.
	Raw json.RawMessage `json:"-"`
}

// Payload is implemented by every typed event body.
type Payload interface {
	Validate() error
}

// New builds an event of eventType with a fresh id and encodes it.
func New(eventType, correlationID string, payload any) (*Envelope, error) {
	env := &Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		CorrelationID: correlationID,
		Timestamp:     Timestamp{time.Now().UTC()},
	}

	raw, err := env.encode(payload)
	if err != nil {
		return nil, err
	}
	env.Raw = raw

	return env, nil
}

func (e *Envelope) encode(payload any) ([]byte, error) {
	fields := make(map[string]json.RawMessage)

	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("event - encode - json.Marshal payload: %w", err)
		}

		err = json.Unmarshal(body, &fields)
		if err != nil {
			return nil, fmt.Errorf("event - encode - payload is not an object: %w", err)
		}
	}

	header, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("event - encode - json.Marshal header: %w", err)
	}

	headerFields := make(map[string]json.RawMessage, len(_headerFields))
	if err = json.Unmarshal(header, &headerFields); err != nil {
		return nil, fmt.Errorf("event - encode - json.Unmarshal header: %w", err)
	}

	for _, name := range _headerFields {
		fields[name] = headerFields[name]
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("event - encode - json.Marshal: %w", err)
	}

	return raw, nil
}

// Parse decodes the header of raw. A body that is not a JSON object or
// lacks event_id is a validation error.
func Parse(raw []byte) (*Envelope, error) {
	var env Envelope

	err := json.Unmarshal(raw, &env)
	if err != nil {
		return nil, errs.Validation("malformed event: %v", err)
	}

	if strings.TrimSpace(env.EventID) == "" {
		return nil, errs.Validation("malformed event: missing event_id")
	}

	env.Raw = append(json.RawMessage(nil), raw...)

	return &env, nil
}

// Decode reads the typed payload of env and validates it.
func Decode[T any, P interface {
	*T
	Payload
}](env *Envelope) (*T, error) {
	var payload T

	err := json.Unmarshal(env.Raw, &payload)
	if err != nil {
		return nil, errs.Validation("%s: decode payload: %v", env.EventType, err)
	}

	err = P(&payload).Validate()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", env.EventType, err)
	}

	return &payload, nil
}

// StringOr returns *s, or def when s is nil or empty.
func StringOr(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}

	return *s
}

// Ptr -.
func Ptr[T any](v T) *T {
	return &v
}
