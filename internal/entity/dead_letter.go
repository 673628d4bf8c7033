package entity

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

type DeadLetter struct {
	OriginalTopic string          `json:"original_topic"`
	EventID       string          `json:"event_id"`
	ErrorReason   string          `json:"error_reason"`
	RetryCount    int             `json:"retry_count"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// NewDeadLetter keeps body as is. A body that is not valid JSON is carried
// as a JSON string so the envelope stays encodable.
func NewDeadLetter(topic, eventID string, reason error, retries int, body []byte, now time.Time) *DeadLetter {
	payload := json.RawMessage(bytes.Clone(body))
	if !json.Valid(body) {
		payload, _ = json.Marshal(string(body))
	}

	return &DeadLetter{
		OriginalTopic: topic,
		EventID:       eventID,
		ErrorReason:   reason.Error(),
		RetryCount:    retries,
		Timestamp:     now.UTC(),
		Payload:       payload,
	}
}

type deadLetterHeader struct {
	OriginalTopic string    `json:"original_topic"`
	EventID       string    `json:"event_id"`
	ErrorReason   string    `json:"error_reason"`
	RetryCount    int       `json:"retry_count"`
	Timestamp     time.Time `json:"timestamp"`
}

// Encode writes the record with Payload spliced in byte for byte.
// json.Marshal would compact and HTML-escape it.
func (d *DeadLetter) Encode() ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	err := enc.Encode(deadLetterHeader{
		OriginalTopic: d.OriginalTopic,
		EventID:       d.EventID,
		ErrorReason:   d.ErrorReason,
		RetryCount:    d.RetryCount,
		Timestamp:     d.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("DeadLetter - Encode - enc.Encode: %w", err)
	}

	payload := d.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	header := bytes.TrimSuffix(bytes.TrimRight(buf.Bytes(), "\n"), []byte("}"))

	out := make([]byte, 0, len(header)+len(payload)+len(`,"payload":}`))
	out = append(out, header...)
	out = append(out, `,"payload":`...)
	out = append(out, payload...)
	out = append(out, '}')

	return out, nil
}
