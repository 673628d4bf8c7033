package persistent

import (
	"time"

	"github.com/goccy/go-json"
)

// archivedEvent keeps the payload as embedded JSON rather than base64.
type archivedEvent struct {
	ID          string          `json:"id"`
	AggregateID string          `json:"order_id"`
	EventType   string          `json:"event_type"`
	EventID     string          `json:"event_id"`
	Payload     json.RawMessage `json:"event_data"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}
