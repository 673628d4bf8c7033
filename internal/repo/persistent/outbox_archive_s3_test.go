package persistent

import (
	"bytes"
	"testing"
	"time"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeArchive(t *testing.T) {
	// Arrange
	published := time.Date(2024, 5, 1, 12, 0, 1, 0, time.UTC)
	events := []*entity.OutboxEvent{
		{
			ID:          uuid.Must(uuid.NewV7()),
			AggregateID: "ORD-1",
			EventType:   "order.created",
			EventID:     "e1",
			Payload:     []byte(`{"event_id":"e1","order_id":"ORD-1"}`),
			Published:   true,
			CreatedAt:   published.Add(-time.Second),
			PublishedAt: &published,
		},
		{
			ID:          uuid.Must(uuid.NewV7()),
			AggregateID: "ORD-1",
			EventType:   "order.confirmed",
			EventID:     "e2",
			Payload:     []byte(`{"event_id":"e2"}`),
		},
	}

	// Act
	body, err := encodeArchive(events)
	require.NoError(t, err)

	// Assert
	lines := bytes.Split(bytes.TrimSpace(body), []byte("\n"))
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, events[0].ID.String(), first["id"])
	assert.Equal(t, "ORD-1", first["order_id"])
	assert.Equal(t, "order.created", first["event_type"])
	assert.Equal(t, map[string]any{"event_id": "e1", "order_id": "ORD-1"}, first["event_data"])
	assert.Equal(t, "2024-05-01T12:00:01Z", first["published_at"])

	var second map[string]any
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.NotContains(t, second, "published_at")
}
