package persistent

import (
	"testing"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/pkg/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProcessedEventRepo(consumer string) *ProcessedEventRepo {
	pg := &postgres.Postgres{Builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}

	return NewProcessedEventRepo(pg, consumer)
}

func TestProcessedEventRepo_ScopedByConsumer(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := newProcessedEventRepo("inventory-service")

	t.Run("mark", func(t *testing.T) {
		sql, args, err := r.markProcessedQuery(&entity.ProcessedEvent{EventID: "e1", EventType: "order.created", ProcessedAt: now})

		require.NoError(t, err)
		assert.Equal(t,
			"INSERT INTO processed_events (consumer,event_id,event_type,processed_at) VALUES ($1,$2,$3,$4) "+
				"ON CONFLICT (consumer, event_id) DO NOTHING",
			sql)
		assert.Equal(t, []interface{}{"inventory-service", "e1", "order.created", now}, args)
	})

	t.Run("exists", func(t *testing.T) {
		sql, args, err := r.isProcessedQuery("e1")

		require.NoError(t, err)
		assert.Equal(t, "SELECT EXISTS ( SELECT 1 FROM processed_events WHERE consumer = $1 AND event_id = $2 )", sql)
		assert.Equal(t, []interface{}{"inventory-service", "e1"}, args)
	})
}
