package persistent

import (
	"bytes"
	"context"
	"fmt"

	"github.com/andreyxaxa/order-saga/internal/entity"
	"github.com/andreyxaxa/order-saga/pkg/s3client"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goccy/go-json"
)

const _archiveContentType = "application/x-ndjson"

// OutboxArchiveRepo stores published outbox records as JSON lines.
type OutboxArchiveRepo struct {
	*s3client.S3Client
	bucket string
	prefix string
}

func NewOutboxArchiveRepo(s3c *s3client.S3Client, bucket, prefix string) *OutboxArchiveRepo {
	return &OutboxArchiveRepo{s3c, bucket, prefix}
}

func (r *OutboxArchiveRepo) Archive(ctx context.Context, key string, events []*entity.OutboxEvent) error {
	body, err := encodeArchive(events)
	if err != nil {
		return fmt.Errorf("OutboxArchiveRepo - Archive - encodeArchive: %w", err)
	}

	_, err = r.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(r.prefix + key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(_archiveContentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return fmt.Errorf("OutboxArchiveRepo - Archive - r.Client.PutObject: %w", err)
	}

	return nil
}

// encodeArchive writes one JSON object per line.
func encodeArchive(events []*entity.OutboxEvent) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	for _, event := range events {
		err := enc.Encode(archivedEvent{
			ID:          event.ID.String(),
			AggregateID: event.AggregateID,
			EventType:   event.EventType,
			EventID:     event.EventID,
			Payload:     json.RawMessage(event.Payload),
			CreatedAt:   event.CreatedAt,
			PublishedAt: event.PublishedAt,
		})
		if err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}
