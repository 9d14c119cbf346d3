package kafkaqueue

import (
	"context"
	"encoding/json"
	"time"

	kgo "github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kgo.Reader
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	r := kgo.NewReader(kgo.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commits
	})

	return &Consumer{reader: r}
}

func (c *Consumer) Close() error { return c.reader.Close() }

// ReadQueueID blocks for the next message and hands back a commit function to
// call only after the row was processed (or safely skipped). Uncommitted
// messages get redelivered; the store's conditional claim makes that safe.
func (c *Consumer) ReadQueueID(ctx context.Context) (QueueMessage, func(context.Context) error, error) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return QueueMessage{}, nil, err
	}

	var qm QueueMessage
	if err := json.Unmarshal(m.Value, &qm); err != nil {
		// commit bad messages so we don't get stuck re-reading them forever
		_ = c.reader.CommitMessages(ctx, m)
		return QueueMessage{}, nil, err
	}

	commit := func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return c.reader.CommitMessages(cctx, m)
	}

	return qm, commit, nil
}
