package kafkaqueue

// QueueMessage carries one sync_queue row id from the enqueue endpoint to the
// worker. The row itself is the source of truth; the message is only a nudge.
type QueueMessage struct {
	QueueID string `json:"queue_id"`
}
