package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"artsync/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// settingsKey is the single global settings item holding fallback credentials.
const settingsKey = "system"

type DynamoStore struct {
	db            *dynamodb.Client
	queueTable    string
	ordersTable   string
	settingsTable string
}

func NewDynamoStore(ctx context.Context) (*DynamoStore, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-2"
	}

	queueTable := os.Getenv("SYNC_QUEUE_TABLE")
	if queueTable == "" {
		queueTable = "sync_queue"
	}
	ordersTable := os.Getenv("ORDERS_TABLE")
	if ordersTable == "" {
		ordersTable = "tasks"
	}
	settingsTable := os.Getenv("SETTINGS_TABLE")
	if settingsTable == "" {
		settingsTable = "settings"
	}

	endpoint := os.Getenv("DYNAMO_ENDPOINT")
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}

	client := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &DynamoStore{
		db:            client,
		queueTable:    queueTable,
		ordersTable:   ordersTable,
		settingsTable: settingsTable,
	}, nil
}

func (s *DynamoStore) PutSyncTask(ctx context.Context, t models.SyncTask) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return err
	}

	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.queueTable),
		Item:      item,
	})
	return err
}

// GetSyncTask returns nil, nil when the row does not exist (deleted after
// success, or never enqueued).
func (s *DynamoStore) GetSyncTask(ctx context.Context, id string) (*models.SyncTask, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.queueTable,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}

	var t models.SyncTask
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *DynamoStore) ListSyncTasks(ctx context.Context, limit int32) ([]models.SyncTask, error) {
	out, err := s.db.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(s.queueTable),
		Limit:     aws.Int32(limit),
	})
	if err != nil {
		return nil, err
	}

	var tasks []models.SyncTask
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// FetchProcessableTasks pulls queue rows eligible for the batch pass: status
// pending or error, retry budget not exhausted. Results are ordered by
// ascending retry_count (closest to succeeding first), ties broken by
// ascending created_at, then capped at limit.
func (s *DynamoStore) FetchProcessableTasks(ctx context.Context, limit int, maxRetry int) ([]models.SyncTask, error) {
	out, err := s.db.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(s.queueTable),

		FilterExpression: aws.String("(#st = :pending OR #st = :error) AND retry_count < :max"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending": &types.AttributeValueMemberS{Value: models.StatusPending},
			":error":   &types.AttributeValueMemberS{Value: models.StatusError},
			":max":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", maxRetry)},
		},
	})
	if err != nil {
		return nil, err
	}

	var tasks []models.SyncTask
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &tasks); err != nil {
		return nil, err
	}

	return OrderProcessable(tasks, limit), nil
}

// OrderProcessable sorts by retry_count then created_at and truncates to
// limit. Split out so the selection policy is testable without a table.
func OrderProcessable(tasks []models.SyncTask, limit int) []models.SyncTask {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].RetryCount != tasks[j].RetryCount {
			return tasks[i].RetryCount < tasks[j].RetryCount
		}
		return tasks[i].CreatedAt < tasks[j].CreatedAt
	})
	if limit > 0 && len(tasks) > limit {
		tasks = tasks[:limit]
	}
	return tasks
}

// ClaimSyncTask moves a row to processing, but only if it is still pending or
// error. Returns false when another invocation already owns it.
func (s *DynamoStore) ClaimSyncTask(ctx context.Context, id string, nowMs int64) (bool, error) {
	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.queueTable),

		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},

		ConditionExpression: aws.String("#st = :pending OR #st = :error"),

		UpdateExpression: aws.String("SET #st = :processing, updated_at = :u"),

		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending":    &types.AttributeValueMemberS{Value: models.StatusPending},
			":error":      &types.AttributeValueMemberS{Value: models.StatusError},
			":processing": &types.AttributeValueMemberS{Value: models.StatusProcessing},
			":u":          &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", nowMs)},
		},
	})

	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if errors.As(err, &cfe) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// MarkSyncTaskFailed records a failed attempt and leaves the row for the
// scheduler to reconsider.
func (s *DynamoStore) MarkSyncTaskFailed(ctx context.Context, id string, retryCount int, errLog string, nowMs int64) error {
	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.queueTable),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},

		UpdateExpression: aws.String("SET #st = :error, retry_count = :rc, error_log = :el, updated_at = :u"),
		ExpressionAttributeNames: map[string]string{
			"#st": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":error": &types.AttributeValueMemberS{Value: models.StatusError},
			":rc":    &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", retryCount)},
			":el":    &types.AttributeValueMemberS{Value: errLog},
			":u":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", nowMs)},
		},
	})
	return err
}

// DeleteSyncTask removes a completed row. Deleting an already-deleted row is
// a no-op, which keeps the success path safe to re-run.
func (s *DynamoStore) DeleteSyncTask(ctx context.Context, id string) error {
	_, err := s.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.queueTable),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	return err
}

func (s *DynamoStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.ordersTable,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}

	var o models.Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOrderMirror sets the order's mirror-ready flag and, when setURL is
// true, the derived URL field. No other order attribute is ever touched from
// this subsystem. Both writes are plain overwrites so re-running a completed
// sync converges on the same record.
func (s *DynamoStore) UpdateOrderMirror(ctx context.Context, orderID string, url string, setURL bool) error {
	expr := "SET dropbox_ready = :ready"
	values := map[string]types.AttributeValue{
		":ready": &types.AttributeValueMemberBOOL{Value: true},
	}
	if setURL {
		expr += ", dropbox_url = :url"
		values[":url"] = &types.AttributeValueMemberS{Value: url}
	}

	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.ordersTable),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeValues: values,
	})
	return err
}

// GetDropboxSettings reads the global settings item's dropbox sub-object.
// Returns nil, nil when no settings item or no dropbox block exists.
func (s *DynamoStore) GetDropboxSettings(ctx context.Context) (*models.DropboxCredentials, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.settingsTable,
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: settingsKey},
		},
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}

	sub, ok := out.Item["dropbox"]
	if !ok {
		return nil, nil
	}

	var creds models.DropboxCredentials
	if err := attributevalue.Unmarshal(sub, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}
