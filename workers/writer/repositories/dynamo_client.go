package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/samsterpiece/nostalgiasite/workers/writer/domain"
)

type DynamoDBAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoDBClient keeps one item per year and category pointing at the newest snapshot,
// plus per-year submission counters.
type DynamoDBClient struct {
	client    DynamoDBAPI
	tableName string
	logger    *zap.Logger
}

func NewDynamoDBClient(client DynamoDBAPI, tableName string, logger *zap.Logger) *DynamoDBClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DynamoDBClient{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func (d *DynamoDBClient) UpdateLatestSnapshot(ctx context.Context, msg domain.WriterMessage) error {
	key := fmt.Sprintf(domain.LatestSnapshotKey, msg.Year, msg.Category)
	if d.tableName == "" {
		d.logger.Warn("DYNAMODB_TABLE not configured, skipping latest snapshot update", zap.String("page_key", key))
		return nil
	}

	pageKey := map[string]types.AttributeValue{
		"page_key": &types.AttributeValueMemberS{Value: key},
	}

	// rendered_at is RFC 3339 in UTC, so string order is time order.
	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(d.tableName),
		Key:                 pageKey,
		UpdateExpression:    aws.String("SET s3_path = :path, rendered_at = :at, facts = :facts, events = :events, books = :books ADD render_count :one"),
		ConditionExpression: aws.String("attribute_not_exists(rendered_at) OR rendered_at < :at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":path":   &types.AttributeValueMemberS{Value: msg.S3Path},
			":at":     &types.AttributeValueMemberS{Value: msg.RenderedAt},
			":facts":  &types.AttributeValueMemberN{Value: strconv.Itoa(msg.Facts)},
			":events": &types.AttributeValueMemberN{Value: strconv.Itoa(msg.Events)},
			":books":  &types.AttributeValueMemberN{Value: strconv.Itoa(msg.Books)},
			":one":    &types.AttributeValueMemberN{Value: "1"},
		},
	})

	var stale *types.ConditionalCheckFailedException
	if errors.As(err, &stale) {
		// A newer render already owns the pointer; only count this one.
		_, err = d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:        aws.String(d.tableName),
			Key:              pageKey,
			UpdateExpression: aws.String("ADD render_count :one"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":one": &types.AttributeValueMemberN{Value: "1"},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to count stale snapshot in DynamoDB for %s: %w", key, err)
		}
		d.logger.Info("kept newer snapshot", zap.String("page_key", key), zap.String("s3_path", msg.S3Path))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to update latest snapshot in DynamoDB for %s: %w", key, err)
	}

	d.logger.Info("updated latest snapshot", zap.String("page_key", key), zap.String("s3_path", msg.S3Path))
	return nil
}

func (d *DynamoDBClient) RecordSubmission(ctx context.Context, year int, success bool) error {
	key := fmt.Sprintf(domain.SubmissionsKey, year)
	if d.tableName == "" {
		return nil
	}

	counter := "rejected"
	if success {
		counter = "accepted"
	}
	_, err := d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tableName),
		Key: map[string]types.AttributeValue{
			"page_key": &types.AttributeValueMemberS{Value: key},
		},
		UpdateExpression: aws.String("ADD #c :one"),
		ExpressionAttributeNames: map[string]string{
			"#c": counter,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to record submission in DynamoDB for %s: %w", key, err)
	}
	return nil
}
