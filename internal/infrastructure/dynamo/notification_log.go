package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/matching-sms-api/internal/domain"
)

// NotificationLogRepo is the append-only store of dispatch attempts.
type NotificationLogRepo struct {
	client    API
	tableName string
}

func NewNotificationLogRepo(client API, tableName string) *NotificationLogRepo {
	return &NotificationLogRepo{client: client, tableName: tableName}
}

// Append writes e. Entries are never overwritten.
func (r *NotificationLogRepo) Append(ctx context.Context, e *domain.NotificationLogEntry) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal log entry: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldEntryID},
	})
	return err
}

// ListByUser returns the user's most recent entries, newest first.
func (r *NotificationLogRepo) ListByUser(ctx context.Context, userID string, limit int32) ([]domain.NotificationLogEntry, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexUserEntries),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(limit),
	})
	if err != nil {
		return nil, err
	}
	entries := []domain.NotificationLogEntry{}
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal log entries: %w", err)
	}
	return entries, nil
}
