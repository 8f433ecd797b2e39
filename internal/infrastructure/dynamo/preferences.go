package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/matching-sms-api/internal/domain"
)

// PreferencesRepo provides typed DynamoDB operations for the notification preferences table.
type PreferencesRepo struct {
	client    API
	tableName string
}

func NewPreferencesRepo(client API, tableName string) *PreferencesRepo {
	return &PreferencesRepo{client: client, tableName: tableName}
}

func (r *PreferencesRepo) Get(ctx context.Context, userID string) (*domain.NotificationPreferences, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("preferences for %s: %w", userID, domain.ErrNotFound)
	}
	var p domain.NotificationPreferences
	if err := attributevalue.UnmarshalMap(out.Item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal preferences: %w", err)
	}
	return &p, nil
}

// Create inserts p unless a record already exists for the user, in which case
// it returns domain.ErrConflict.
func (r *PreferencesRepo) Create(ctx context.Context, p *domain.NotificationPreferences) error {
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldUserID},
	})
	if isConditionFailure(err) {
		return fmt.Errorf("preferences for %s already exist: %w", p.UserID, domain.ErrConflict)
	}
	return err
}

// Update applies a partial patch to an existing record and stamps updated_at with at.
func (r *PreferencesRepo) Update(ctx context.Context, userID string, updates map[string]interface{}, at time.Time) error {
	fields := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		fields[k] = v
	}
	fields[fieldUpdatedAt] = at
	ue, err := buildUpdateExpr(fields)
	if err != nil {
		return err
	}
	ue.Names["#pk"] = fieldUserID
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(fieldUserID, userID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailure(err) {
		return fmt.Errorf("preferences for %s: %w", userID, domain.ErrNotFound)
	}
	return err
}
