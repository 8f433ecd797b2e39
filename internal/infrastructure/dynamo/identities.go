package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/matching-sms-api/internal/config"
	"github.com/matching-sms-api/internal/domain"
)

// IdentityRepo owns the identities, phone_claims and profiles tables.
// Every write that binds a phone number also writes its claim row in the
// same transaction, so two identities can never hold the same phone.
type IdentityRepo struct {
	client      API
	identities  string
	phoneClaims string
	profiles    string
}

func NewIdentityRepo(client API, tables config.DynamoTables) *IdentityRepo {
	return &IdentityRepo{
		client:      client,
		identities:  tables.Identities,
		phoneClaims: tables.PhoneClaims,
		profiles:    tables.Profiles,
	}
}

func (r *IdentityRepo) Get(ctx context.Context, userID string) (*domain.Identity, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.identities),
		Key:            strKey(fieldUserID, userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("identity %s: %w", userID, domain.ErrNotFound)
	}
	var id domain.Identity
	if err := attributevalue.UnmarshalMap(out.Item, &id); err != nil {
		return nil, fmt.Errorf("unmarshal identity: %w", err)
	}
	return &id, nil
}

// GetByPhone resolves the phone claim and loads the owning identity.
func (r *IdentityRepo) GetByPhone(ctx context.Context, phone string) (*domain.Identity, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.phoneClaims),
		Key:            strKey(fieldPhoneNumber, phone),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("identity for phone %s: %w", phone, domain.ErrNotFound)
	}
	var claim domain.PhoneClaim
	if err := attributevalue.UnmarshalMap(out.Item, &claim); err != nil {
		return nil, fmt.Errorf("unmarshal phone claim: %w", err)
	}
	return r.Get(ctx, claim.UserID)
}

// Create inserts a new identity and its phone claim. A concurrent writer
// holding either key makes it fail with domain.ErrConflict.
func (r *IdentityRepo) Create(ctx context.Context, id *domain.Identity) error {
	items, err := r.createItems(id)
	if err != nil {
		return err
	}
	return r.transact(ctx, items)
}

// CreateWithProfile inserts a new identity, its phone claim and its profile atomically.
func (r *IdentityRepo) CreateWithProfile(ctx context.Context, id *domain.Identity, p *domain.Profile) error {
	items, err := r.createItems(id)
	if err != nil {
		return err
	}
	pu, err := r.profileUpsert(p)
	if err != nil {
		return err
	}
	return r.transact(ctx, append(items, pu))
}

// CompleteWithProfile marks an existing identity's profile as completed and
// upserts the profile in one transaction.
func (r *IdentityRepo) CompleteWithProfile(ctx context.Context, userID string, p *domain.Profile) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldProfileCompleted: true,
		fieldUpdatedAt:        p.UpdatedAt,
	})
	if err != nil {
		return err
	}
	ue.Names["#pk"] = fieldUserID
	pu, err := r.profileUpsert(p)
	if err != nil {
		return err
	}
	return r.transact(ctx, []types.TransactWriteItem{
		{Update: &types.Update{
			TableName:                 aws.String(r.identities),
			Key:                       strKey(fieldUserID, userID),
			UpdateExpression:          aws.String(ue.Expr),
			ConditionExpression:       aws.String("attribute_exists(#pk)"),
			ExpressionAttributeNames:  ue.Names,
			ExpressionAttributeValues: ue.Values,
		}},
		pu,
	})
}

func (r *IdentityRepo) createItems(id *domain.Identity) ([]types.TransactWriteItem, error) {
	item, err := attributevalue.MarshalMap(id)
	if err != nil {
		return nil, fmt.Errorf("marshal identity: %w", err)
	}
	items := []types.TransactWriteItem{{Put: &types.Put{
		TableName:                aws.String(r.identities),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldUserID},
	}}}
	if id.PhoneNumber == "" {
		return items, nil
	}
	claim, err := attributevalue.MarshalMap(domain.PhoneClaim{
		PhoneNumber: id.PhoneNumber,
		UserID:      id.UserID,
		CreatedAt:   id.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal phone claim: %w", err)
	}
	return append(items, types.TransactWriteItem{Put: &types.Put{
		TableName:                aws.String(r.phoneClaims),
		Item:                     claim,
		ConditionExpression:      aws.String("attribute_not_exists(#pk)"),
		ExpressionAttributeNames: map[string]string{"#pk": fieldPhoneNumber},
	}}), nil
}

// profileUpsert writes every profile field but keeps the original created_at.
func (r *IdentityRepo) profileUpsert(p *domain.Profile) (types.TransactWriteItem, error) {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"photo_url":          p.PhotoURL,
		"questionnaire_data": p.QuestionnaireData,
		"ai_analysis":        nil,
		fieldUpdatedAt:       p.UpdatedAt,
	})
	if err != nil {
		return types.TransactWriteItem{}, err
	}
	created, err := attributevalue.Marshal(p.CreatedAt)
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("marshal created_at: %w", err)
	}
	ue.Names["#created"] = fieldCreatedAt
	ue.Values[":created"] = created
	ue.Expr += ", #created = if_not_exists(#created, :created)"
	return types.TransactWriteItem{Update: &types.Update{
		TableName:                 aws.String(r.profiles),
		Key:                       strKey(fieldUserID, p.UserID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	}}, nil
}

func (r *IdentityRepo) transact(ctx context.Context, items []types.TransactWriteItem) error {
	_, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("identity write rejected: %w", domain.ErrConflict)
		}
		return fmt.Errorf("identity transaction: %w", err)
	}
	return nil
}
