package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/campus-connect/api/internal/domain"
)

// VerificationRepo manages email verification rows.
// PK: user_id, SK: verification_id (ULID — reverse-sorted queries give newest first).
// Consume also touches the profiles table, so the repo knows both table names.
type VerificationRepo struct {
	client        *dynamodb.Client
	tableName     string
	profilesTable string
}

func NewVerificationRepo(client *dynamodb.Client, tableName, profilesTable string) *VerificationRepo {
	return &VerificationRepo{client: client, tableName: tableName, profilesTable: profilesTable}
}

func (r *VerificationRepo) Put(ctx context.Context, v *domain.EmailVerification) error {
	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// LatestPending returns the newest not-yet-consumed verification row for a user.
// The query walks rows newest-first; the filter drops consumed rows, so the
// first surviving item is the one the verifier must act on. Older pending rows
// stay in the table but are unreachable from here.
func (r *VerificationRepo) LatestPending(ctx context.Context, userID string) (*domain.EmailVerification, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
		FilterExpression: aws.String("attribute_not_exists(verified_at)"),
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(25),
	}
	// The filter runs after the page limit, so an all-consumed first page must
	// not be mistaken for "nothing pending" — keep paging until an item or the end.
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		if len(out.Items) > 0 {
			var v domain.EmailVerification
			if err := attributevalue.UnmarshalMap(out.Items[0], &v); err != nil {
				return nil, err
			}
			return &v, nil
		}
		if out.LastEvaluatedKey == nil {
			return nil, fmt.Errorf("no pending verification: %w", domain.ErrNotFound)
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// RecordAttempt increments the failed-attempt counter on a still-pending row
// and returns the new count. A row consumed in the meantime is reported as
// not found.
func (r *VerificationRepo) RecordAttempt(ctx context.Context, userID, verificationID string) (int, error) {
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey("user_id", userID, "verification_id", verificationID),
		UpdateExpression:    aws.String("ADD attempts :one"),
		ConditionExpression: aws.String("attribute_not_exists(verified_at)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return 0, fmt.Errorf("verification already consumed: %w", domain.ErrNotFound)
		}
		return 0, err
	}
	if n, ok := out.Attributes["attempts"].(*types.AttributeValueMemberN); ok {
		count, _ := strconv.Atoi(n.Value)
		return count, nil
	}
	return 0, nil
}

// Consume marks the verification row consumed and flips the profile's
// is_email_verified flag in a single transaction, so a partially applied
// success cannot be observed. The condition on verified_at is the
// serialization point: exactly one concurrent caller wins, the rest see
// domain.ErrNotFound.
func (r *VerificationRepo) Consume(ctx context.Context, userID, verificationID string, when time.Time) error {
	now, err := attributevalue.Marshal(when.UTC())
	if err != nil {
		return fmt.Errorf("marshal timestamp: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:           aws.String(r.tableName),
					Key:                 compositeKey("user_id", userID, "verification_id", verificationID),
					UpdateExpression:    aws.String("SET verified_at = :now"),
					ConditionExpression: aws.String("attribute_not_exists(verified_at)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":now": now,
					},
				},
			},
			{
				Update: &types.Update{
					TableName:           aws.String(r.profilesTable),
					Key:                 strKey("user_id", userID),
					UpdateExpression:    aws.String("SET is_email_verified = :t, updated_at = :now"),
					ConditionExpression: aws.String("attribute_exists(user_id)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":t":   &types.AttributeValueMemberBOOL{Value: true},
						":now": now,
					},
				},
			},
		},
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) && len(tce.CancellationReasons) > 0 {
			if reasonIsConditionFailure(tce.CancellationReasons[0]) {
				// Lost the race: another verify call consumed the row first.
				return fmt.Errorf("verification already consumed: %w", domain.ErrNotFound)
			}
		}
		return fmt.Errorf("consume verification: %w", err)
	}
	return nil
}

func reasonIsConditionFailure(reason types.CancellationReason) bool {
	return reason.Code != nil && *reason.Code == "ConditionalCheckFailed"
}
