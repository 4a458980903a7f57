package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/lightbounty/booking-site/internal/booking"
)

// PutItemAPI is the DynamoDB call the sink makes.
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type dynamoItem struct {
	ID        string `dynamodbav:"id"`
	CreatedAt string `dynamodbav:"created_at"`
	booking.Payload
}

// DynamoSink stores booking requests as DynamoDB items keyed by a random id.
type DynamoSink struct {
	client PutItemAPI
	table  string
	now    func() time.Time
}

// NewDynamoSink returns a sink writing to table.
func NewDynamoSink(client PutItemAPI, table string) *DynamoSink {
	if client == nil {
		panic("sink: dynamodb client required")
	}
	return &DynamoSink{client: client, table: strings.TrimSpace(table), now: time.Now}
}

// Insert puts one item. The condition rejects an id collision instead of overwriting.
func (s *DynamoSink) Insert(ctx context.Context, req booking.Request) error {
	item, err := attributevalue.MarshalMap(dynamoItem{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC().Format(time.RFC3339),
		Payload:   req.Payload(),
	})
	if err != nil {
		return remoteErr("", 0, fmt.Errorf("marshal item: %w", err))
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return remoteErr(apiErr.ErrorMessage(), 0, err)
		}
		return remoteErr("", 0, err)
	}
	return nil
}
