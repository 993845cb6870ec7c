package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBClient wraps AWS DynamoDB as the push-token registry: each
// item maps a device id to one registered mobile push token.
type DynamoDBClient struct {
	svc   *dynamodb.Client
	table string
	ctx   context.Context
}

func NewDynamoDBClient(region, table string) (*DynamoDBClient, error) {
	ctx := context.Background()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &DynamoDBClient{
		svc:   dynamodb.NewFromConfig(cfg),
		table: table,
		ctx:   ctx,
	}, nil
}

type pushToken struct {
	DeviceID     string `dynamodbav:"deviceId"`
	Token        string `dynamodbav:"token"`
	RegisteredAt int64  `dynamodbav:"registeredAt"`
}

// RegisterToken stores a push token for a device. Re-registering the
// same token overwrites the item, so registration is idempotent.
func (c *DynamoDBClient) RegisterToken(deviceID, token string) error {
	item, err := attributevalue.MarshalMap(pushToken{
		DeviceID:     deviceID,
		Token:        token,
		RegisteredAt: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push token: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      item,
	}

	if _, err := c.svc.PutItem(c.ctx, input); err != nil {
		return fmt.Errorf("failed to put item in DynamoDB: %w", err)
	}
	return nil
}

// TokensForDevice returns every push token registered for a device.
func (c *DynamoDBClient) TokensForDevice(deviceID string) ([]string, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(c.table),
		KeyConditionExpression: aws.String("deviceId = :d"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d": &types.AttributeValueMemberS{Value: deviceID},
		},
	}

	result, err := c.svc.Query(c.ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query DynamoDB: %w", err)
	}

	var items []pushToken
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push tokens: %w", err)
	}

	tokens := make([]string, len(items))
	for i, it := range items {
		tokens[i] = it.Token
	}
	return tokens, nil
}
