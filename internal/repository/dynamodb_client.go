package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"wanderlust/internal/domain"
)

const (
	skPrefixMsg        = "MSG#"
	defaultTTLDuration = 24 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Client journals the messages of a chat session to a DynamoDB table. Items
// expire with the table's TTL; nothing here outlives a session for long.
type Client struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

// New creates a new repository Client. A non-positive ttl uses one day.
func New(api dynamodbAPI, tableName string, ttl time.Duration) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultTTLDuration
	}
	return &Client{api: api, tableName: tableName, ttl: ttl, now: time.Now}, nil
}

// sessionPK returns the DynamoDB partition key for a session.
func sessionPK(sessionID string) string {
	return "SESSION#" + sessionID
}

// msgSK returns the sort key for a message; zero padding keeps index order.
func msgSK(index int) string {
	return fmt.Sprintf("%s%06d", skPrefixMsg, index)
}

func (c *Client) ttlValue() int64 {
	return c.now().Add(c.ttl).Unix()
}

// PutMessage writes the message at index. An index is written once.
func (c *Client) PutMessage(ctx context.Context, sessionID string, index int, msg domain.Message) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("repository: PutMessage: session id is required")
	}
	if index < 0 {
		return errors.New("repository: PutMessage: index must not be negative")
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                messageItem(sessionID, index, msg, c.ttlValue()),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return fmt.Errorf("repository: PutMessage: %w", err)
	}
	return nil
}

// UpdateOutcome records the booking outcome of an already journaled message.
func (c *Client) UpdateOutcome(ctx context.Context, sessionID string, index int, outcome domain.Outcome) error {
	if strings.TrimSpace(sessionID) == "" {
		return errors.New("repository: UpdateOutcome: session id is required")
	}
	_, err := c.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			"SK": &types.AttributeValueMemberS{Value: msgSK(index)},
		},
		UpdateExpression:    aws.String("SET outcome = :outcome"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":outcome": &types.AttributeValueMemberS{Value: string(outcome)},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: UpdateOutcome: %w", err)
	}
	return nil
}

// GetSession returns the journaled messages of a session in order.
func (c *Client) GetSession(ctx context.Context, sessionID string) ([]domain.Message, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixMsg},
		},
		ScanIndexForward: aws.Bool(true),
	}

	var msgs []domain.Message
	for {
		out, err := c.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("repository: GetSession query: %w", err)
		}
		for _, item := range out.Items {
			msg, err := itemToMessage(item)
			if err != nil {
				return nil, fmt.Errorf("repository: GetSession unmarshal: %w", err)
			}
			msgs = append(msgs, msg)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return msgs, nil
}

func messageItem(sessionID string, index int, msg domain.Message, ttl int64) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
		"SK":        &types.AttributeValueMemberS{Value: msgSK(index)},
		"sessionId": &types.AttributeValueMemberS{Value: sessionID},
		"role":      &types.AttributeValueMemberS{Value: string(msg.Role)},
		"text":      &types.AttributeValueMemberS{Value: msg.Text},
		"outcome":   &types.AttributeValueMemberS{Value: string(msg.Outcome)},
		"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)},
	}
	if o := msg.Offer; o != nil {
		item["flightRef"] = &types.AttributeValueMemberS{Value: o.FlightRef}
		item["hotelRef"] = &types.AttributeValueMemberS{Value: o.HotelRef}
		item["amount"] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(o.Amount, 'f', -1, 64)}
		item["destination"] = &types.AttributeValueMemberS{Value: o.DestinationLabel}
	}
	return item
}

// itemToMessage converts a DynamoDB attribute map to a Message.
func itemToMessage(item map[string]types.AttributeValue) (domain.Message, error) {
	role, err := strAttr(item, "role")
	if err != nil {
		return domain.Message{}, err
	}
	text, err := strAttr(item, "text")
	if err != nil {
		return domain.Message{}, err
	}
	outcome, _ := strAttr(item, "outcome") // allow empty

	msg := domain.Message{
		Role:    domain.Role(role),
		Text:    text,
		Outcome: domain.Outcome(outcome),
	}
	if flightRef, err := strAttr(item, "flightRef"); err == nil {
		hotelRef, err := strAttr(item, "hotelRef")
		if err != nil {
			return domain.Message{}, err
		}
		amount, err := floatAttr(item, "amount")
		if err != nil {
			return domain.Message{}, err
		}
		destination, _ := strAttr(item, "destination")
		msg.Offer = &domain.BookingOffer{
			FlightRef:        flightRef,
			HotelRef:         hotelRef,
			Amount:           amount,
			DestinationLabel: destination,
		}
	}
	return msg, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func floatAttr(item map[string]types.AttributeValue, key string) (float64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
