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

	"therapy-companion/internal/domain"
)

const (
	skPrefixTurn = "TURN#"
	skMeta       = "META#"
	ttlDuration  = 30 * 24 * time.Hour // 30-day TTL

	// turnSKLayout is fixed width so sort keys order chronologically.
	turnSKLayout = "2006-01-02T15:04:05.000000000Z"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client wraps a DynamoDB table holding per-turn metadata. Message text is
// never written.
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

// convPK returns the DynamoDB partition key for a conversation.
func convPK(conversationID string) string {
	return "CONV#" + conversationID
}

// turnSK returns the sort key for a turn recorded at ts.
func turnSK(ts time.Time) string {
	return skPrefixTurn + ts.UTC().Format(turnSKLayout)
}

// ttlValue returns a Unix timestamp 30 days in the future.
func ttlValue() int64 {
	return time.Now().Add(ttlDuration).Unix()
}

// RecentTurns returns up to limit TURN# items for a conversation, oldest first.
func (c *Client) RecentTurns(ctx context.Context, conversationID string, limit int) ([]domain.TurnRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: convPK(conversationID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixTurn},
		},
		// Newest first so Limit keeps the most recent turns.
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	}

	out, err := c.api.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("repository: RecentTurns query: %w", err)
	}

	turns := make([]domain.TurnRecord, 0, len(out.Items))
	for _, item := range out.Items {
		turn, err := itemToTurn(item)
		if err != nil {
			return nil, fmt.Errorf("repository: RecentTurns unmarshal: %w", err)
		}
		turns = append(turns, turn)
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// GetConversationTurnCount returns the persisted turn count for a conversation.
func (c *Client) GetConversationTurnCount(ctx context.Context, conversationID string) (int, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: convPK(conversationID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("repository: GetConversationTurnCount get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return 0, nil
	}

	turns, err := intAttr(out.Item, "turns")
	if err != nil {
		return 0, fmt.Errorf("repository: GetConversationTurnCount decode turns: %w", err)
	}
	return turns, nil
}

// SaveTurn writes the turn record and bumps the conversation metadata in one
// transaction. The turn counter is incremented server-side so concurrent turns
// on one conversation are all counted.
func (c *Client) SaveTurn(ctx context.Context, turn domain.TurnRecord, meta domain.ConversationMeta) error {
	if turn.PK == "" || turn.SK == "" {
		return errors.New("repository: SaveTurn: turn PK and SK are required")
	}
	if meta.PK == "" || meta.SK == "" {
		return errors.New("repository: SaveTurn: meta PK and SK are required")
	}

	_, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                turnItem(turn),
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			},
			{Update: c.metaUpdate(meta)},
		},
	})
	if err != nil {
		return fmt.Errorf("repository: SaveTurn: %w", err)
	}
	return nil
}

// RecordTurn fills in keys and TTL for turn and persists it together with the
// conversation's turn count.
func (c *Client) RecordTurn(ctx context.Context, turn domain.TurnRecord) error {
	id := strings.TrimSpace(turn.ConversationID)
	if id == "" {
		return errors.New("repository: RecordTurn: conversation id is required")
	}
	rec := NewTurnRecord(id)
	rec.Mode = turn.Mode
	rec.Submode = turn.Submode
	rec.ResponseID = turn.ResponseID
	rec.Degraded = turn.Degraded
	rec.ErrorCode = turn.ErrorCode
	if err := c.SaveTurn(ctx, rec, NewConversationMeta(id)); err != nil {
		return fmt.Errorf("repository: RecordTurn: %w", err)
	}
	return nil
}

// NewTurnRecord constructs a TurnRecord with PK/SK/TTL set from conversationID and current time.
func NewTurnRecord(conversationID string) domain.TurnRecord {
	return domain.TurnRecord{
		PK:             convPK(conversationID),
		SK:             turnSK(time.Now()),
		ConversationID: conversationID,
		TTL:            ttlValue(),
	}
}

// NewConversationMeta constructs a ConversationMeta record.
func NewConversationMeta(conversationID string) domain.ConversationMeta {
	return domain.ConversationMeta{
		PK:             convPK(conversationID),
		SK:             skMeta,
		ConversationID: conversationID,
		LastActivity:   time.Now().UTC().Format(time.RFC3339),
		TTL:            ttlValue(),
	}
}

// itemToTurn converts a DynamoDB attribute map to a TurnRecord.
func itemToTurn(item map[string]types.AttributeValue) (domain.TurnRecord, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.TurnRecord{}, err
	}
	sk, err := strAttr(item, "SK")
	if err != nil {
		return domain.TurnRecord{}, err
	}
	mode, err := strAttr(item, "mode")
	if err != nil {
		return domain.TurnRecord{}, err
	}
	conversationID, _ := strAttr(item, "conversationId")
	submode, _ := strAttr(item, "submode")
	responseID, _ := strAttr(item, "responseId")
	errorCode, _ := strAttr(item, "errorCode")
	degraded := false
	if b, ok := item["degraded"].(*types.AttributeValueMemberBOOL); ok {
		degraded = b.Value
	}

	return domain.TurnRecord{
		PK:             pk,
		SK:             sk,
		ConversationID: conversationID,
		Mode:           mode,
		Submode:        submode,
		ResponseID:     responseID,
		Degraded:       degraded,
		ErrorCode:      errorCode,
	}, nil
}

func turnItem(turn domain.TurnRecord) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":             &types.AttributeValueMemberS{Value: turn.PK},
		"SK":             &types.AttributeValueMemberS{Value: turn.SK},
		"conversationId": &types.AttributeValueMemberS{Value: turn.ConversationID},
		"mode":           &types.AttributeValueMemberS{Value: turn.Mode},
		"degraded":       &types.AttributeValueMemberBOOL{Value: turn.Degraded},
		"ttl":            &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", turn.TTL)},
	}
	if turn.Submode != "" {
		item["submode"] = &types.AttributeValueMemberS{Value: turn.Submode}
	}
	if turn.ResponseID != "" {
		item["responseId"] = &types.AttributeValueMemberS{Value: turn.ResponseID}
	}
	if turn.ErrorCode != "" {
		item["errorCode"] = &types.AttributeValueMemberS{Value: turn.ErrorCode}
	}
	return item
}

// metaUpdate upserts the META# row and adds one to its turns counter.
func (c *Client) metaUpdate(meta domain.ConversationMeta) *types.Update {
	return &types.Update{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: meta.PK},
			"SK": &types.AttributeValueMemberS{Value: meta.SK},
		},
		UpdateExpression: aws.String("SET conversationId = :cid, lastActivity = :at, #ttl = :ttl ADD turns :one"),
		ExpressionAttributeNames: map[string]string{
			"#ttl": "ttl",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cid": &types.AttributeValueMemberS{Value: meta.ConversationID},
			":at":  &types.AttributeValueMemberS{Value: meta.LastActivity},
			":ttl": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", meta.TTL)},
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
	}
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

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
