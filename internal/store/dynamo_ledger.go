package store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/example/shelfstock/internal/model"
	"github.com/google/uuid"
)

// DynamoLedger stores the stock movement ledger in DynamoDB for the serverless
// deployment. Rows are streamed to Kinesis via the DynamoDB Kinesis
// integration, which feeds the lambda notifier. In this deployment the product
// counters are not cached alongside the ledger; the shelf projector recomputes
// them from the full ledger instead.
type DynamoLedger struct {
	client    *dynamodb.Client
	tableName string
}

// dynamoMovement is the DynamoDB item layout. Partition key product_id, sort
// key seq (per-product sequence number).
type dynamoMovement struct {
	ProductID    string `dynamodbav:"product_id"`
	Seq          int    `dynamodbav:"seq"`
	ID           string `dynamodbav:"id"`
	MovementType string `dynamodbav:"movement_type"`
	Quantity     int    `dynamodbav:"quantity"`
	SetQuantity  int    `dynamodbav:"set_quantity"`
	MovementDate string `dynamodbav:"movement_date"`
	MovementTime string `dynamodbav:"movement_time"`
	Notes        string `dynamodbav:"notes"`
	ShelfID      string `dynamodbav:"shelf_id"`
	ShelfName    string `dynamodbav:"shelf_name"`
	HandledBy    string `dynamodbav:"handled_by"`
	CreatedBy    string `dynamodbav:"created_by"`
	CreatedAt    string `dynamodbav:"created_at"`
	GSI1PK       string `dynamodbav:"gsi1pk"` // fixed value to query the whole ledger
}

func NewDynamoLedger(client *dynamodb.Client, tableName string) *DynamoLedger {
	return &DynamoLedger{client: client, tableName: tableName}
}

// AppendMovement writes a ledger row with a conditional put so two writers can
// never claim the same (product, seq) slot.
func (l *DynamoLedger) AppendMovement(ctx context.Context, m *model.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now()

	seq, err := l.nextSeq(ctx, m.ProductID)
	if err != nil {
		return fmt.Errorf("failed to get next sequence: %w", err)
	}

	item := dynamoMovement{
		ProductID:    m.ProductID,
		Seq:          seq,
		ID:           m.ID,
		MovementType: string(m.Type),
		Quantity:     m.Quantity,
		SetQuantity:  m.SetQuantity,
		MovementDate: m.MovementDate,
		MovementTime: m.MovementTime,
		Notes:        m.Notes,
		ShelfID:      m.ShelfID,
		ShelfName:    m.ShelfName,
		HandledBy:    m.HandledBy,
		CreatedBy:    m.CreatedBy,
		CreatedAt:    m.CreatedAt.Format(time.RFC3339Nano),
		GSI1PK:       "LEDGER",
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal movement: %w", err)
	}

	_, err = l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(product_id) AND attribute_not_exists(seq)"),
	})
	if err != nil {
		return fmt.Errorf("failed to put movement: %w", err)
	}

	return nil
}

// nextSeq queries for the current max sequence number and returns the next one.
func (l *DynamoLedger) nextSeq(ctx context.Context, productID string) (int, error) {
	result, err := l.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.tableName),
		KeyConditionExpression: aws.String("product_id = :pid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: productID},
		},
		ScanIndexForward:     aws.Bool(false),
		Limit:                aws.Int32(1),
		ProjectionExpression: aws.String("seq"),
	})
	if err != nil {
		return 0, err
	}

	if len(result.Items) == 0 {
		return 1, nil
	}

	var item struct {
		Seq int `dynamodbav:"seq"`
	}
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return 0, err
	}

	return item.Seq + 1, nil
}

// MovementsForProduct returns the ledger for one product in append order.
func (l *DynamoLedger) MovementsForProduct(ctx context.Context, productID string) ([]model.StockMovement, error) {
	result, err := l.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.tableName),
		KeyConditionExpression: aws.String("product_id = :pid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pid": &types.AttributeValueMemberS{Value: productID},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}

	return unmarshalMovements(result.Items), nil
}

// AllMovements returns the whole ledger using GSI1, oldest first.
func (l *DynamoLedger) AllMovements(ctx context.Context) ([]model.StockMovement, error) {
	result, err := l.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.tableName),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("gsi1pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "LEDGER"},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}

	return unmarshalMovements(result.Items), nil
}

func unmarshalMovements(items []map[string]types.AttributeValue) []model.StockMovement {
	movements := make([]model.StockMovement, 0, len(items))

	for _, item := range items {
		var dm dynamoMovement
		if err := attributevalue.UnmarshalMap(item, &dm); err != nil {
			continue
		}

		createdAt, _ := time.Parse(time.RFC3339Nano, dm.CreatedAt)

		movements = append(movements, model.StockMovement{
			ID:           dm.ID,
			ProductID:    dm.ProductID,
			Type:         model.MovementType(dm.MovementType),
			Quantity:     dm.Quantity,
			SetQuantity:  dm.SetQuantity,
			MovementDate: dm.MovementDate,
			MovementTime: dm.MovementTime,
			Notes:        dm.Notes,
			ShelfID:      dm.ShelfID,
			ShelfName:    dm.ShelfName,
			HandledBy:    dm.HandledBy,
			CreatedBy:    dm.CreatedBy,
			CreatedAt:    createdAt,
		})
	}

	return movements
}
