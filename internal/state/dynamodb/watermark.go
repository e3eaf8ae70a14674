package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/lakecraft/silversmith/pkg/types"
)

// PutWatermark stores the watermark for a table. Watermarks carry no TTL;
// they are the durable high-water line per table.
func (s *Store) PutWatermark(ctx context.Context, mark types.WatermarkRecord) error {
	data, err := json.Marshal(mark)
	if err != nil {
		return fmt.Errorf("marshaling watermark: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item: map[string]ddbtypes.AttributeValue{
			"PK":   &ddbtypes.AttributeValueMemberS{Value: pkWatermarks},
			"SK":   &ddbtypes.AttributeValueMemberS{Value: mark.Table},
			"data": &ddbtypes.AttributeValueMemberS{Value: string(data)},
		},
	})
	return err
}

// GetWatermark retrieves the watermark for a table, or (nil, nil) when the
// table has never been consolidated.
func (s *Store) GetWatermark(ctx context.Context, table string) (*types.WatermarkRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &s.tableName,
		ConsistentRead: aws.Bool(true),
		Key: map[string]ddbtypes.AttributeValue{
			"PK": &ddbtypes.AttributeValueMemberS{Value: pkWatermarks},
			"SK": &ddbtypes.AttributeValueMemberS{Value: table},
		},
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, nil
	}

	data, err := attributeStr(out.Item, "data")
	if err != nil {
		return nil, err
	}
	var mark types.WatermarkRecord
	if err := json.Unmarshal([]byte(data), &mark); err != nil {
		return nil, err
	}
	return &mark, nil
}

// ListWatermarks returns all watermarks. The sort key is the table name, so
// a forward query comes back already ordered.
func (s *Store) ListWatermarks(ctx context.Context) ([]types.WatermarkRecord, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":pk": &ddbtypes.AttributeValueMemberS{Value: pkWatermarks},
		},
	})
	if err != nil {
		return nil, err
	}

	var marks []types.WatermarkRecord
	for _, item := range out.Items {
		data, err := attributeStr(item, "data")
		if err != nil {
			s.logger.Warn("skipping corrupt watermark data", "error", err)
			continue
		}
		var mark types.WatermarkRecord
		if err := json.Unmarshal([]byte(data), &mark); err != nil {
			s.logger.Warn("skipping corrupt watermark data", "error", err)
			continue
		}
		marks = append(marks, mark)
	}
	return marks, nil
}
